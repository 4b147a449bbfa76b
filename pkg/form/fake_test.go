package form

import (
	"context"
	"sync"

	"github.com/goliatone/go-handyadmin/pkg/client"
)

type call struct {
	Method  string
	Path    string
	Payload client.Payload
}

type fakeAPI struct {
	mu sync.Mutex

	calls    []call
	lists    map[string][]client.Record
	listHits map[string]int
	result   client.Record
	err      error
	// block, when set, holds Submit until released.
	block   chan struct{}
	entered chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{lists: map[string][]client.Record{}, listHits: map[string]int{}}
}

func (f *fakeAPI) Submit(ctx context.Context, method, path string, payload client.Payload) (client.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Path: path, Payload: payload})
	block, entered := f.block, f.entered
	result, err := f.result, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = client.Record{}
	}
	return result, nil
}

func (f *fakeAPI) List(_ context.Context, path string) ([]client.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits[path]++
	return f.lists[path], nil
}

func (f *fakeAPI) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: "DELETE", Path: path})
	return f.err
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAPI) ListHits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listHits[path]
}
