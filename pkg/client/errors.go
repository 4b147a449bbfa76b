package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork marks transport failures where no structured response exists.
var ErrNetwork = errors.New("client: network failure")

// APIError is returned for non-2xx responses. Body holds the raw payload so
// callers can translate field errors.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type networkError struct {
	method string
	path   string
	err    error
}

func (e *networkError) Error() string {
	return fmt.Sprintf("client: %s %s: %v", e.method, e.path, e.err)
}

func (e *networkError) Unwrap() []error {
	return []error{ErrNetwork, e.err}
}
