package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-handyadmin/pkg/client"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type call struct {
	Path string
	In   map[string]string
}

type fakeTokenAPI struct {
	calls []call
	resp  map[string]any
	err   error
}

func (f *fakeTokenAPI) PostJSON(_ context.Context, path string, in, out any) error {
	f.calls = append(f.calls, call{Path: path, In: in.(map[string]string)})
	if f.err != nil {
		return f.err
	}
	switch dst := out.(type) {
	case *Tokens:
		dst.Access, _ = f.resp["access"].(string)
		dst.Refresh, _ = f.resp["refresh"].(string)
	case *struct {
		Access string `json:"access"`
	}:
		dst.Access, _ = f.resp["access"].(string)
	}
	return nil
}

func TestExpired(t *testing.T) {
	svc := NewService(&fakeTokenAPI{}, Config{}, WithClock(func() time.Time { return now }))

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"future", signed(t, jwt.MapClaims{"exp": now.Add(time.Minute).Unix()}), false},
		{"past", signed(t, jwt.MapClaims{"exp": now.Add(-time.Minute).Unix()}), true},
		{"no exp", signed(t, jwt.MapClaims{"username": "ada"}), false},
		{"garbage", "not-a-jwt", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.Expired(tc.token); got != tc.want {
				t.Fatalf("Expired = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	api := &fakeTokenAPI{resp: map[string]any{"access": "a", "refresh": "r"}}
	svc := NewService(api, Config{})

	tokens, err := svc.Login(context.Background(), "ada", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if diff := cmp.Diff(Tokens{Access: "a", Refresh: "r"}, tokens); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
	want := []call{{Path: TokenPath, In: map[string]string{"username": "ada", "password": "pw"}}}
	if diff := cmp.Diff(want, api.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestLogin_Rejected(t *testing.T) {
	api := &fakeTokenAPI{err: &client.APIError{Method: http.MethodPost, Path: TokenPath, Status: http.StatusUnauthorized}}
	svc := NewService(api, Config{})

	_, err := svc.Login(context.Background(), "ada", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestGuard_PassesSessionThrough(t *testing.T) {
	svc := NewService(&fakeTokenAPI{}, Config{}, WithClock(func() time.Time { return now }))
	access := signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix(), "username": "ada", "user_id": 7})

	var got Session
	var token string
	h := svc.Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
		token, _ = client.TokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/supplier", nil)
	req.AddCookie(&http.Cookie{Name: "access", Value: access})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if diff := cmp.Diff(Session{Access: access, Profile: Profile{UserID: "7", Username: "ada"}}, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
	if token != access {
		t.Fatalf("bearer token not on context")
	}
}

func TestGuard_RefreshesExpiredToken(t *testing.T) {
	fresh := signed(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix(), "username": "ada"})
	api := &fakeTokenAPI{resp: map[string]any{"access": fresh}}
	svc := NewService(api, Config{}, WithClock(func() time.Time { return now }))

	var token string
	h := svc.Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ = client.TokenFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access", Value: signed(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})})
	req.AddCookie(&http.Cookie{Name: "refresh", Value: "r1"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if token != fresh {
		t.Fatalf("handler did not receive refreshed token")
	}
	want := []call{{Path: RefreshPath, In: map[string]string{"refresh": "r1"}}}
	if diff := cmp.Diff(want, api.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "access" || cookies[0].Value != fresh {
		t.Fatalf("expected rewritten access cookie, got %+v", cookies)
	}
}

func TestGuard_RefreshFailureClearsCookies(t *testing.T) {
	api := &fakeTokenAPI{err: &client.APIError{Status: http.StatusUnauthorized}}
	svc := NewService(api, Config{LoginPath: "/login"}, WithClock(func() time.Time { return now }))

	var gotErr error
	h := svc.Guard(func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access", Value: signed(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})})
	req.AddCookie(&http.Cookie{Name: "refresh", Value: "stale"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !errors.Is(gotErr, ErrTokenExpired) || !errors.Is(gotErr, ErrRefreshFailed) {
		t.Fatalf("unexpected error %v", gotErr)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	if diff := cmp.Diff(map[string]bool{"access": true, "refresh": true}, cleared); diff != "" {
		t.Fatalf("cleared cookies mismatch (-want +got):\n%s", diff)
	}
}

func TestGuard_NoTokenRedirects(t *testing.T) {
	svc := NewService(&fakeTokenAPI{}, Config{})
	h := svc.Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tool", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
