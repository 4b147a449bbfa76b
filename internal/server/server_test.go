package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-handyadmin/internal/auth"
	"github.com/goliatone/go-handyadmin/internal/catalog"
	"github.com/goliatone/go-handyadmin/internal/config"
	"github.com/goliatone/go-handyadmin/internal/site"
	"github.com/goliatone/go-handyadmin/pkg/client"
	"github.com/goliatone/go-handyadmin/pkg/format"
	"github.com/goliatone/go-handyadmin/pkg/render"
)

type upstreamCall struct {
	Method string
	Path   string
	Auth   string
	Form   url.Values
}

// upstream fakes the REST API. Routes are keyed by "METHOD /path/".
type upstream struct {
	mu     sync.Mutex
	calls  []upstreamCall
	routes map[string]func(w http.ResponseWriter)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := upstreamCall{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			call.Form = r.MultipartForm.Value
		}
	}
	u.mu.Lock()
	u.calls = append(u.calls, call)
	handler := u.routes[r.Method+" "+r.URL.Path]
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if handler == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found."}`))
		return
	}
	handler(w)
}

func (u *upstream) on(key string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.routes[key] = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (u *upstream) called(method, path string) []upstreamCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []upstreamCall
	for _, call := range u.calls {
		if call.Method == method && call.Path == path {
			out = append(out, call)
		}
	}
	return out
}

func newTestServer(t *testing.T) (*Server, *upstream) {
	t.Helper()
	up := &upstream{routes: make(map[string]func(w http.ResponseWriter))}
	ts := httptest.NewServer(up)
	t.Cleanup(ts.Close)

	api, err := client.New(ts.URL)
	require.NoError(t, err)
	cat, err := catalog.Default(format.NewRegistry())
	require.NoError(t, err)
	cfg, err := ThemeFromConfig(config.Default().Theme)
	require.NoError(t, err)

	srv, err := New(api, cat, auth.NewService(api, auth.Config{}), WithTheme(cfg))
	require.NoError(t, err)
	return srv, up
}

func accessToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":      time.Now().Add(time.Hour).Unix(),
		"username": "admin",
	}).SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return token
}

func multipartBody(t *testing.T, fields [][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, field := range fields {
		require.NoError(t, writer.WriteField(field[0], field[1]))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func serve(srv *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func flashToasts(t *testing.T, rec *httptest.ResponseRecorder) []render.Toast {
	t.Helper()
	c := cookieNamed(rec, flashCookie)
	require.NotNil(t, c, "expected a flash cookie")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return takeFlash(httptest.NewRecorder(), req)
}

func TestCreateSupplierWithAddress(t *testing.T) {
	srv, up := newTestServer(t)
	token := accessToken(t)
	access := &http.Cookie{Name: "access", Value: token}

	up.on("POST /supplier/", http.StatusCreated, `{"id": 7, "name": "Acme"}`)
	up.on("POST /supplier/address/7/", http.StatusCreated, `{"id": 3, "street_address": "1 Main St"}`)
	up.on("GET /supplier/", http.StatusOK, `[{"id": 7, "name": "Acme"}]`)

	body, contentType := multipartBody(t, [][2]string{
		{"name", "Acme"},
		{render.NestedFieldPrefix + "address", "d1"},
		{"address-d1-street_address", "1 Main St"},
		{"address-d1-city", "Moore"},
		{"address-d1-state", "OK"},
		{"address-d1-zip", "73160"},
	})
	req := httptest.NewRequest(http.MethodPost, "/supplier/", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, access)

	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/supplier", rec.Header().Get("Location"))

	created := up.called(http.MethodPost, "/supplier/")
	require.Len(t, created, 1)
	assert.Equal(t, "Bearer "+token, created[0].Auth)
	assert.Equal(t, []string{"Acme"}, created[0].Form["name"])
	assert.NotContains(t, created[0].Form, "address-d1-city")

	addresses := up.called(http.MethodPost, "/supplier/address/7/")
	require.Len(t, addresses, 1)
	assert.Equal(t, url.Values{
		"street_address": {"1 Main St"},
		"city":           {"Moore"},
		"state":          {"OK"},
		"zip":            {"73160"},
		"supplier":       {"7"},
	}, addresses[0].Form)
	assert.Empty(t, up.called(http.MethodGet, "/supplier/address/7/"), "the list page is the only re-read")

	assert.Equal(t, []render.Toast{{Kind: render.ToastSuccess, Message: "Supplier successfully created!"}}, flashToasts(t, rec))

	follow := serve(srv, httptest.NewRequest(http.MethodGet, "/supplier", nil), access, cookieNamed(rec, flashCookie))
	require.Equal(t, http.StatusOK, follow.Code)
	assert.Contains(t, follow.Body.String(), "Supplier successfully created!")
	assert.Contains(t, follow.Body.String(), "Acme")
	assert.Len(t, up.called(http.MethodGet, "/supplier/"), 1)
}

func TestCreateSupplierSkipsUntouchedAddress(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("POST /supplier/", http.StatusCreated, `{"id": 8, "name": "Bolt Co"}`)

	body, contentType := multipartBody(t, [][2]string{
		{"name", "Bolt Co"},
		{render.NestedFieldPrefix + "address", "d1"},
		{"address-d1-street_address", ""},
	})
	req := httptest.NewRequest(http.MethodPost, "/supplier", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, up.called(http.MethodPost, "/supplier/address/8/"))
}

func TestCreateWithoutIDReportsDroppedDetails(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("POST /supplier/", http.StatusCreated, `{"name": "Acme"}`)

	body, contentType := multipartBody(t, [][2]string{
		{"name", "Acme"},
		{render.NestedFieldPrefix + "address", "d1"},
		{"address-d1-street_address", "1 Main St"},
	})
	req := httptest.NewRequest(http.MethodPost, "/supplier", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/supplier", rec.Header().Get("Location"))
	assert.Equal(t, []render.Toast{
		{Kind: render.ToastSuccess, Message: "Supplier successfully created!"},
		{Kind: render.ToastError, Message: "The related details could not be saved."},
	}, flashToasts(t, rec))
	assert.Len(t, up.called(http.MethodPost, "/supplier/"), 1)
	assert.Len(t, up.calls, 1)
}

func TestCreateFailureRerendersDialog(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("POST /supplier/", http.StatusBadRequest, `{"name": ["This field is required."]}`)
	up.on("GET /supplier/", http.StatusOK, `[]`)

	body, contentType := multipartBody(t, [][2]string{{"name", ""}, {"website", "acme.test"}})
	req := httptest.NewRequest(http.MethodPost, "/supplier/", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "This field is required.")
	assert.Contains(t, html, `value="acme.test"`)
	assert.Contains(t, html, `name="`+render.NestedFieldPrefix+`address"`)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/supplier", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestUnauthorizedUpstreamEndsSession(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("GET /supplier/", http.StatusUnauthorized, `{"detail": "Token is invalid or expired"}`)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/supplier", nil), &http.Cookie{Name: "access", Value: accessToken(t)})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, []render.Toast{{Kind: render.ToastError, Message: auth.SessionExpiredMessage}}, flashToasts(t, rec))
}

func TestDeleteFailureShowsGenericToast(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("DELETE /supplier/7/", http.StatusConflict, `{"detail": "Supplier has purchases."}`)

	form := url.Values{render.MethodFieldName: {http.MethodDelete}}
	req := httptest.NewRequest(http.MethodPost, "/supplier/7/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/supplier", rec.Header().Get("Location"))
	assert.Equal(t, []render.Toast{{Kind: render.ToastError, Message: DeleteFailedMessage}}, flashToasts(t, rec))
}

func TestUpdateRedirectsToNext(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("PATCH /supplier/7/", http.StatusOK, `{"id": 7, "name": "Acme Ltd"}`)

	body, contentType := multipartBody(t, [][2]string{
		{render.MethodFieldName, http.MethodPatch},
		{render.RedirectFieldName, "/supplier/7/edit"},
		{"name", "Acme Ltd"},
	})
	req := httptest.NewRequest(http.MethodPost, "/supplier/7/", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/supplier/7/edit", rec.Header().Get("Location"))
	patches := up.called(http.MethodPatch, "/supplier/7/")
	require.Len(t, patches, 1)
	assert.Equal(t, []string{"Acme Ltd"}, patches[0].Form["name"])
}

func TestEditPageShowsFormset(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("GET /supplier/7/", http.StatusOK, `{"id": 7, "name": "Acme"}`)
	up.on("GET /supplier/address/7/", http.StatusOK, `[{"id": 3, "street_address": "1 Main St", "city": "Moore", "state": "OK", "zip": "73160"}]`)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/supplier/7/edit?address=d9", nil), &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, `value="Acme"`)
	assert.Contains(t, html, "1 Main St")
	assert.Contains(t, html, `action="/supplier/7/address/3/"`)
	assert.Contains(t, html, `name="address-d9-street_address"`)
	assert.Contains(t, html, `action="/supplier/7/address/"`)
}

func TestDraftFailureKeepsErrors(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("POST /supplier/address/7/", http.StatusBadRequest, `{"zip": ["Enter a valid ZIP."]}`)
	up.on("GET /supplier/address/7/", http.StatusOK, `[]`)
	up.on("GET /supplier/7/", http.StatusOK, `{"id": 7, "name": "Acme"}`)

	body, contentType := multipartBody(t, [][2]string{
		{render.DraftFieldName, "d1"},
		{"address-d1-street_address", "1 Main St"},
		{"address-d1-zip", "x"},
	})
	req := httptest.NewRequest(http.MethodPost, "/supplier/7/address/", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid ZIP.")
	assert.Contains(t, rec.Body.String(), `value="1 Main St"`)
}

func TestDeleteOrderItemRendersRefreshedEdit(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("DELETE /order/item/5/9/", http.StatusNoContent, ``)
	up.on("GET /order/item/5/", http.StatusOK, `[{"id": 10, "description": "Washer", "quantity": 2, "price": 1.5}]`)
	up.on("GET /order/5/", http.StatusOK, `{"id": 5, "status": "pending", "total": 3}`)

	form := url.Values{render.MethodFieldName: {http.MethodDelete}}
	req := httptest.NewRequest(http.MethodPost, "/order/5/item/9/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	html := rec.Body.String()
	assert.Contains(t, html, "Item successfully deleted!")
	assert.Contains(t, html, "Washer")
	assert.Contains(t, html, `value="3"`)

	assert.Len(t, up.called(http.MethodDelete, "/order/item/5/9/"), 1)
	assert.Len(t, up.called(http.MethodGet, "/order/item/5/"), 1)
	assert.Len(t, up.called(http.MethodGet, "/order/5/"), 1)
}

func TestDraftSaveRendersNewRow(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("POST /supplier/address/7/", http.StatusCreated, `{"id": 3, "street_address": "1 Main St"}`)
	up.on("GET /supplier/address/7/", http.StatusOK, `[{"id": 3, "street_address": "1 Main St"}]`)
	up.on("GET /supplier/7/", http.StatusOK, `{"id": 7, "name": "Acme"}`)

	body, contentType := multipartBody(t, [][2]string{
		{render.DraftFieldName, "d1"},
		{"address-d1-street_address", "1 Main St"},
	})
	req := httptest.NewRequest(http.MethodPost, "/supplier/7/address/", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(srv, req, &http.Cookie{Name: "access", Value: accessToken(t)})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	html := rec.Body.String()
	assert.Contains(t, html, "Address successfully created!")
	assert.Contains(t, html, `action="/supplier/7/address/3/"`)
	assert.Len(t, up.called(http.MethodGet, "/supplier/address/7/"), 1)
	assert.Len(t, up.called(http.MethodGet, "/supplier/7/"), 1)
}

func TestContactEmailMismatchBlocksSubmit(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("GET /service/", http.StatusOK, `[{"id": 1, "name": "Plumbing"}]`)

	form := url.Values{
		"first_name":    {"Dana"},
		"last_name":     {"Smith"},
		"email":         {"dana@example.com"},
		"confirm_email": {"dana@example.org"},
		"service":       {"1"},
		"message":       {"Leaky tap"},
	}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), site.EmailMismatch)
	assert.Empty(t, up.called(http.MethodPost, "/contact/"))
}

func TestContactSubmitFlashesThanks(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("GET /service/", http.StatusOK, `[{"id": 1, "name": "Plumbing"}]`)
	up.on("POST /contact/", http.StatusCreated, `{}`)

	form := url.Values{
		"first_name":    {"Dana"},
		"last_name":     {"Smith"},
		"email":         {"dana@example.com"},
		"confirm_email": {"dana@example.com"},
		"phone":         {"14055551234"},
		"service":       {"1"},
		"message":       {"<b>Leaky</b> tap"},
	}
	req := httptest.NewRequest(http.MethodPost, "/contact/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	posts := up.called(http.MethodPost, "/contact/")
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].Auth)
	assert.Equal(t, []string{"Leaky tap"}, posts[0].Form["message"])
	assert.Equal(t, []string{"1 (405) 555-1234"}, posts[0].Form["phone"])
	assert.Equal(t, []render.Toast{{Kind: render.ToastSuccess, Message: site.ContactSuccessToast}}, flashToasts(t, rec))
}

func TestLogin(t *testing.T) {
	srv, up := newTestServer(t)
	token := accessToken(t)
	tokens, err := json.Marshal(map[string]string{"access": token, "refresh": "r1"})
	require.NoError(t, err)
	up.on("POST /token/", http.StatusOK, string(tokens))

	form := url.Values{"username": {"admin"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	require.NotNil(t, cookieNamed(rec, "access"))
	assert.Equal(t, token, cookieNamed(rec, "access").Value)
	assert.Equal(t, "r1", cookieNamed(rec, "refresh").Value)
}

func TestLoginRejected(t *testing.T) {
	srv, up := newTestServer(t)
	up.on("POST /token/", http.StatusUnauthorized, `{"detail": "No active account found with the given credentials"}`)

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := serve(srv, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "No active account found with the given credentials")
	assert.NotContains(t, rec.Body.String(), `value="wrong"`)
	assert.Nil(t, cookieNamed(rec, "access"))
}

func TestDashboardRedirectsToFirstResource(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/dashboard", nil), &http.Cookie{Name: "access", Value: accessToken(t)})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/"+srv.catalog.Resources()[0].Name, rec.Header().Get("Location"))
}

func TestPublicPages(t *testing.T) {
	srv, _ := newTestServer(t)

	home := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Handy Help for Every Home")
	assert.Contains(t, home.Body.String(), `href="/contact"`)
	assert.Contains(t, home.Body.String(), "--ha-brand")

	missing := serve(srv, httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)

	css := serve(srv, httptest.NewRequest(http.MethodGet, StaticPrefix+"/handyadmin.css", nil))
	assert.Equal(t, http.StatusOK, css.Code)
	assert.NotEmpty(t, css.Header().Get(RequestIDHeader))
}
