package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) NotifyRecoveryCode(_ context.Context, handle, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.codes == nil {
		b.codes = make(map[string]string)
	}
	b.codes[handle] = code
	return nil
}

func (b *codeBox) get(handle string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[handle]
}

type testServer struct {
	router *gin.Engine
	engine *goAccount.Engine
	codes  *codeBox
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := goAccount.DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Recovery.SweepInterval = 0

	codes := &codeBox{}
	engine, err := goAccount.New().WithConfig(cfg).WithRecoveryNotifier(codes).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	sessions, err := jwt.NewManager(jwt.Config{
		TTL:           time.Hour,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goaccount-test",
	})
	require.NoError(t, err)

	router, err := New(engine, sessions, nil, opts).Router()
	require.NoError(t, err)

	return &testServer{router: router, engine: engine, codes: codes}
}

type call struct {
	method  string
	path    string
	body    any
	session string
	ip      string
	bearer  bool
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	method := c.method
	if method == "" {
		method = http.MethodPost
	}
	req := httptest.NewRequest(method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.ip != "" {
		req.RemoteAddr = c.ip + ":4000"
	}
	if c.session != "" {
		if c.bearer {
			req.Header.Set("Authorization", "Bearer "+c.session)
		} else {
			req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: c.session})
		}
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// login returns the session token issued for handle.
func (s *testServer) login(t *testing.T, handle, password string) string {
	t.Helper()
	rec := s.do(t, call{path: "/api/users/login", body: loginRequest{Handle: handle, Password: password}, ip: "10.9.9.9"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == DefaultCookieName {
			return ck.Value
		}
	}
	t.Fatalf("login for %q set no session cookie", handle)
	return ""
}

// bootstrap creates root (admin, password "rootpass") and bob (passwordless).
func (s *testServer) bootstrap(t *testing.T) string {
	t.Helper()
	rec := s.do(t, call{path: "/api/users/create", body: createRequest{Handle: "root", Name: "Root", Password: "rootpass"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	root := s.login(t, "root", "rootpass")
	rec = s.do(t, call{path: "/api/users/create", body: createRequest{Handle: "bob", Name: "Bob"}, session: root})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return root
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestLoginSetsSessionCookie(t *testing.T) {
	s := newTestServer(t, Options{})
	s.bootstrap(t)

	rec := s.do(t, call{path: "/api/users/login", body: loginRequest{Handle: "ROOT", Password: "rootpass"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"handle":"root"}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)

	me := s.do(t, call{method: http.MethodGet, path: "/api/users/me", session: cookies[0].Value})
	require.Equal(t, http.StatusOK, me.Code)

	var view goAccount.AccountView
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &view))
	require.Equal(t, "root", view.Handle)
	require.True(t, view.Admin)
	require.True(t, view.HasPassword)
	require.NotContains(t, me.Body.String(), "salt")
}

func TestLoginCollapsesFailures(t *testing.T) {
	s := newTestServer(t, Options{})
	root := s.bootstrap(t)

	rec := s.do(t, call{path: "/api/users/disable", body: handleRequest{Handle: "bob"}, session: root})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	for _, req := range []loginRequest{
		{Handle: "ghost", Password: "x"},
		{Handle: "root", Password: "wrong"},
		{Handle: "bob"},
	} {
		rec := s.do(t, call{path: "/api/users/login", body: req})
		require.Equal(t, http.StatusForbidden, rec.Code, req.Handle)
		require.Equal(t, msgIncorrectCredentials, errorOf(t, rec), req.Handle)
		require.Empty(t, rec.Result().Cookies())
	}

	rec = s.do(t, call{path: "/api/users/login", body: loginRequest{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRateLimitedPerAddress(t *testing.T) {
	s := newTestServer(t, Options{})
	s.bootstrap(t)

	for i := 0; i < 5; i++ {
		rec := s.do(t, call{path: "/api/users/login", body: loginRequest{Handle: "root", Password: "bad"}, ip: "10.0.0.7"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	}
	rec := s.do(t, call{path: "/api/users/login", body: loginRequest{Handle: "root", Password: "rootpass"}, ip: "10.0.0.7"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(t, call{path: "/api/users/login", body: loginRequest{Handle: "root", Password: "rootpass"}, ip: "10.0.0.8"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryOverHTTP(t *testing.T) {
	s := newTestServer(t, Options{})
	s.bootstrap(t)

	rec := s.do(t, call{path: "/api/users/recover-step1", body: handleRequest{Handle: "ghost"}})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{path: "/api/users/recover-step1", body: handleRequest{Handle: "root"}})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())

	code := s.codes.get("root")
	require.NotEmpty(t, code)
	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}

	rec = s.do(t, call{path: "/api/users/recover-step2", body: recoverRequest{Handle: "root", Code: wrong, NewPassword: "newpass"}})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{path: "/api/users/recover-step2", body: recoverRequest{Handle: "root", Code: code, NewPassword: "newpass"}})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	s.login(t, "root", "newpass")

	rec = s.do(t, call{path: "/api/users/recover-step2", body: recoverRequest{Handle: "root", Code: code, NewPassword: "again"}, ip: "10.0.0.9"})
	require.Equal(t, http.StatusForbidden, rec.Code, "codes are single use")
}

func TestPublicListAndDiscreetMode(t *testing.T) {
	s := newTestServer(t, Options{})
	s.bootstrap(t)

	rec := s.do(t, call{path: "/api/users/list"})
	require.Equal(t, http.StatusOK, rec.Code)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	hasPassword := map[string]any{}
	for _, v := range views {
		require.NotContains(t, v, "admin")
		hasPassword[v["handle"].(string)] = v["password"]
	}
	require.Equal(t, map[string]any{"root": true, "bob": false}, hasPassword)

	discreet := newTestServer(t, Options{Discreet: true})
	discreet.bootstrap(t)
	rec = discreet.do(t, call{path: "/api/users/list"})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPrivateEndpointsRequireSession(t *testing.T) {
	s := newTestServer(t, Options{})
	s.bootstrap(t)

	for _, c := range []call{
		{method: http.MethodGet, path: "/api/users/me"},
		{path: "/api/users/change-name", body: changeNameRequest{Handle: "root", Name: "x"}},
		{path: "/api/users/get", body: goAccount.ListQuery{}},
		{path: "/api/users/delete", body: deleteRequest{Handle: "bob"}},
		{method: http.MethodGet, path: "/api/users/me", session: "not-a-token"},
	} {
		rec := s.do(t, c)
		require.Equal(t, http.StatusUnauthorized, rec.Code, c.path)
	}

	rec := s.do(t, call{path: "/api/users/create", body: createRequest{Handle: "eve"}})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSelfServiceChanges(t *testing.T) {
	s := newTestServer(t, Options{})
	s.bootstrap(t)
	bob := s.login(t, "bob", "")

	rec := s.do(t, call{path: "/api/users/change-name", body: changeNameRequest{Handle: "bob", Name: "Robert"}, session: bob})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, call{path: "/api/users/change-avatar", body: changeAvatarRequest{Handle: "root", Avatar: "x"}, session: bob})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{path: "/api/users/change-password", body: changePasswordRequest{Handle: "bob", NewPassword: "bobpass"}, session: bob})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, call{path: "/api/users/change-password", body: changePasswordRequest{Handle: "bob", OldPassword: "nope", NewPassword: "other"}, session: bob})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/users/me", session: bob, bearer: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Robert"`)
	require.Contains(t, rec.Body.String(), `"password":true`)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t, Options{})
	root := s.bootstrap(t)
	bob := s.login(t, "bob", "")

	rec := s.do(t, call{path: "/api/users/get", body: goAccount.ListQuery{}, session: bob})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{path: "/api/users/get", body: goAccount.ListQuery{Page: 1, PageSize: 1, Search: "o"}, session: root})
	require.Equal(t, http.StatusOK, rec.Code)
	var page goAccount.AccountPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, 2, page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Accounts, 1)

	rec = s.do(t, call{path: "/api/users/get", session: root})
	require.Equal(t, http.StatusOK, rec.Code, "empty body uses default paging")

	rec = s.do(t, call{path: "/api/users/promote", body: handleRequest{Handle: "bob"}, session: root})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, call{path: "/api/users/get", body: goAccount.ListQuery{}, session: bob})
	require.Equal(t, http.StatusOK, rec.Code, "promotion applies to the existing session")

	rec = s.do(t, call{path: "/api/users/demote", body: handleRequest{Handle: "root"}, session: root})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, call{path: "/api/users/enable", body: handleRequest{Handle: "ghost"}, session: root})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{path: "/api/users/delete", body: deleteRequest{Handle: "root"}, session: root})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, call{path: "/api/users/delete", body: deleteRequest{Handle: "bob"}, session: root})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, call{path: "/api/users/delete", body: deleteRequest{Handle: "bob"}, session: root})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/users/me", session: bob})
	require.Equal(t, http.StatusUnauthorized, rec.Code, "sessions of deleted accounts stop working")
}

func TestCreateDuplicateConflicts(t *testing.T) {
	s := newTestServer(t, Options{})
	root := s.bootstrap(t)

	rec := s.do(t, call{path: "/api/users/create", body: createRequest{Handle: "Bob"}, session: root})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, call{path: "/api/users/create", body: createRequest{Handle: "!!!"}, session: root})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(t, call{path: "/api/users/logout"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThrottle(t *testing.T) {
	s := newTestServer(t, Options{RequestsPerSecond: 0.001, Burst: 1})

	rec := s.do(t, call{path: "/api/users/logout"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, call{path: "/api/users/logout"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRequestIDAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("goaccount_login_success_total 0\n"))
	})
	s := newTestServer(t, Options{Metrics: metrics})

	rec := s.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "goaccount_login_success_total")
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		goAccount.ErrInvalidHandle:       http.StatusBadRequest,
		goAccount.ErrFallbackAccount:     http.StatusBadRequest,
		goAccount.ErrPasswordPolicy:      http.StatusBadRequest,
		goAccount.ErrUnauthorized:        http.StatusUnauthorized,
		goAccount.ErrRecoveryCodeInvalid: http.StatusForbidden,
		goAccount.ErrAccountNotFound:     http.StatusNotFound,
		goAccount.ErrAccountExists:       http.StatusConflict,
		goAccount.ErrRecoveryRateLimited: http.StatusTooManyRequests,
		goAccount.ErrStoreUnavailable:    http.StatusInternalServerError,
		goAccount.ErrPurgeFailed:         http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, statusOf(err), err.Error())
	}
}
