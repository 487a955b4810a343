package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authv1 "ztcp-auth/api/auth/v1"
	"ztcp-auth/internal/identity/service"
)

func doJSON(t *testing.T, h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_Login(t *testing.T) {
	stub := &stubAuth{}
	h := NewHTTPHandler(stub, zerolog.Nop(), nil)

	rec := doJSON(t, h, "/v1/auth/login", `{"name":"alice","password":"pw"}`, map[string]string{"User-Agent": "browser/1.0"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var res authv1.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "access-alice", res.AccessToken)
	assert.Equal(t, "csrf-1", res.CSRFToken)
	assert.Equal(t, "alice", res.User.Name)
	assert.Equal(t, "browser/1.0", stub.userAgent)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"accessToken", "refreshToken", "csrfToken", "user"} {
		assert.Contains(t, raw, key)
	}
}

func TestHTTP_RefreshAndLogout(t *testing.T) {
	stub := &stubAuth{}
	h := NewHTTPHandler(stub, zerolog.Nop(), nil)

	rec := doJSON(t, h, "/v1/auth/refresh", `{"refreshToken":"refresh-1"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res authv1.RefreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "refresh-2", res.RefreshToken)

	rec = doJSON(t, h, "/v1/auth/logout", `{"refreshToken":"refresh-2"}`, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "refresh-2", stub.refreshToken)
}

func TestHTTP_ErrorMapping(t *testing.T) {
	testCases := []struct {
		err  error
		code int
		msg  string
	}{
		{service.ErrValidation, http.StatusBadRequest, "invalid request"},
		{service.ErrUnauthorized, http.StatusUnauthorized, "invalid credentials"},
		{service.ErrAccountLocked, http.StatusUnauthorized, "account locked"},
		{service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{errors.New("redis: connection pool timeout"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range testCases {
		t.Run(tc.msg, func(t *testing.T) {
			h := NewHTTPHandler(&stubAuth{err: tc.err}, zerolog.Nop(), nil)
			rec := doJSON(t, h, "/v1/auth/refresh", `{"refreshToken":"x"}`, nil)
			assert.Equal(t, tc.code, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body["error"])
		})
	}
}

func TestHTTP_BadBody(t *testing.T) {
	h := NewHTTPHandler(&stubAuth{}, zerolog.Nop(), nil)
	for _, body := range []string{`{`, `{"name":"alice","extra":1}`, ``} {
		rec := doJSON(t, h, "/v1/auth/login", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	h := NewHTTPHandler(&stubAuth{}, zerolog.Nop(), nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTP_NilService(t *testing.T) {
	h := NewHTTPHandler(nil, zerolog.Nop(), nil)
	rec := doJSON(t, h, "/v1/auth/logout", `{"refreshToken":"x"}`, nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHTTP_CORS(t *testing.T) {
	h := NewHTTPHandler(&stubAuth{}, zerolog.Nop(), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTP_CORSAllowedHeaders(t *testing.T) {
	h := NewHTTPHandler(&stubAuth{}, zerolog.Nop(), []string{"https://app.example.com"})
	preflight := func(headers string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/v1/auth/refresh", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", headers)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("authorization,content-type")
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	// No route reads a CSRF header, so browsers are not told it is accepted.
	rec = preflight("x-csrf-token")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
