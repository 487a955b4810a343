package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	authv1 "ztcp-auth/api/auth/v1"
	"ztcp-auth/internal/identity/service"
)

const maxBodyBytes = 1 << 20

// HTTPHandler serves the auth use cases as JSON over HTTP.
type HTTPHandler struct {
	auth   AuthService
	logger zerolog.Logger
}

// NewHTTPHandler returns the /v1/auth/* routes wrapped with request logging and CORS.
// An empty allowedOrigins list disables cross-origin requests.
func NewHTTPHandler(auth AuthService, logger zerolog.Logger, allowedOrigins []string) http.Handler {
	h := &HTTPHandler{auth: auth, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", h.login)
	mux.HandleFunc("POST /v1/auth/refresh", h.refresh)
	mux.HandleFunc("POST /v1/auth/logout", h.logout)
	return withCORS(allowedOrigins, h.withLogger(mux))
}

func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return h
	}
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return middleware.Handler(h)
}

// withLogger attaches a request-scoped logger to the context and logs each request.
func (h *HTTPHandler) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		logger := h.logger.With().
			Str("request_id", uuid.New().String()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(logger.WithContext(r.Context())))
		logger.Info().Int("status", rec.status).Dur("duration", time.Since(started)).Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *HTTPHandler) login(w http.ResponseWriter, r *http.Request) {
	var req authv1.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if h.auth == nil {
		writeError(w, http.StatusNotImplemented, "not implemented")
		return
	}
	res, err := h.auth.Login(r.Context(), req.Name, req.Password, r.UserAgent())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse(res))
}

func (h *HTTPHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req authv1.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	if h.auth == nil {
		writeError(w, http.StatusNotImplemented, "not implemented")
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken, r.UserAgent())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &authv1.RefreshResponse{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken, ExpiresAt: res.ExpiresAt})
}

func (h *HTTPHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req authv1.LogoutRequest
	if !decode(w, r, &req) {
		return
	}
	if h.auth == nil {
		writeError(w, http.StatusNotImplemented, "not implemented")
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := httpStatus(err)
	if code == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("auth request failed")
	}
	writeError(w, code, msg)
}

// httpStatus maps service errors to an HTTP status and a client-safe message.
func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, service.ErrAccountLocked):
		return http.StatusUnauthorized, "account locked"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
