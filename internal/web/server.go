// Package web exposes the authentication service over HTTP.
package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
	"github.com/gatehouse-auth/gatehouse/internal/errorz"
)

// DefaultSessionCookie is the cookie that carries the session token.
const DefaultSessionCookie = "session_id"

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger        *slog.Logger
	AuthService   *auth.Service
	Authenticator auth.Authenticator
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	// SessionCookie is the name of the session cookie, defaults to
	// DefaultSessionCookie.
	SessionCookie string
	// SecureCookie marks issued cookies as https-only.
	SecureCookie bool
}

type Server struct {
	deps    *ServerDeps
	cfg     ServerConfig
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = DefaultSessionCookie
	}

	s := &Server{
		deps:    deps,
		cfg:     cfg,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	s.decoder.IgnoreUnknownKeys(true)

	s.mux.Handle("GET /{$}", http.HandlerFunc(s.welcome))
	s.mux.Handle("POST /users", http.HandlerFunc(s.registerUser))
	s.mux.Handle("POST /sessions", http.HandlerFunc(s.login))
	s.mux.Handle("DELETE /sessions", http.HandlerFunc(s.logout))
	s.mux.Handle("GET /profile", http.HandlerFunc(s.profile))
	s.mux.Handle("POST /reset_password", http.HandlerFunc(s.requestPasswordReset))
	s.mux.Handle("PUT /reset_password", http.HandlerFunc(s.updatePassword))

	s.handler = s.authenticate(s.mux)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleError writes the error response the client contract expects.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid errorz.InvalidInput

	switch {
	case errors.As(err, &invalid):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Bad request"})
	case errors.Is(err, auth.ErrDuplicateUser):
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
	case errors.Is(err, auth.ErrUnknownUser), errors.Is(err, auth.ErrInvalidToken):
		s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
	case errors.Is(err, errorz.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	default:
		s.deps.Logger.Error("internal server error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
