package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/errorz"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

func (s *Server) welcome(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Bienvenue"})
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	addr, pwd, err := s.credentialsForm(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	user, err := s.deps.AuthService.Register(r.Context(), addr, pwd)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"email":   user.Email.String(),
		"message": "user created",
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	addr, pwd, err := s.credentialsForm(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	ok, err := s.deps.AuthService.ValidLogin(r.Context(), addr, pwd)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	token, ok, err := s.deps.AuthService.CreateSession(r.Context(), addr)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if !ok {
		// The user disappeared between the credential check and the
		// session creation.
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    token.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	s.writeJSON(w, http.StatusOK, map[string]string{
		"email":   addr.String(),
		"message": "logged in",
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.identity(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if !ok {
		s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	}

	err = s.deps.AuthService.DestroySession(r.Context(), user.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // Setting the age in the past will delete the cookie.
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.identity(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	if !ok {
		s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"email": user.Email.String()})
}

func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email email.Address `schema:"email"`
	}

	if err := s.decodeForm(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	token, err := s.deps.AuthService.IssueResetToken(r.Context(), in.Email)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"email":       in.Email.String(),
		"reset_token": token.String(),
	})
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email       email.Address `schema:"email"`
		ResetToken  string        `schema:"reset_token"`
		NewPassword string        `schema:"new_password"`
	}

	if err := s.decodeForm(r, &in); err != nil {
		s.handleError(w, r, err)
		return
	}

	pwd, err := auth.ParsePassword(in.NewPassword)
	if err != nil {
		s.handleError(w, r, errorz.InvalidInput{errorz.Keyed{Key: "new_password", Err: err}})
		return
	}

	err = s.deps.AuthService.ConsumeResetToken(r.Context(), krypto.Token(in.ResetToken), pwd)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"email":   in.Email.String(),
		"message": "Password updated",
	})
}

// credentialsForm decodes and validates an email/password form.
func (s *Server) credentialsForm(r *http.Request) (email.Address, auth.Password, error) {
	var in struct {
		Email    email.Address `schema:"email"`
		Password string        `schema:"password"`
	}

	if err := s.decodeForm(r, &in); err != nil {
		return "", auth.Password{}, err
	}

	pwd, err := auth.ParsePassword(in.Password)
	if err != nil {
		return "", auth.Password{}, errorz.InvalidInput{errorz.Keyed{Key: "password", Err: err}}
	}

	return in.Email, pwd, nil
}

// decodeForm decodes a form encoded request body into dst.
// Decoding failures are client errors, they are wrapped in
// errorz.InvalidInput with the offending field names.
func (s *Server) decodeForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return errorz.InvalidInput{err}
	}

	err := s.decoder.Decode(dst, r.PostForm)
	if err == nil {
		return nil
	}

	var multi schema.MultiError
	if errors.As(err, &multi) {
		invalid := make(errorz.InvalidInput, 0, len(multi))
		for key, fieldErr := range multi {
			invalid = append(invalid, errorz.Keyed{Key: key, Err: fieldErr})
		}
		return invalid
	}

	return errorz.InvalidInput{err}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.deps.Logger.Error("failed to encode response body", "error", err)
	}
}
