package web

import (
	"context"
	"net/http"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

// authenticate gates requests behind the configured Authenticator.
//
// Paths the authenticator excludes pass through untouched. For all
// other paths: no credentials at all is 401, credentials that don't
// resolve to a user is 403. A resolved user is attached to the request
// context.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.Authenticator.RequiresAuth(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		rm := s.requestMeta(r)

		if rm.AuthorizationHeader == "" && rm.SessionToken == "" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}

		user, ok, err := s.deps.Authenticator.ResolveIdentity(r.Context(), rm)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if !ok {
			s.writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestMeta extracts the authentication material from a request.
func (s *Server) requestMeta(r *http.Request) auth.RequestMeta {
	rm := auth.RequestMeta{
		AuthorizationHeader: r.Header.Get("Authorization"),
	}

	if cookie, err := r.Cookie(s.cfg.SessionCookie); err == nil {
		rm.SessionToken = cookie.Value
	}

	return rm
}

// identity returns the user for the current request. It prefers the
// user resolved by the authenticate middleware and falls back to
// resolving the session cookie for excluded paths.
func (s *Server) identity(r *http.Request) (auth.User, bool, error) {
	if user, ok := UserFromContext(r.Context()); ok {
		return user, true, nil
	}

	rm := s.requestMeta(r)
	user, ok, err := s.deps.AuthService.ResolveSession(r.Context(), krypto.Token(rm.SessionToken))
	if err != nil {
		return auth.User{}, false, err
	}

	return user, ok, nil
}

type ctxKey string

const userKey ctxKey = "gatehouseUser"

func ContextWithUser(ctx context.Context, user auth.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userKey).(auth.User)
	if !ok {
		return auth.User{}, false
	}

	return user, true
}
