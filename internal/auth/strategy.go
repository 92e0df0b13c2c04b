package auth

import (
	"context"
	"fmt"

	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

// RequestMeta carries the authentication material of a single request.
// The HTTP layer fills it in, this package never reads request objects.
type RequestMeta struct {
	// AuthorizationHeader is the raw Authorization header value, empty
	// when the header was not provided.
	AuthorizationHeader string
	// SessionToken is the session cookie value, empty when the cookie
	// was not provided.
	SessionToken string
}

// Authenticator decides whether a path needs authentication and
// resolves an identity from request metadata. Failure to resolve is not
// an error, only the store misbehaving is.
type Authenticator interface {
	RequiresAuth(path string) bool
	ResolveIdentity(ctx context.Context, rm RequestMeta) (User, bool, error)
}

// Kind selects an Authenticator implementation. It is resolved once at
// startup from configuration.
type Kind string

const (
	KindNone    Kind = "none"
	KindBasic   Kind = "basic"
	KindSession Kind = "session"
)

// ParseKind parses a configured authentication kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindNone, KindBasic, KindSession:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("unknown auth kind %q", raw)
}

// NewAuthenticator creates the Authenticator for the given kind.
// The excluded paths are the exclusion rules used by RequiresAuth.
func NewAuthenticator(kind Kind, excluded []string, svc *Service) (Authenticator, error) {
	switch kind {
	case KindNone:
		return NoAuth{}, nil
	case KindBasic:
		return &BasicAuthenticator{svc: svc, excluded: excluded}, nil
	case KindSession:
		return &SessionAuthenticator{svc: svc, excluded: excluded}, nil
	}
	return nil, fmt.Errorf("unknown auth kind %q", kind)
}

// NoAuth never requires authentication and never resolves an identity.
type NoAuth struct{}

func (NoAuth) RequiresAuth(string) bool {
	return false
}

func (NoAuth) ResolveIdentity(context.Context, RequestMeta) (User, bool, error) {
	return User{}, false, nil
}

// BasicAuthenticator resolves identities from Basic Authorization
// headers.
type BasicAuthenticator struct {
	svc      *Service
	excluded []string
}

func (a *BasicAuthenticator) RequiresAuth(path string) bool {
	return RequiresAuth(path, a.excluded)
}

func (a *BasicAuthenticator) ResolveIdentity(ctx context.Context, rm RequestMeta) (User, bool, error) {
	token, ok := ExtractBasicToken(rm.AuthorizationHeader)
	if !ok {
		return User{}, false, nil
	}

	decoded, ok := DecodeToken(token)
	if !ok {
		return User{}, false, nil
	}

	rawAddr, rawPwd, ok := SplitCredentials(decoded)
	if !ok {
		return User{}, false, nil
	}

	// Credentials that won't parse can't belong to a registered user.
	addr, err := email.ParseAddress(rawAddr)
	if err != nil {
		return User{}, false, nil
	}

	pwd, err := ParsePassword(rawPwd)
	if err != nil {
		return User{}, false, nil
	}

	return a.svc.Authenticate(ctx, addr, pwd)
}

// SessionAuthenticator resolves identities from session cookies.
type SessionAuthenticator struct {
	svc      *Service
	excluded []string
}

func (a *SessionAuthenticator) RequiresAuth(path string) bool {
	return RequiresAuth(path, a.excluded)
}

func (a *SessionAuthenticator) ResolveIdentity(ctx context.Context, rm RequestMeta) (User, bool, error) {
	return a.svc.ResolveSession(ctx, krypto.Token(rm.SessionToken))
}
