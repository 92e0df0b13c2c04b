package krypto

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is an opaque identifier issued for sessions and password resets.
//
// Tokens are confidential, they prove an identity to the server. They
// should never be exposed in logs. The only party that gets to see a
// token in plaintext is the client it was issued to.
type Token string

// GenerateToken creates a new random token. Two calls returning the same
// token is considered cryptographically negligible.
func GenerateToken() (Token, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return Token(id.String()), nil
}

// ParseToken checks that raw is shaped like a previously issued token.
func ParseToken(raw string) (Token, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidToken
	}
	return Token(id.String()), nil
}

// String returns the plaintext token. As opposed to a Password this is
// allowed, tokens need to travel to the client in cookies and responses.
func (t Token) String() string {
	return string(t)
}

// LogValue implements the slog.Valuer interface.
func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
