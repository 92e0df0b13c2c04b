package auth

import (
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

// User contains the data for a registered user.
type User struct {
	ID           int
	Email        email.Address
	PasswordHash krypto.Argon2Hash

	// SessionID is the active session token, nil when the user is
	// logged out. A user has at most one active session, a new login
	// overwrites the previous session.
	SessionID *krypto.Token

	// ResetToken is the pending password reset token, nil when no
	// reset was requested. It is cleared when the reset is consumed.
	ResetToken *krypto.Token

	CreatedAt time.Time
	UpdatedAt time.Time
}
