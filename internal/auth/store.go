package auth

import (
	"context"

	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

// UserFilter is used to filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
//
// All filterable fields are unique, so any single-valued filter matches
// at most one user.
type UserFilter struct {
	IDs         []int
	Emails      []email.Address
	SessionIDs  []krypto.Token
	ResetTokens []krypto.Token
}

// Recognized field names for partial updates via Tx.UpdateUser.
const (
	FieldEmail        = "email"
	FieldPasswordHash = "password_hash"
	FieldSessionID    = "session_id"
	FieldResetToken   = "reset_token"
)

// UserFields maps field names to their new values for a partial update.
// Only the named fields change. Using a field name that is not one of
// the Field constants is a programmer error and fails the update with
// errorz.ErrInvalidField.
type UserFields map[string]any

// Store provides access to the user store.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction. If an error occurs on any of the Create/Update/Find
// methods, the transaction is considered to have failed and should be rolled
// back. Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	// CreateUser creates a user and assigns its ID.
	CreateUser(u *User) error
	// FindUsers queries for users matching the filter. It returns an
	// empty slice if no users match.
	FindUsers(filter *UserFilter) ([]User, error)
	// UpdateUser partially updates the user with the given id. It
	// returns errorz.ErrNotFound if no such user exists and
	// errorz.ErrInvalidField for unrecognized field names.
	UpdateUser(id int, fields UserFields) error
}
