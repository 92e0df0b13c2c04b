package db

import (
	"database/sql"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
)

type Tx struct {
	tx    *sql.Tx
	store *Store
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
// It updates the user's ID field when successful.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(t.tx.Exec, u)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(t.tx.Query, filter)
}

// UpdateUser partially updates a user in the database. Only the named
// fields and the updated_at timestamp change.
// It returns errorz.ErrNotFound if no user is found and
// errorz.ErrInvalidField for field names that are not User attributes.
func (t *Tx) UpdateUser(id int, fields auth.UserFields) error {
	return updateUser(t.tx.Exec, id, fields, t.store.nowFunc())
}
