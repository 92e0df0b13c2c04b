package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
	"github.com/gatehouse-auth/gatehouse/internal/db"
	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/errorz"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertUser(ef execFunc, u *auth.User) error {
	var q db.Query

	q.Unsafe(`INSERT INTO users (email, password_hash, session_id, reset_token, created_at, updated_at) VALUES (`)
	q.Params(
		string(u.Email),
		u.PasswordHash.String(),
		tokenParam(u.SessionID),
		tokenParam(u.ResetToken),
		u.CreatedAt,
		u.UpdatedAt,
	)
	q.Unsafe(`)`)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	u.ID = int(id)

	return nil
}

// userColumns maps the recognized update field names to their columns,
// in the order the SET clause is built.
var userColumns = []string{
	auth.FieldEmail,
	auth.FieldPasswordHash,
	auth.FieldSessionID,
	auth.FieldResetToken,
}

func updateUser(ef execFunc, id int, fields auth.UserFields, now time.Time) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update: %w", errorz.ErrInvalidField)
	}

	for name := range fields {
		if !recognizedField(name) {
			return fmt.Errorf("%q is not a user attribute: %w", name, errorz.ErrInvalidField)
		}
	}

	var q db.Query
	q.Unsafe(`UPDATE users SET `)

	for _, name := range userColumns {
		v, ok := fields[name]
		if !ok {
			continue
		}

		param, err := fieldParam(name, v)
		if err != nil {
			return err
		}

		q.Unsafe(name)
		q.Unsafe(` = `)
		q.Param(param)
		q.Unsafe(`, `)
	}

	q.Unsafe(`updated_at = `)
	q.Param(now)

	q.Unsafe(` WHERE id = `)
	q.Param(id)

	s, params := q.Get()

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectUsers(qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	var q db.Query
	q.Unsafe(`SELECT id, email, password_hash, session_id, reset_token, created_at, updated_at FROM users WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		q.Params(stringSlice(f.Emails)...)
		q.Unsafe(`) `)
	}

	if len(f.SessionIDs) > 0 {
		q.Unsafe(`AND session_id IN (`)
		q.Params(stringSlice(f.SessionIDs)...)
		q.Unsafe(`) `)
	}

	if len(f.ResetTokens) > 0 {
		q.Unsafe(`AND reset_token IN (`)
		q.Params(stringSlice(f.ResetTokens)...)
		q.Unsafe(`) `)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var (
			u          auth.User
			addr       string
			sessionID  sql.NullString
			resetToken sql.NullString
		)

		err := rows.Scan(&u.ID, &addr, &u.PasswordHash, &sessionID, &resetToken, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		u.Email, err = email.ParseAddress(addr)
		if err != nil {
			return nil, err
		}

		u.SessionID = tokenValue(sessionID)
		u.ResetToken = tokenValue(resetToken)

		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func recognizedField(name string) bool {
	for _, col := range userColumns {
		if name == col {
			return true
		}
	}
	return false
}

// fieldParam converts an update field value to its bind parameter.
func fieldParam(name string, v any) (any, error) {
	switch name {
	case auth.FieldEmail:
		addr, ok := v.(email.Address)
		if !ok {
			return nil, fmt.Errorf("field %q: unsupported value type %T", name, v)
		}
		return string(addr), nil
	case auth.FieldPasswordHash:
		hash, ok := v.(krypto.Argon2Hash)
		if !ok {
			return nil, fmt.Errorf("field %q: unsupported value type %T", name, v)
		}
		return hash.String(), nil
	case auth.FieldSessionID, auth.FieldResetToken:
		switch tok := v.(type) {
		case nil:
			return nil, nil
		case krypto.Token:
			return string(tok), nil
		case *krypto.Token:
			return tokenParam(tok), nil
		}
		return nil, fmt.Errorf("field %q: unsupported value type %T", name, v)
	}

	return nil, fmt.Errorf("%q is not a user attribute: %w", name, errorz.ErrInvalidField)
}

func tokenParam(tok *krypto.Token) any {
	if tok == nil {
		return nil
	}
	return string(*tok)
}

func tokenValue(v sql.NullString) *krypto.Token {
	if !v.Valid {
		return nil
	}

	tok := krypto.Token(v.String)
	return &tok
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}

// stringSlice converts string-like values to plain strings, the SQLite
// driver does not bind named string types.
func stringSlice[T ~string](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, string(v))
	}
	return out
}
