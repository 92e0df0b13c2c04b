package db_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
	"github.com/gatehouse-auth/gatehouse/internal/auth/db"
	"github.com/gatehouse-auth/gatehouse/internal/db/testdb"
	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/errorz"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

const (
	testHash1 = "$argon2id$v=19$m=47104,t=1,p=1$vYkhLIHbrAs59nRcAbrHsw$ISM9bfHHnHKYNmmKyZGcRstvJMSuOJhiqCKy0p5oTTQ"
	testHash2 = "$argon2id$v=19$m=47104,t=1,p=1$CkX5zzYLJMWm0y/17eScyw$Qfah+NewdsdeF0+iV72mShZhRO93Qwzdj17TUZCH6ZU"
)

func Test_Tx_CreateUser(t *testing.T) {
	t.Run("ok, create user", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		user := testUser(t, nil)

		err = tx.CreateUser(&user)
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		want := testUser(t, func(u *auth.User) {
			// The store should assign an id.
			u.ID = 1
		})

		if !reflect.DeepEqual(user, want) {
			t.Errorf("got\n%#v\nwant\n%#v\n", user, want)
		}

		assertFindUser(t, tx, want)

		err = tx.Commit()
		if err != nil {
			t.Fatalf("failed to commit tx: %v", err)
		}
	})

	t.Run("fail, duplicate email", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		user := testUser(t, nil)
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		dup := testUser(t, nil)
		err = tx.CreateUser(&dup)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})

	t.Run("fail, duplicate session id", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		token := must(krypto.GenerateToken())

		user := testUser(t, func(u *auth.User) {
			u.SessionID = &token
		})
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		other := testUser(t, func(u *auth.User) {
			u.Email = must(email.ParseAddress("jacob@example.com"))
			u.SessionID = &token
		})

		err = tx.CreateUser(&other)
		if !errors.Is(err, errorz.ErrConstraintViolated) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrConstraintViolated, err)
		}
	})
}

func Test_Tx_UpdateUser(t *testing.T) {
	t.Run("ok, update single field", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		user := testUser(t, nil)
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		token := must(krypto.GenerateToken())

		err = tx.UpdateUser(user.ID, auth.UserFields{
			auth.FieldSessionID: &token,
		})
		if err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		want := testUser(t, func(u *auth.User) {
			u.ID = user.ID
			u.SessionID = &token
			u.UpdatedAt = now(t, 1) // The store should bump the UpdatedAt field.
		})

		assertFindUser(t, tx, want)
	})

	t.Run("ok, update multiple fields", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		token := must(krypto.GenerateToken())

		user := testUser(t, func(u *auth.User) {
			u.ResetToken = &token
		})
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		err = tx.UpdateUser(user.ID, auth.UserFields{
			auth.FieldPasswordHash: argon2Hash(t, testHash2),
			auth.FieldResetToken:   (*krypto.Token)(nil),
		})
		if err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		want := testUser(t, func(u *auth.User) {
			u.ID = user.ID
			u.PasswordHash = argon2Hash(t, testHash2)
			u.ResetToken = nil
			u.UpdatedAt = now(t, 1)
		})

		assertFindUser(t, tx, want)
	})

	t.Run("fail, no fields", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		user := testUser(t, nil)
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		err = tx.UpdateUser(user.ID, auth.UserFields{})
		if !errors.Is(err, errorz.ErrInvalidField) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrInvalidField, err)
		}
	})

	t.Run("fail, unrecognized field", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		user := testUser(t, nil)
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		err = tx.UpdateUser(user.ID, auth.UserFields{
			"is_admin": true,
		})
		if !errors.Is(err, errorz.ErrInvalidField) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrInvalidField, err)
		}
	})

	t.Run("fail, unknown user", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		err = tx.UpdateUser(42, auth.UserFields{
			auth.FieldSessionID: (*krypto.Token)(nil),
		})
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", errorz.ErrNotFound, err)
		}
	})
}

func Test_Tx_FindUsers(t *testing.T) {
	t.Run("ok, no match returns empty slice", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		users, err := tx.FindUsers(&auth.UserFilter{
			Emails: []email.Address{must(email.ParseAddress("jacob@example.com"))},
		})
		if err != nil {
			t.Fatalf("failed to find users: %v", err)
		}

		if len(users) != 0 {
			t.Errorf("expected no users, got %d", len(users))
		}
	})

	t.Run("ok, filter by session id and reset token", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		session := must(krypto.GenerateToken())
		reset := must(krypto.GenerateToken())

		user := testUser(t, func(u *auth.User) {
			u.SessionID = &session
			u.ResetToken = &reset
		})
		if err := tx.CreateUser(&user); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		other := testUser(t, func(u *auth.User) {
			u.Email = must(email.ParseAddress("jacob@example.com"))
			u.CreatedAt = now(t, 1)
			u.UpdatedAt = now(t, 1)
		})
		if err := tx.CreateUser(&other); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		bySession, err := tx.FindUsers(&auth.UserFilter{SessionIDs: []krypto.Token{session}})
		if err != nil {
			t.Fatalf("failed to find users: %v", err)
		}

		if len(bySession) != 1 || bySession[0].ID != user.ID {
			t.Errorf("expected to find user %d by session id, got %#v", user.ID, bySession)
		}

		byReset, err := tx.FindUsers(&auth.UserFilter{ResetTokens: []krypto.Token{reset}})
		if err != nil {
			t.Fatalf("failed to find users: %v", err)
		}

		if len(byReset) != 1 || byReset[0].ID != user.ID {
			t.Errorf("expected to find user %d by reset token, got %#v", user.ID, byReset)
		}
	})

	t.Run("ok, no filter returns all users ordered by id", func(t *testing.T) {
		store := storeForTest(t)

		tx, err := store.BeginTx(context.Background())
		if err != nil {
			t.Fatalf("failed to begin tx: %v", err)
		}

		first := testUser(t, nil)
		if err := tx.CreateUser(&first); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		second := testUser(t, func(u *auth.User) {
			u.Email = must(email.ParseAddress("jacob@example.com"))
		})
		if err := tx.CreateUser(&second); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		users, err := tx.FindUsers(&auth.UserFilter{})
		if err != nil {
			t.Fatalf("failed to find users: %v", err)
		}

		if len(users) != 2 || users[0].ID != first.ID || users[1].ID != second.ID {
			t.Errorf("expected users %d and %d in order, got %#v", first.ID, second.ID, users)
		}
	})
}

func now(t *testing.T, i int) time.Time {
	t.Helper()
	if i > 9 {
		t.Fatalf("invalid time index: %d", i)
	}

	ts, err := time.Parse(time.RFC3339, fmt.Sprintf("2021-01-01T00:00:0%dZ", i))
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}

	return ts
}

func storeForTest(t *testing.T) *db.Store {
	t.Helper()

	testDB := testdb.RunWhile(t)

	// Index 0 is used by testUser for the creation timestamps, the
	// store only consults nowFunc on updates.
	i := 1
	return db.New(testDB, func() time.Time {
		n := now(t, i)
		i++
		return n
	})
}

func testUser(t *testing.T, mf func(u *auth.User)) auth.User {
	t.Helper()

	user := auth.User{
		Email:        must(email.ParseAddress("info@example.com")),
		PasswordHash: argon2Hash(t, testHash1),
		CreatedAt:    now(t, 0),
		UpdatedAt:    now(t, 0),
	}

	if mf != nil {
		mf(&user)
	}

	return user
}

func argon2Hash(t *testing.T, raw string) krypto.Argon2Hash {
	t.Helper()

	hash, err := krypto.ParseArgon2Hash(raw)
	if err != nil {
		t.Fatalf("failed to parse hash: %v", err)
	}

	return hash
}

func assertFindUser(t *testing.T, tx auth.Tx, want auth.User) {
	t.Helper()

	users, err := tx.FindUsers(&auth.UserFilter{IDs: []int{want.ID}})
	if err != nil {
		t.Fatalf("failed to find users: %v", err)
	}

	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}

	if !reflect.DeepEqual(users[0], want) {
		t.Errorf("got\n%#v\nwant\n%#v\n", users[0], want)
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
