package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/email"
	"github.com/gatehouse-auth/gatehouse/internal/errorz"
	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

var (
	// ErrDuplicateUser indicates a registration for an email address
	// that already has an account.
	ErrDuplicateUser = errors.New("duplicate user")
	// ErrUnknownUser indicates a password reset was requested for an
	// email address without an account.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidToken indicates a reset token that was never issued or
	// was already consumed.
	ErrInvalidToken = errors.New("invalid token")
)

// Service provides the main rules for authentication: registration,
// credential checks and the session and password reset lifecycles.
//
// All state lives in the store, the service itself only carries
// dependencies and is safe for concurrent use. Reads and writes that
// belong together run in a single store transaction.
type Service struct {
	store Store

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store) (*Service, error) {
	// Hash a throwaway token so that failed lookups can still burn a
	// password comparison, see ValidLogin.
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2([]byte(tok))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:          s,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}, nil
}

// Register registers a new user with the provided credentials.
// It returns ErrDuplicateUser if an account with the same email
// address already exists.
func (s *Service) Register(ctx context.Context, addr email.Address, pwd Password) (User, error) {
	// Hash outside the transaction, hashing is deliberately slow and
	// would otherwise hold the write lock for its full duration.
	pwdHash, err := pwd.Hash()
	if err != nil {
		return User{}, err
	}

	now := s.NowFunc()

	user := User{
		Email:        addr,
		PasswordHash: pwdHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		_, txErr := findOne(tx, &UserFilter{Emails: []email.Address{addr}})
		if txErr == nil {
			return fmt.Errorf("user %s: %w", addr, ErrDuplicateUser)
		}
		if !errors.Is(txErr, errorz.ErrNotFound) {
			return txErr
		}

		return tx.CreateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// ValidLogin checks if the provided credentials belong to a registered
// user. An unknown email address is not an error, it reports false.
func (s *Service) ValidLogin(ctx context.Context, addr email.Address, pwd Password) (bool, error) {
	_, ok, err := s.Authenticate(ctx, addr, pwd)
	return ok, err
}

// Authenticate resolves the user for the provided credentials. It
// reports false for unknown email addresses and wrong passwords.
func (s *Service) Authenticate(ctx context.Context, addr email.Address, pwd Password) (User, bool, error) {
	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		user, txErr = findOne(tx, &UserFilter{Emails: []email.Address{addr}})
		return txErr
	})

	if errors.Is(err, errorz.ErrNotFound) {
		// Even if no user is found we compare to a hash to prevent timing
		// differences that could result in user enumeration attacks.
		_ = pwd.Match(s.comparisonHash)
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}

	if !pwd.Match(user.PasswordHash) {
		return User{}, false, nil
	}

	return user, true, nil
}

// CreateSession starts a new session for the user with the provided
// email address and returns the session token. Any previous session is
// overwritten and thereby invalidated. It reports false for unknown
// email addresses.
func (s *Service) CreateSession(ctx context.Context, addr email.Address) (krypto.Token, bool, error) {
	token, err := krypto.GenerateToken()
	if err != nil {
		return "", false, err
	}

	found := true
	err = s.inTx(ctx, func(tx Tx) error {
		user, txErr := findOne(tx, &UserFilter{Emails: []email.Address{addr}})
		if errors.Is(txErr, errorz.ErrNotFound) {
			found = false
			return nil
		}
		if txErr != nil {
			return txErr
		}

		return tx.UpdateUser(user.ID, UserFields{
			FieldSessionID: &token,
		})
	})
	if err != nil || !found {
		return "", false, err
	}

	return token, true, nil
}

// ResolveSession resolves a session token to the user it belongs to.
// It reports false for empty and unknown tokens without error.
func (s *Service) ResolveSession(ctx context.Context, token krypto.Token) (User, bool, error) {
	if token == "" {
		return User{}, false, nil
	}

	var user User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		user, txErr = findOne(tx, &UserFilter{SessionIDs: []krypto.Token{token}})
		return txErr
	})

	if errors.Is(err, errorz.ErrNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}

	return user, true, nil
}

// DestroySession logs out the user with the provided id by clearing
// their session. Destroying the session of an unknown or already
// logged-out user is a no-op, see DESIGN.md for the reasoning.
func (s *Service) DestroySession(ctx context.Context, userID int) error {
	err := s.inTx(ctx, func(tx Tx) error {
		return tx.UpdateUser(userID, UserFields{
			FieldSessionID: (*krypto.Token)(nil),
		})
	})

	if errors.Is(err, errorz.ErrNotFound) {
		return nil
	}

	return err
}

// IssueResetToken starts a password reset for the user with the
// provided email address and returns the reset token. It returns
// ErrUnknownUser if no such account exists, callers surface this as a
// client error.
func (s *Service) IssueResetToken(ctx context.Context, addr email.Address) (krypto.Token, error) {
	token, err := krypto.GenerateToken()
	if err != nil {
		return "", err
	}

	err = s.inTx(ctx, func(tx Tx) error {
		user, txErr := findOne(tx, &UserFilter{Emails: []email.Address{addr}})
		if errors.Is(txErr, errorz.ErrNotFound) {
			return fmt.Errorf("user %s: %w", addr, ErrUnknownUser)
		}
		if txErr != nil {
			return txErr
		}

		return tx.UpdateUser(user.ID, UserFields{
			FieldResetToken: &token,
		})
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

// ConsumeResetToken updates the password of the user the reset token
// was issued to and clears the token. The lookup and the update run in
// one transaction, a token can never be consumed twice. It returns
// ErrInvalidToken for tokens that were never issued or were already
// consumed.
func (s *Service) ConsumeResetToken(ctx context.Context, token krypto.Token, newPwd Password) error {
	pwdHash, err := newPwd.Hash()
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx Tx) error {
		user, txErr := findOne(tx, &UserFilter{ResetTokens: []krypto.Token{token}})
		if errors.Is(txErr, errorz.ErrNotFound) {
			return ErrInvalidToken
		}
		if txErr != nil {
			return txErr
		}

		// Clearing the token in the same update makes it single-use.
		return tx.UpdateUser(user.ID, UserFields{
			FieldPasswordHash: pwdHash,
			FieldResetToken:   (*krypto.Token)(nil),
		})
	})
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}

// findOne returns the single user matching the filter, or
// errorz.ErrNotFound. All UserFilter fields are unique, more than one
// match means the filter was misused.
func findOne(tx Tx, filter *UserFilter) (User, error) {
	users, err := tx.FindUsers(filter)
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		return User{}, errorz.ErrNotFound
	}

	return users[0], nil
}
