// Package db implements the auth store on top of SQLite.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/gatehouse-auth/gatehouse/internal/auth"
)

// NowFunc is a function that returns the current time.
type NowFunc func() time.Time

// Store is responsible for interacting with the users database.
type Store struct {
	db      *sql.DB
	nowFunc NowFunc
}

// New creates a new Store. A nil nowFunc defaults to time.Now.
func New(db *sql.DB, nowFunc NowFunc) *Store {
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Store{
		db:      db,
		nowFunc: nowFunc,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (auth.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx:    tx,
		store: s,
	}, nil
}
