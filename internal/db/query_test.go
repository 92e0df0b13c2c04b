package db_test

import (
	"reflect"
	"testing"

	"github.com/gatehouse-auth/gatehouse/internal/db"
)

func TestQuery(t *testing.T) {
	tests := map[string]struct {
		build      func(q *db.Query)
		wantQuery  string
		wantParams []any
	}{
		"zero value": {
			build:      func(q *db.Query) {},
			wantQuery:  "",
			wantParams: nil,
		},
		"unsafe only": {
			build: func(q *db.Query) {
				q.Unsafe("SELECT 1")
			},
			wantQuery:  "SELECT 1",
			wantParams: nil,
		},
		"single param": {
			build: func(q *db.Query) {
				q.Unsafe("SELECT * FROM users WHERE id = ")
				q.Param(1)
			},
			wantQuery:  "SELECT * FROM users WHERE id = ?",
			wantParams: []any{1},
		},
		"multiple params": {
			build: func(q *db.Query) {
				q.Unsafe("SELECT * FROM users WHERE id IN (")
				q.Params(1, 2, 3)
				q.Unsafe(")")
			},
			wantQuery:  "SELECT * FROM users WHERE id IN (?, ?, ?)",
			wantParams: []any{1, 2, 3},
		},
		"mixed params": {
			build: func(q *db.Query) {
				q.Unsafe("UPDATE users SET email = ")
				q.Param("info@example.com")
				q.Unsafe(" WHERE id IN (")
				q.Params(1, 2)
				q.Unsafe(")")
			},
			wantQuery:  "UPDATE users SET email = ? WHERE id IN (?, ?)",
			wantParams: []any{"info@example.com", 1, 2},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var q db.Query
			tc.build(&q)

			gotQuery, gotParams := q.Get()

			if gotQuery != tc.wantQuery {
				t.Errorf("got query %q, want %q", gotQuery, tc.wantQuery)
			}

			if !reflect.DeepEqual(gotParams, tc.wantParams) {
				t.Errorf("got params %#v, want %#v", gotParams, tc.wantParams)
			}
		})
	}
}
