package email_test

import (
	"errors"
	"testing"

	"github.com/gatehouse-auth/gatehouse/internal/email"
)

func Test_ParseAddress(t *testing.T) {
	okTests := map[string]struct {
		raw  string
		want email.Address
	}{
		"shortest possible": {
			raw:  "a@b",
			want: "a@b",
		},
		"typical": {
			raw:  "alice@example.com",
			want: "alice@example.com",
		},
		"whitespace is trimmed": {
			raw:  " \talice@example.com  ",
			want: "alice@example.com",
		},
	}

	for name, tc := range okTests {
		t.Run(name, func(t *testing.T) {
			got, err := email.ParseAddress(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	failTests := map[string]string{
		"empty":               "",
		"no at sign":          "alice.example.com",
		"multiple addresses":  "alice@example.com, bob@example.com",
		"with name":           "Alice <alice@example.com>",
		"with comment":        "alice@example.com (work)",
		"angle brackets only": "<alice@example.com>",
	}

	for name, raw := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := email.ParseAddress(raw)
			if !errors.Is(err, email.ErrInvalidEmail) {
				t.Errorf("expected %v, got %v (via errors.Is)", email.ErrInvalidEmail, err)
			}
		})
	}
}
