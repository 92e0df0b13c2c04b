package krypto_test

import (
	"errors"
	"testing"

	"github.com/gatehouse-auth/gatehouse/internal/krypto"
)

func Test_GenerateToken(t *testing.T) {
	t.Run("ok, tokens are unique", func(t *testing.T) {
		seen := make(map[krypto.Token]bool)
		for i := 0; i < 100; i++ {
			tok, err := krypto.GenerateToken()
			if err != nil {
				t.Fatalf("failed to generate token: %v", err)
			}

			if seen[tok] {
				t.Fatalf("token %q was generated twice", tok.String())
			}
			seen[tok] = true
		}
	})

	t.Run("ok, round trips via ParseToken", func(t *testing.T) {
		tok, err := krypto.GenerateToken()
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		parsed, err := krypto.ParseToken(tok.String())
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if parsed != tok {
			t.Errorf("got %q, want %q", parsed.String(), tok.String())
		}
	})
}

func Test_ParseToken(t *testing.T) {
	failTests := map[string]string{
		"fail, empty":      "",
		"fail, not a uuid": "definitely-not-a-token",
		"fail, truncated":  "0b29e9d4-33a8-4a43-b00f",
	}

	for name, raw := range failTests {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseToken(raw)
			if !errors.Is(err, krypto.ErrInvalidToken) {
				t.Errorf("expected %v, got %v (via errors.Is)", krypto.ErrInvalidToken, err)
			}
		})
	}
}
