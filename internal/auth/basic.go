package auth

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// basicPrefix is the exact scheme prefix of a Basic Authorization header,
// case-sensitive with a single trailing space.
const basicPrefix = "Basic "

// ExtractBasicToken returns the base64 part of a Basic Authorization
// header value. It reports false for empty headers and for any other
// authorization scheme.
func ExtractBasicToken(header string) (string, bool) {
	if header == "" || !strings.HasPrefix(header, basicPrefix) {
		return "", false
	}

	return header[len(basicPrefix):], true
}

// DecodeToken decodes the base64 token of a Basic Authorization header.
// Malformed base64 and decoded bytes that are not valid UTF-8 never
// surface as errors, they report false.
func DecodeToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}

	if !utf8.Valid(decoded) {
		return "", false
	}

	return string(decoded), true
}

// SplitCredentials splits decoded Basic auth credentials into the email
// and the plaintext password. It splits on the first ":" only, so
// passwords may legitimately contain ":". It reports false when the
// separator is missing.
func SplitCredentials(decoded string) (string, string, bool) {
	usr, pwd, found := strings.Cut(decoded, ":")
	if !found {
		return "", "", false
	}

	return usr, pwd, true
}
