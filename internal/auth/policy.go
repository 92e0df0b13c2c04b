package auth

import "strings"

// RequiresAuth reports whether a request for path needs an authenticated
// identity, given the exclusion rules. It fails closed: an empty path or
// an empty rule set always requires authentication.
//
// Paths and rules are compared with a single trailing slash, so
// "/api/foo" and "/api/foo/" are equivalent. A rule ending in "*"
// excludes every path that starts with the rule's prefix. The first
// matching rule wins.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}

	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	for _, rule := range excluded {
		rule = strings.TrimRight(rule, "/")

		if strings.HasSuffix(rule, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(rule, "*")) {
				return false
			}
			continue
		}

		if path == rule+"/" {
			return false
		}
	}

	return true
}
