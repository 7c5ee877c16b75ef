// Package sqlgate screens generated SQL before it may touch the database.
package sqlgate

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// IsReadOnly reports whether sql is a plain SELECT or WITH statement.
// Leading parentheses are peeled off so wrapped subselects pass, and
// internal whitespace is collapsed before the prefix check. Anything
// else, including empty input, is rejected.
func IsReadOnly(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return false
	}
	trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "("))
	lowered := strings.ToLower(whitespace.ReplaceAllString(trimmed, " "))
	return strings.HasPrefix(lowered, "select") || strings.HasPrefix(lowered, "with")
}
