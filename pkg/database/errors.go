package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// pq error codes we care about.
const (
	codeUniqueViolation = "23505"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == codeUniqueViolation
	}
	return false
}

// EscapeLike escapes LIKE/ILIKE metacharacters so user input matches literally.
// Queries using it must declare ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Contains wraps s for a case-insensitive substring ILIKE match.
func Contains(s string) string {
	return "%" + EscapeLike(s) + "%"
}
