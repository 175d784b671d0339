package db

import "strings"

// IsUniqueViolation reports whether err came from a unique-constraint conflict.
// When constraintName is given the error text must mention that constraint.
// Both the Postgres and the SQLite (used in tests) phrasings are recognized.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
