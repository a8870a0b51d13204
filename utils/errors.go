package utils

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Failure taxonomy shared by the handlers. Every remote-call failure is
// terminal for the operation that produced it; nothing retries.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrWrite      = errors.New("write failed")
)

// IsUniqueViolation reports whether err comes from a uniqueness constraint,
// e.g. a duplicate (obra, kind, sequence) on session creation. Covers the
// translated gorm error plus the raw Postgres and SQLite message forms.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// HTTPStatus maps a taxonomy error to its response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
