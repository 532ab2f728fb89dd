package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lesson, module, course, enrollment or
	// certificate cannot be resolved.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is not entitled to the
	// operation, e.g. recording progress without an enrollment.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a storage uniqueness constraint fires,
	// e.g. a duplicate enrollment or a racing certificate creation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

const pgUniqueViolation = "23505"

// IsDuplicateKey reports whether err is a storage-level uniqueness violation.
// Both the gorm translated error and the raw postgres error code are checked
// so classification does not depend on the TranslateError setting.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return false
}
