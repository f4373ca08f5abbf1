package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors returned by the repository methods. Callers match them with errors.Is.
var (
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("record already exists")
	ErrForeignKey = errors.New("referenced record does not exist")
	ErrCheck      = errors.New("value violates a table constraint")
)

// PostgreSQL error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqNumericOutOfRange   = "22003"
)

// classify attaches the matching sentinel to constraint violations reported by the driver
func classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	case pqCheckViolation, pqNumericOutOfRange:
		return fmt.Errorf("%w: %w", ErrCheck, err)
	}
	return err
}
