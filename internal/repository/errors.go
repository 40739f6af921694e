package repository

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrUniqueViolation wraps a Postgres unique constraint failure.
	ErrUniqueViolation = errors.New("repository: unique violation")
	// ErrSlotUnavailable means the slot counter could not be moved because
	// the slot is full, closed, or missing.
	ErrSlotUnavailable = errors.New("repository: slot unavailable")
)

const pqUniqueViolation = "23505"

// NewID implements generateId(prefix) for every collection.
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
