package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate key")
	// ErrTransient marks a storage failure worth one retry
	ErrTransient = errors.New("transient storage failure")
)

// IsDuplicate reports unique-index violations from any backend
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate) || mongo.IsDuplicateKeyError(err)
}

// IsTransient reports failures that may succeed when retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}
