// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSnapshotNotFound indicates a snapshot was not found by the given identifier.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrPromotionNotFound indicates a promotion was not found by the given identifier.
	ErrPromotionNotFound = errors.New("promotion not found")

	// ErrMappingNotFound indicates no credential mapping resolves the given logical name.
	ErrMappingNotFound = errors.New("credential mapping not found")
)

// StoreError wraps persistence errors with operation context.
type StoreError struct {
	Op  string // Operation being performed (e.g., "Save", "GetByID")
	ID  string // Record identifier if applicable
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsSnapshotNotFound checks if an error indicates a missing snapshot.
func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}

// IsPromotionNotFound checks if an error indicates a missing promotion.
func IsPromotionNotFound(err error) bool {
	return errors.Is(err, ErrPromotionNotFound)
}

// IsMappingNotFound checks if an error indicates a missing credential mapping.
func IsMappingNotFound(err error) bool {
	return errors.Is(err, ErrMappingNotFound)
}
