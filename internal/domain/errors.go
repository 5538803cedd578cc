package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates that a write collided with a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrInvalidInput indicates a value rejected by validation before storage was touched.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation indicates state that correct operation never produces,
	// such as two active goals for one user.
	ErrInvariantViolation = errors.New("invariant violation")
)

// StorageError reports a failed read or write against the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TransactionError reports a failed atomic multi-write. No partial effects are visible.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction: %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// NewStorageError wraps err unless it is nil or already a storage or transaction error.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	var te *TransactionError
	if errors.As(err, &se) || errors.As(err, &te) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
