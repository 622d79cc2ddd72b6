package api

import (
	"errors"
	"fmt"
)

var (
	// ErrPartitionNotFound means the current month's partition is not provisioned.
	ErrPartitionNotFound = errors.New("partition not found")
	// ErrClassifier means the classifier output could not be read as an intent.
	ErrClassifier = errors.New("classifier error")
	// ErrMalformedIntent means a decoded intent violates its own variant's invariants.
	ErrMalformedIntent = errors.New("malformed intent")
)

// Store operations used as StoreError context.
const (
	OpLoad   = "loading partition"
	OpAdd    = "adding transaction data"
	OpEdit   = "editing transaction data"
	OpDelete = "deleting transaction data"
)

// StoreError wraps a failure talking to the ledger store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("error %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore returns err wrapped as a StoreError, or nil if err is nil.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// BatchError reports a store failure partway through a multi-record operation.
// The operation as a whole still failed; Applied lists what had already been
// persisted before the failure.
type BatchError struct {
	Op string
	// Applied holds the IDs written or blanked before the failure, in order.
	Applied []string
	// FailedAt is the index in the input batch that failed.
	FailedAt int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch failed at index %d after %d applied: %v", e.Op, e.FailedAt, len(e.Applied), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
