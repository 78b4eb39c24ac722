package payment

import (
	"context"

	"github.com/google/uuid"
)

// Ledger is a request-scoped unit of work over transaction records.
// Create, Update, and Delete stage mutations; Commit flushes every staged
// mutation atomically and reports the number of affected rows. The
// orchestrator performs exactly one Commit per operation, after the gateway
// call succeeds, never before.
type Ledger interface {
	Create(record *Record)
	Update(record *Record)
	Delete(record *Record)
	FindByID(ctx context.Context, id uuid.UUID) (*Record, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*Record, error)
	Commit(ctx context.Context) (int64, error)
}

// LedgerFactory hands out a fresh unit of work per orchestrator operation
type LedgerFactory interface {
	NewLedger() Ledger
}

// ErrRecordNotFound indicates a missing ledger record
type ErrRecordNotFound struct {
	ID uuid.UUID
}

func (e ErrRecordNotFound) Error() string {
	return "payment record not found: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	// An empty target ID matches any ErrRecordNotFound
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrConcurrentModification indicates a version-guarded write lost the race
// against another writer of the same record
type ErrConcurrentModification struct {
	ID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for payment record: " + e.ID.String()
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// StorageError wraps a failure from the persistence layer. When it follows a
// successful gateway call the two stores diverge; the divergence is surfaced
// to the caller and left for reconciliation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "ledger storage failure during " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
