// Package postgres provides the PostgreSQL implementation of the payment
// ledger. Mutations are staged in a request-scoped unit of work and flushed
// in a single database transaction on Commit.
package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/payment-intents-service/internal/domain/payment"
	"github.com/payment-intents-service/internal/platform/persistence"
)

// TxQuerier extends the read querier with transaction support
type TxQuerier interface {
	persistence.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store hands out request-scoped ledger units of work backed by the shared
// connection pool
type Store struct {
	querier TxQuerier
	logger  *slog.Logger
}

// NewStore creates a PostgreSQL ledger factory.
// It expects db.Pool() to satisfy TxQuerier.
func NewStore(logger *slog.Logger, db *persistence.PostgresDB) payment.LedgerFactory {
	return &Store{
		querier: db.Pool(),
		logger:  logger,
	}
}

// NewLedger returns a fresh unit of work. Each orchestrator operation gets
// its own instance; units of work are not safe for concurrent use.
func (s *Store) NewLedger() payment.Ledger {
	return &LedgerUnitOfWork{
		querier: s.querier,
		logger:  s.logger,
	}
}

type mutationKind int

const (
	mutationInsert mutationKind = iota
	mutationUpdate
	mutationDelete
)

type mutation struct {
	kind   mutationKind
	record *payment.Record
}

// LedgerUnitOfWork implements payment.Ledger. Reads go straight to the pool;
// staged mutations are applied atomically by Commit.
type LedgerUnitOfWork struct {
	querier TxQuerier
	logger  *slog.Logger
	pending []mutation
}

// Create stages an insert of a new payment record
func (l *LedgerUnitOfWork) Create(record *payment.Record) {
	l.pending = append(l.pending, mutation{kind: mutationInsert, record: record})
}

// Update stages a version-guarded update of status and amount
func (l *LedgerUnitOfWork) Update(record *payment.Record) {
	l.pending = append(l.pending, mutation{kind: mutationUpdate, record: record})
}

// Delete stages a version-guarded removal of the record
func (l *LedgerUnitOfWork) Delete(record *payment.Record) {
	l.pending = append(l.pending, mutation{kind: mutationDelete, record: record})
}

// FindByID retrieves a payment record by its local ID
func (l *LedgerUnitOfWork) FindByID(ctx context.Context, id uuid.UUID) (*payment.Record, error) {
	query := `
		SELECT id, gateway_intent_id, status, amount, owner_id, version, created_at
		FROM payment_records
		WHERE id = $1
	`

	var rec payment.Record
	err := l.querier.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.GatewayIntentID,
		&rec.Status,
		&rec.Amount,
		&rec.OwnerID,
		&rec.Version,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrRecordNotFound{ID: id}
		}
		l.logger.Error("Failed to get payment record", "id", id.String(), "error", err)
		return nil, &payment.StorageError{Op: "find", Err: err}
	}

	return &rec, nil
}

// FindByOwner retrieves all payment records scoped to the given owner,
// newest first
func (l *LedgerUnitOfWork) FindByOwner(ctx context.Context, ownerID string) ([]*payment.Record, error) {
	query := `
		SELECT id, gateway_intent_id, status, amount, owner_id, version, created_at
		FROM payment_records
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := l.querier.Query(ctx, query, ownerID)
	if err != nil {
		l.logger.Error("Failed to query payment records", "owner_id", ownerID, "error", err)
		return nil, &payment.StorageError{Op: "query", Err: err}
	}
	defer rows.Close()

	var records []*payment.Record
	for rows.Next() {
		var rec payment.Record
		if err := rows.Scan(
			&rec.ID,
			&rec.GatewayIntentID,
			&rec.Status,
			&rec.Amount,
			&rec.OwnerID,
			&rec.Version,
			&rec.CreatedAt,
		); err != nil {
			l.logger.Error("Failed to scan payment record", "owner_id", ownerID, "error", err)
			return nil, &payment.StorageError{Op: "query", Err: err}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &payment.StorageError{Op: "query", Err: err}
	}

	return records, nil
}

// Commit flushes all staged mutations inside one transaction and reports the
// number of affected rows. A version-guarded statement affecting zero rows
// means another writer got there first; the transaction is rolled back and
// ErrConcurrentModification is returned.
func (l *LedgerUnitOfWork) Commit(ctx context.Context) (int64, error) {
	if len(l.pending) == 0 {
		return 0, nil
	}

	tx, err := l.querier.Begin(ctx)
	if err != nil {
		return 0, &payment.StorageError{Op: "commit", Err: err}
	}

	var affected int64
	for _, m := range l.pending {
		rows, err := l.apply(ctx, tx, m)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, err
		}
		affected += rows
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &payment.StorageError{Op: "commit", Err: err}
	}

	l.pending = nil
	return affected, nil
}

func (l *LedgerUnitOfWork) apply(ctx context.Context, tx pgx.Tx, m mutation) (int64, error) {
	switch m.kind {
	case mutationInsert:
		query := `
			INSERT INTO payment_records (id, gateway_intent_id, status, amount, owner_id, version, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		tag, err := tx.Exec(ctx, query,
			m.record.ID,
			m.record.GatewayIntentID,
			m.record.Status,
			m.record.Amount,
			m.record.OwnerID,
			m.record.Version,
			m.record.CreatedAt,
		)
		if err != nil {
			l.logger.Error("Failed to insert payment record", "id", m.record.ID.String(), "error", err)
			return 0, &payment.StorageError{Op: "insert", Err: err}
		}
		return tag.RowsAffected(), nil

	case mutationUpdate:
		query := `
			UPDATE payment_records
			SET status = $1, amount = $2, version = $3
			WHERE id = $4 AND version = $5
		`
		tag, err := tx.Exec(ctx, query,
			m.record.Status,
			m.record.Amount,
			m.record.Version,
			m.record.ID,
			m.record.Version-1, // Check previous version for optimistic locking
		)
		if err != nil {
			l.logger.Error("Failed to update payment record", "id", m.record.ID.String(), "error", err)
			return 0, &payment.StorageError{Op: "update", Err: err}
		}
		if tag.RowsAffected() == 0 {
			return 0, payment.ErrConcurrentModification{ID: m.record.ID}
		}
		return tag.RowsAffected(), nil

	case mutationDelete:
		query := `
			DELETE FROM payment_records
			WHERE id = $1 AND version = $2
		`
		tag, err := tx.Exec(ctx, query, m.record.ID, m.record.Version)
		if err != nil {
			l.logger.Error("Failed to delete payment record", "id", m.record.ID.String(), "error", err)
			return 0, &payment.StorageError{Op: "delete", Err: err}
		}
		if tag.RowsAffected() == 0 {
			return 0, payment.ErrConcurrentModification{ID: m.record.ID}
		}
		return tag.RowsAffected(), nil
	}

	return 0, nil
}
