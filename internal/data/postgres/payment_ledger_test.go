package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payment-intents-service/internal/domain/payment"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testRecord() *payment.Record {
	return &payment.Record{
		ID:              uuid.New(),
		GatewayIntentID: "pi_3MtwBwLkdIwHu7ix28a3tqPa",
		Status:          payment.StatusRequiresConfirmation,
		Amount:          900,
		OwnerID:         "user1",
		Version:         1,
		CreatedAt:       time.Now().UTC(),
	}
}

const selectByIDQuery = `
		SELECT id, gateway_intent_id, status, amount, owner_id, version, created_at
		FROM payment_records
		WHERE id = \$1
	`

func TestLedgerUnitOfWork_FindByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}
	rec := testRecord()

	t.Run("Success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "gateway_intent_id", "status", "amount", "owner_id", "version", "created_at"}).
			AddRow(rec.ID, rec.GatewayIntentID, rec.Status, rec.Amount, rec.OwnerID, rec.Version, rec.CreatedAt)
		mock.ExpectQuery(selectByIDQuery).WithArgs(rec.ID).WillReturnRows(rows)

		got, err := uow.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		missingID := uuid.New()
		mock.ExpectQuery(selectByIDQuery).WithArgs(missingID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "gateway_intent_id", "status", "amount", "owner_id", "version", "created_at"}))

		got, err := uow.FindByID(ctx, missingID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, payment.ErrRecordNotFound{ID: missingID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("StorageError", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(selectByIDQuery).WithArgs(rec.ID).WillReturnError(dbErr)

		got, err := uow.FindByID(ctx, rec.ID)
		assert.Nil(t, got)

		var storageErr *payment.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "find", storageErr.Op)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerUnitOfWork_FindByOwner(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, gateway_intent_id, status, amount, owner_id, version, created_at
		FROM payment_records
		WHERE owner_id = \$1
		ORDER BY created_at DESC
	`

	t.Run("Success", func(t *testing.T) {
		first := testRecord()
		second := testRecord()
		second.Status = payment.StatusSucceeded

		rows := pgxmock.NewRows([]string{"id", "gateway_intent_id", "status", "amount", "owner_id", "version", "created_at"}).
			AddRow(first.ID, first.GatewayIntentID, first.Status, first.Amount, first.OwnerID, first.Version, first.CreatedAt).
			AddRow(second.ID, second.GatewayIntentID, second.Status, second.Amount, second.OwnerID, second.Version, second.CreatedAt)
		mock.ExpectQuery(query).WithArgs("user1").WillReturnRows(rows)

		records, err := uow.FindByOwner(ctx, "user1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, first.ID, records[0].ID)
		assert.Equal(t, second.ID, records[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoRecords", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("user2").
			WillReturnRows(pgxmock.NewRows([]string{"id", "gateway_intent_id", "status", "amount", "owner_id", "version", "created_at"}))

		records, err := uow.FindByOwner(ctx, "user2")
		assert.NoError(t, err, "An owner without payments is not an error at the storage level")
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerUnitOfWork_Commit(t *testing.T) {
	ctx := context.Background()

	insertQuery := `
			INSERT INTO payment_records \(id, gateway_intent_id, status, amount, owner_id, version, created_at\)
			VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
		`
	updateQuery := `
			UPDATE payment_records
			SET status = \$1, amount = \$2, version = \$3
			WHERE id = \$4 AND version = \$5
		`
	deleteQuery := `
			DELETE FROM payment_records
			WHERE id = \$1 AND version = \$2
		`

	t.Run("NothingStaged", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}

		affected, err := uow.Commit(ctx)
		assert.NoError(t, err)
		assert.Zero(t, affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}
		rec := testRecord()
		uow.Create(rec)

		mock.ExpectBegin()
		mock.ExpectExec(insertQuery).
			WithArgs(rec.ID, rec.GatewayIntentID, rec.Status, rec.Amount, rec.OwnerID, rec.Version, rec.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		affected, err := uow.Commit(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.NoError(t, mock.ExpectationsWereMet())

		// Staged mutations are consumed by a successful commit
		affected, err = uow.Commit(ctx)
		assert.NoError(t, err)
		assert.Zero(t, affected)
	})

	t.Run("UpdateVersionGuard", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}
		rec := testRecord()
		rec.ApplyStatus(payment.StatusSucceeded) // Version 1 -> 2
		uow.Update(rec)

		mock.ExpectBegin()
		mock.ExpectExec(updateQuery).
			WithArgs(rec.Status, rec.Amount, rec.Version, rec.ID, rec.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		affected, err := uow.Commit(ctx)
		assert.Zero(t, affected)
		assert.ErrorIs(t, err, payment.ErrConcurrentModification{ID: rec.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UpdateSuccess", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}
		rec := testRecord()
		rec.ApplyAmount(1500) // Version 1 -> 2
		uow.Update(rec)

		mock.ExpectBegin()
		mock.ExpectExec(updateQuery).
			WithArgs(rec.Status, rec.Amount, rec.Version, rec.ID, rec.Version-1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		affected, err := uow.Commit(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}
		rec := testRecord()
		uow.Delete(rec)

		mock.ExpectBegin()
		mock.ExpectExec(deleteQuery).
			WithArgs(rec.ID, rec.Version).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		affected, err := uow.Commit(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExecFailureRollsBack", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		uow := &LedgerUnitOfWork{querier: mock, logger: newTestLogger()}
		rec := testRecord()
		uow.Create(rec)

		dbErr := errors.New("db error")
		mock.ExpectBegin()
		mock.ExpectExec(insertQuery).
			WithArgs(rec.ID, rec.GatewayIntentID, rec.Status, rec.Amount, rec.OwnerID, rec.Version, rec.CreatedAt).
			WillReturnError(dbErr)
		mock.ExpectRollback()

		affected, err := uow.Commit(ctx)
		assert.Zero(t, affected)

		var storageErr *payment.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "insert", storageErr.Op)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
