package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/port"
)

// MySQLStore provides pessimistic row locking on the inventory table.
// Every Begin maps to one *sql.Tx; the exclusive lock taken by
// SELECT ... FOR UPDATE is held until commit or rollback on that tx.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Begin(ctx context.Context) (port.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &mysqlTx{tx: tx}, nil
}

type mysqlTx struct {
	tx     *sql.Tx
	closed bool
}

func (t *mysqlTx) LockRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error) {
	if t.closed {
		return nil, port.ErrTxClosed
	}

	var rec domain.InventoryRecord
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, label, quantity, created_at, updated_at
		FROM inventory WHERE id = ? FOR UPDATE`, recordID,
	).Scan(&rec.ID, &rec.Label, &rec.Quantity, &rec.CreatedAt, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock record: %w", err)
	}

	return &rec, nil
}

func (t *mysqlTx) UpdateQuantity(ctx context.Context, recordID string, quantity int) error {
	if t.closed {
		return port.ErrTxClosed
	}

	result, err := t.tx.ExecContext(ctx, `
		UPDATE inventory SET quantity = ?, updated_at = NOW()
		WHERE id = ?`, quantity, recordID,
	)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// The row was locked moments ago, so it cannot have vanished
		// unless something deleted it outside this protocol.
		return port.ErrRecordNotFound
	}

	return nil
}

func (t *mysqlTx) Commit() error {
	if t.closed {
		return port.ErrTxClosed
	}
	t.closed = true

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *mysqlTx) Rollback() error {
	if t.closed {
		return port.ErrTxClosed
	}
	t.closed = true

	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

// UpsertRecord creates or resets a record outside the locking protocol.
// Meant for provisioning and tests, not for the adjustment path.
func (s *MySQLStore) UpsertRecord(ctx context.Context, rec domain.InventoryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (id, label, quantity, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE label = VALUES(label), quantity = VALUES(quantity), updated_at = NOW()`,
		rec.ID, rec.Label, rec.Quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// GetRecord reads a record without locking it. Values read this way must
// never feed a quantity decision; that read belongs inside Tx.LockRecord.
func (s *MySQLStore) GetRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, quantity, created_at, updated_at
		FROM inventory WHERE id = ?`, recordID,
	).Scan(&rec.ID, &rec.Label, &rec.Quantity, &rec.CreatedAt, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}

	return &rec, nil
}
