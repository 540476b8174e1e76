package port

import (
	"context"
	"errors"

	"github.com/vhoang/stock-guard/internal/core/domain"
)

var (
	// ErrRecordNotFound is returned by Tx.LockRecord when the target row
	// is confirmed absent. No lock is held afterwards.
	ErrRecordNotFound = errors.New("record not found")

	// ErrTxClosed is returned by operations on a transaction that has
	// already been committed or rolled back.
	ErrTxClosed = errors.New("transaction already closed")
)

// LockingStore is the pessimistic storage collaborator. Each Begin opens
// an isolated transaction whose row locks are held until Commit or
// Rollback.
type LockingStore interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one exclusive read-modify-write cycle. LockRecord blocks until
// the row lock is granted; Commit and Rollback both release every lock
// the transaction holds, so every code path must finish with exactly one
// of them.
type Tx interface {
	LockRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error)
	UpdateQuantity(ctx context.Context, recordID string, quantity int) error
	Commit() error
	Rollback() error
}
