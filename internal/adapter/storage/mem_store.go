package storage

import (
	"context"
	"sync"
	"time"

	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/port"
)

// MemStore emulates the datastore's exclusive blocking row locks with
// one mutex per record. It keeps the adjustment protocol testable and
// demonstrable without a live MySQL instance: LockRecord parks the
// calling goroutine on the record's mutex exactly the way a row lock
// wait would, and staged writes only become visible on Commit.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*memRecord
}

type memRecord struct {
	mu  sync.Mutex // the exclusive row lock
	rec domain.InventoryRecord
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*memRecord)}
}

// Seed creates or replaces a record. Not part of the locking protocol;
// call before dispatching concurrent work.
func (s *MemStore) Seed(rec domain.InventoryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[rec.ID] = &memRecord{rec: rec}
}

// Quantity reads a record's committed quantity, waiting out any lock
// holder. ok is false when the record does not exist.
func (s *MemStore) Quantity(recordID string) (quantity int, ok bool) {
	s.mu.Lock()
	r, found := s.records[recordID]
	s.mu.Unlock()
	if !found {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec.Quantity, true
}

// GetRecord reads a committed record without taking its lock, waiting
// out any current holder. Returns nil when the record does not exist.
func (s *MemStore) GetRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error) {
	s.mu.Lock()
	r, found := s.records[recordID]
	s.mu.Unlock()
	if !found {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.rec
	return &rec, nil
}

func (s *MemStore) Begin(ctx context.Context) (port.Tx, error) {
	return &memTx{store: s, locked: make(map[string]*memRecord), staged: make(map[string]int)}, nil
}

type memTx struct {
	store  *MemStore
	locked map[string]*memRecord
	staged map[string]int
	closed bool
}

func (t *memTx) LockRecord(ctx context.Context, recordID string) (*domain.InventoryRecord, error) {
	if t.closed {
		return nil, port.ErrTxClosed
	}

	if r, held := t.locked[recordID]; held {
		rec := r.rec
		return &rec, nil
	}

	t.store.mu.Lock()
	r, found := t.store.records[recordID]
	t.store.mu.Unlock()
	if !found {
		return nil, port.ErrRecordNotFound
	}

	// Blocks until the current holder commits or rolls back, matching
	// the row-lock wait of SELECT ... FOR UPDATE.
	r.mu.Lock()
	t.locked[recordID] = r

	rec := r.rec
	return &rec, nil
}

func (t *memTx) UpdateQuantity(ctx context.Context, recordID string, quantity int) error {
	if t.closed {
		return port.ErrTxClosed
	}
	if _, held := t.locked[recordID]; !held {
		return port.ErrRecordNotFound
	}

	t.staged[recordID] = quantity
	return nil
}

func (t *memTx) Commit() error {
	if t.closed {
		return port.ErrTxClosed
	}
	t.closed = true

	now := time.Now()
	for id, quantity := range t.staged {
		r := t.locked[id]
		r.rec.Quantity = quantity
		r.rec.UpdatedAt = now
	}
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.closed {
		return port.ErrTxClosed
	}
	t.closed = true

	t.release()
	return nil
}

func (t *memTx) release() {
	for _, r := range t.locked {
		r.mu.Unlock()
	}
	t.locked = nil
	t.staged = nil
}
