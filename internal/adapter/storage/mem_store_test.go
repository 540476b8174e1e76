package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/port"
)

func TestMemStore_LockReadWriteCommit(t *testing.T) {
	store := NewMemStore()
	store.Seed(domain.InventoryRecord{ID: "item-1", Label: "widget", Quantity: 10})

	ctx := context.Background()
	tx, err := store.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	rec, err := tx.LockRecord(ctx, "item-1")
	if err != nil {
		t.Fatalf("LockRecord failed: %v", err)
	}
	if rec.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", rec.Quantity)
	}

	if err := tx.UpdateQuantity(ctx, "item-1", 7); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}

	// A committed read parks on the row lock while the tx holds it, so
	// it can never observe the staged value; it completes only after
	// commit and sees the new quantity.
	read := make(chan int, 1)
	go func() {
		q, _ := store.Quantity("item-1")
		read <- q
	}()

	select {
	case q := <-read:
		t.Fatalf("committed read finished while the lock was held, got %d", q)
	case <-time.After(50 * time.Millisecond):
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	select {
	case q := <-read:
		if q != 7 {
			t.Errorf("expected committed quantity 7, got %d", q)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("committed read never finished after commit")
	}

	if q, _ := store.Quantity("item-1"); q != 7 {
		t.Errorf("expected committed quantity 7, got %d", q)
	}
}

func TestMemStore_RollbackDiscardsWrite(t *testing.T) {
	store := NewMemStore()
	store.Seed(domain.InventoryRecord{ID: "item-1", Label: "widget", Quantity: 10})

	ctx := context.Background()
	tx, _ := store.Begin(ctx)

	if _, err := tx.LockRecord(ctx, "item-1"); err != nil {
		t.Fatalf("LockRecord failed: %v", err)
	}
	if err := tx.UpdateQuantity(ctx, "item-1", 3); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if q, _ := store.Quantity("item-1"); q != 10 {
		t.Errorf("expected quantity 10 after rollback, got %d", q)
	}
}

func TestMemStore_NotFound(t *testing.T) {
	store := NewMemStore()

	ctx := context.Background()
	tx, _ := store.Begin(ctx)
	defer tx.Rollback()

	_, err := tx.LockRecord(ctx, "nonexistent")
	if !errors.Is(err, port.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got: %v", err)
	}
}

func TestMemStore_ClosedTx(t *testing.T) {
	store := NewMemStore()
	store.Seed(domain.InventoryRecord{ID: "item-1", Quantity: 1})

	ctx := context.Background()
	tx, _ := store.Begin(ctx)
	if _, err := tx.LockRecord(ctx, "item-1"); err != nil {
		t.Fatalf("LockRecord failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := tx.Commit(); !errors.Is(err, port.ErrTxClosed) {
		t.Errorf("expected ErrTxClosed on double commit, got: %v", err)
	}
	if err := tx.Rollback(); !errors.Is(err, port.ErrTxClosed) {
		t.Errorf("expected ErrTxClosed on rollback after commit, got: %v", err)
	}
	if _, err := tx.LockRecord(ctx, "item-1"); !errors.Is(err, port.ErrTxClosed) {
		t.Errorf("expected ErrTxClosed on lock after commit, got: %v", err)
	}
}

func TestMemStore_LockBlocksSecondHolder(t *testing.T) {
	store := NewMemStore()
	store.Seed(domain.InventoryRecord{ID: "item-1", Quantity: 10})

	ctx := context.Background()

	first, _ := store.Begin(ctx)
	if _, err := first.LockRecord(ctx, "item-1"); err != nil {
		t.Fatalf("first LockRecord failed: %v", err)
	}

	var secondAcquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		second, _ := store.Begin(ctx)
		if _, err := second.LockRecord(ctx, "item-1"); err != nil {
			t.Errorf("second LockRecord failed: %v", err)
			return
		}
		secondAcquired.Store(true)
		second.Rollback()
	}()

	// The second holder must stay parked while the first holds the lock.
	time.Sleep(50 * time.Millisecond)
	if secondAcquired.Load() {
		t.Fatal("second tx acquired the lock while the first still held it")
	}

	if err := first.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second tx never acquired the lock after commit")
	}
	if !secondAcquired.Load() {
		t.Fatal("second tx finished without acquiring the lock")
	}
}

func TestMemStore_ConcurrentDecrements(t *testing.T) {
	store := NewMemStore()
	store.Seed(domain.InventoryRecord{ID: "item-1", Quantity: 100})

	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tx, _ := store.Begin(ctx)
			rec, err := tx.LockRecord(ctx, "item-1")
			if err != nil {
				t.Errorf("LockRecord failed: %v", err)
				return
			}
			if err := tx.UpdateQuantity(ctx, "item-1", rec.Quantity-1); err != nil {
				t.Errorf("UpdateQuantity failed: %v", err)
				tx.Rollback()
				return
			}
			if err := tx.Commit(); err != nil {
				t.Errorf("Commit failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if q, _ := store.Quantity("item-1"); q != 0 {
		t.Errorf("expected quantity 0 after 100 serialized decrements, got %d", q)
	}
}
