package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/port"
)

// AdjustmentService serializes mutations of a record's quantity through
// the store's exclusive row locks. Each Apply call runs one transaction:
// lock, read, validate, write, commit. Concurrent callers against the
// same record are linearized by lock-acquisition order; the service adds
// no ordering policy of its own.
type AdjustmentService struct {
	store port.LockingStore
	cache port.CacheRepository // optional; nil disables idempotency and snapshots
}

func NewAdjustmentService(store port.LockingStore, cache port.CacheRepository) *AdjustmentService {
	return &AdjustmentService{store: store, cache: cache}
}

// Apply performs one quantity adjustment and reports the result as a
// typed outcome. Rejections and storage faults are data, not errors:
// every fault is recovered here, and the transaction is closed exactly
// once on every path.
func (s *AdjustmentService) Apply(ctx context.Context, actorID string, req domain.AdjustmentRequest) domain.AdjustmentOutcome {
	idemKey := ""
	if s.cache != nil && req.ID != "" {
		idemKey = "adjust:" + req.ID
		ok, err := s.cache.SetIdempotency(ctx, idemKey)
		if err != nil {
			return domain.Failed(actorID, fmt.Errorf("idempotency check: %w", err))
		}
		if !ok {
			return domain.Rejected(actorID, domain.ReasonDuplicateRequest, 0, req.Delta)
		}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		s.releaseIdempotency(ctx, idemKey)
		return domain.Failed(actorID, fmt.Errorf("begin tx: %w", err))
	}

	rec, err := tx.LockRecord(ctx, req.RecordID)
	if errors.Is(err, port.ErrRecordNotFound) {
		rollback(tx)
		return domain.Rejected(actorID, domain.ReasonNotFound, 0, req.Delta)
	}
	if err != nil {
		rollback(tx)
		s.releaseIdempotency(ctx, idemKey)
		return domain.Failed(actorID, fmt.Errorf("lock record: %w", err))
	}

	newQuantity := rec.Quantity + req.Delta
	if newQuantity < 0 {
		rollback(tx)
		return domain.Rejected(actorID, domain.ReasonInsufficientQuantity, rec.Quantity, req.Delta)
	}

	if err := tx.UpdateQuantity(ctx, req.RecordID, newQuantity); err != nil {
		rollback(tx)
		s.releaseIdempotency(ctx, idemKey)
		return domain.Failed(actorID, fmt.Errorf("write quantity: %w", err))
	}

	if err := tx.Commit(); err != nil {
		s.releaseIdempotency(ctx, idemKey)
		return domain.Failed(actorID, fmt.Errorf("commit tx: %w", err))
	}

	s.publishQuantity(ctx, req.RecordID, newQuantity)

	return domain.Applied(actorID, newQuantity)
}

// publishQuantity mirrors the committed value into the cache for the
// fast read path. Best effort: the adjustment already committed, so a
// cache failure is logged, not reported.
func (s *AdjustmentService) publishQuantity(ctx context.Context, recordID string, quantity int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetQuantity(ctx, recordID, quantity); err != nil {
		log.Printf("quantity snapshot failed for %s: %v", recordID, err)
	}
}

// releaseIdempotency frees a consumed request ID after a fault so the
// same request can be retried. Rejections keep the key: the request was
// evaluated.
func (s *AdjustmentService) releaseIdempotency(ctx context.Context, key string) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.ClearIdempotency(ctx, key); err != nil {
		log.Printf("idempotency release failed for %s: %v", key, err)
	}
}

func rollback(tx port.Tx) {
	if err := tx.Rollback(); err != nil {
		log.Printf("rollback failed: %v", err)
	}
}
