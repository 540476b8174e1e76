package service

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/vhoang/stock-guard/internal/core/domain"
)

func TestDispatcher_ContendedScenario(t *testing.T) {
	// Starting at 5, every serialization of these deltas ends between 1
	// and 5, with at most one insufficient_quantity rejection depending
	// on lock-grant order.
	const q0 = 5
	deltas := []int{-1, -2, -2, +2, -1}

	store := newMockStore(map[string]int{"item-1": q0})
	dispatcher := NewDispatcher(NewAdjustmentService(store, nil))

	outcomes := dispatcher.Run(context.Background(), "item-1", deltas)

	if len(outcomes) != len(deltas) {
		t.Fatalf("expected %d outcomes, got %d", len(deltas), len(outcomes))
	}

	appliedSum := 0
	rejections := 0
	seen := make(map[string]bool)
	for _, out := range outcomes {
		if seen[out.ActorID] {
			t.Errorf("duplicate actor id %s", out.ActorID)
		}
		seen[out.ActorID] = true

		switch out.Status {
		case domain.OutcomeApplied:
			if out.NewQuantity < 0 {
				t.Errorf("%s: applied outcome with negative quantity %d", out.ActorID, out.NewQuantity)
			}
			appliedSum += deltaFor(t, out.ActorID, deltas)
		case domain.OutcomeRejected:
			rejections++
			if out.Reason != domain.ReasonInsufficientQuantity {
				t.Errorf("%s: unexpected rejection reason %s", out.ActorID, out.Reason)
			}
		default:
			t.Errorf("%s: unexpected failure: %v", out.ActorID, out.Cause)
		}
	}

	if rejections > 1 {
		t.Errorf("expected at most one rejection, got %d", rejections)
	}

	final := store.quantity("item-1")
	if final != q0+appliedSum {
		t.Errorf("conservation violated: final %d, expected %d", final, q0+appliedSum)
	}
	if final < 1 || final > 5 {
		t.Errorf("final quantity %d outside the reachable range [1,5]", final)
	}
	if store.overlapped.Load() {
		t.Error("lock hold intervals overlapped")
	}
	if !store.closedOnce() {
		t.Error("a transaction was not closed exactly once")
	}
}

func TestDispatcher_AllIncrements(t *testing.T) {
	store := newMockStore(map[string]int{"item-1": 0})
	dispatcher := NewDispatcher(NewAdjustmentService(store, nil))

	outcomes := dispatcher.Run(context.Background(), "item-1", []int{1, 2, 3, 4})

	for _, out := range outcomes {
		if out.Status != domain.OutcomeApplied {
			t.Errorf("%s: expected applied, got %s", out.ActorID, out.Status)
		}
	}
	if final := store.quantity("item-1"); final != 10 {
		t.Errorf("expected final quantity 10, got %d", final)
	}
}

func TestDispatcher_MissingRecord(t *testing.T) {
	store := newMockStore(map[string]int{})
	dispatcher := NewDispatcher(NewAdjustmentService(store, nil))

	outcomes := dispatcher.Run(context.Background(), "ghost", []int{-1, -1, -1})

	for _, out := range outcomes {
		if out.Status != domain.OutcomeRejected || out.Reason != domain.ReasonNotFound {
			t.Errorf("%s: expected not_found rejection, got %s/%s", out.ActorID, out.Status, out.Reason)
		}
	}
	if !store.closedOnce() {
		t.Error("a transaction was not closed exactly once")
	}
}

// deltaFor maps the dispatcher's actor-N id back to its delta.
func deltaFor(t *testing.T, actorID string, deltas []int) int {
	t.Helper()

	idx, err := strconv.Atoi(strings.TrimPrefix(actorID, "actor-"))
	if err != nil || idx < 0 || idx >= len(deltas) {
		t.Fatalf("unexpected actor id %s", actorID)
	}
	return deltas[idx]
}
