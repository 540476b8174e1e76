package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/vhoang/stock-guard/internal/core/domain"
)

// Dispatcher fires one goroutine per delta against a single record and
// collects the outcomes. It does no serialization of its own; correctness
// under contention is entirely the AdjustmentService's locking.
type Dispatcher struct {
	adjuster *AdjustmentService
}

func NewDispatcher(adjuster *AdjustmentService) *Dispatcher {
	return &Dispatcher{adjuster: adjuster}
}

// Run blocks until every actor finishes and returns the outcomes in
// completion order, which is unspecified. The entered/completed log
// lines exist to make the interleaving visible; nothing depends on them.
func (d *Dispatcher) Run(ctx context.Context, recordID string, deltas []int) []domain.AdjustmentOutcome {
	outcomes := make(chan domain.AdjustmentOutcome, len(deltas))

	var wg sync.WaitGroup
	for i, delta := range deltas {
		wg.Add(1)
		go func(actorID string, delta int) {
			defer wg.Done()

			log.Printf("%s: entered with delta %+d on %s", actorID, delta, recordID)

			req := domain.AdjustmentRequest{
				ID:       uuid.NewString(),
				RecordID: recordID,
				Delta:    delta,
			}
			out := d.adjuster.Apply(ctx, actorID, req)

			log.Printf("%s: completed, %s", actorID, out)
			outcomes <- out
		}(fmt.Sprintf("actor-%d", i), delta)
	}

	wg.Wait()
	close(outcomes)

	results := make([]domain.AdjustmentOutcome, 0, len(deltas))
	for out := range outcomes {
		results = append(results, out)
	}
	return results
}
