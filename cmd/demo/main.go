package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vhoang/stock-guard/internal/adapter/storage"
	"github.com/vhoang/stock-guard/internal/core/domain"
	"github.com/vhoang/stock-guard/internal/core/service"
	"github.com/vhoang/stock-guard/internal/port"
)

// Fires a batch of concurrent adjustments at one record and reports the
// per-actor outcomes. Runs against the in-memory store by default;
// set MYSQL_DSN to run the same contention against a live MySQL.
func main() {
	recordID := flag.String("record", "sku-widget-1", "record id to contend on")
	quantity := flag.Int("quantity", 5, "initial quantity seeded before the run")
	deltasArg := flag.String("deltas", "-1,-2,-2,+2,-1", "comma-separated deltas, one concurrent actor each")
	flag.Parse()

	deltas, err := parseDeltas(*deltasArg)
	if err != nil {
		log.Fatalf("invalid -deltas: %v", err)
	}

	ctx := context.Background()

	store, finalQuantity := setupStore(ctx, *recordID, *quantity)

	adjuster := service.NewAdjustmentService(store, nil)
	dispatcher := service.NewDispatcher(adjuster)

	start := time.Now()
	outcomes := dispatcher.Run(ctx, *recordID, deltas)
	elapsed := time.Since(start)

	var applied, rejected, failed int
	for _, out := range outcomes {
		switch out.Status {
		case domain.OutcomeApplied:
			applied++
		case domain.OutcomeRejected:
			rejected++
		default:
			failed++
		}
	}

	fmt.Println("========== CONTENTION RUN ==========")
	fmt.Printf("Record:          %s\n", *recordID)
	fmt.Printf("Initial:         %d\n", *quantity)
	fmt.Printf("Actors:          %d\n", len(deltas))
	fmt.Printf("Applied:         %d\n", applied)
	fmt.Printf("Rejected:        %d\n", rejected)
	fmt.Printf("Failed:          %d\n", failed)
	fmt.Printf("Duration:        %v\n", elapsed)

	if final, ok := finalQuantity(); ok {
		fmt.Printf("Final quantity:  %d\n", final)
		if final >= 0 {
			fmt.Println("PASS: final quantity is non-negative")
		} else {
			fmt.Println("FAIL: final quantity is negative")
		}
	}
	fmt.Println("====================================")
}

func parseDeltas(arg string) ([]int, error) {
	parts := strings.Split(arg, ",")
	deltas := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}

// setupStore seeds the record and returns the store plus a reader for
// the final committed quantity.
func setupStore(ctx context.Context, recordID string, quantity int) (port.LockingStore, func() (int, bool)) {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			log.Fatalf("failed to connect mysql: %v", err)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("failed to ping mysql: %v", err)
		}

		store := storage.NewMySQLStore(db)
		if err := store.UpsertRecord(ctx, domain.InventoryRecord{ID: recordID, Label: "demo", Quantity: quantity}); err != nil {
			log.Fatalf("failed to seed record: %v", err)
		}
		log.Printf("running against mysql, record %s = %d", recordID, quantity)

		return store, func() (int, bool) {
			rec, err := store.GetRecord(ctx, recordID)
			if err != nil || rec == nil {
				return 0, false
			}
			return rec.Quantity, true
		}
	}

	store := storage.NewMemStore()
	store.Seed(domain.InventoryRecord{ID: recordID, Label: "demo", Quantity: quantity})
	log.Printf("running against in-memory store, record %s = %d", recordID, quantity)

	return store, func() (int, bool) {
		return store.Quantity(recordID)
	}
}
