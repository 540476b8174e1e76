package domain

import "time"

// InventoryRecord is the contended row. Quantity never goes below zero
// in any committed state; Label is informational and never mutated here.
type InventoryRecord struct {
	ID        string
	Label     string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}
