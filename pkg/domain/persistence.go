package domain

import "context"

// RecordStore is the durable keyed collection of canonical records, one
// table per register type. Implementations guarantee a single active
// writer per register and never expose a record whose derived columns
// are stale relative to its sources.
type RecordStore interface {
	// CreateMany atomically replaces the entire table for the register
	// type. On failure no partial rows remain.
	CreateMany(ctx context.Context, rt RegisterType, records []Record) error
	// UpdateField persists one writable cell, the recomputation of every
	// dependent derived cell, and the editor attribution stamp as a
	// single unit. It fails with ErrReadOnlyColumn, ErrNotFound or
	// ErrTypeMismatch without touching the record.
	UpdateField(ctx context.Context, rt RegisterType, id int64, column string, value Value, editor string) (Record, error)
	// ScanAll returns a full snapshot of the table in insertion order.
	// Derived columns are stored, never recomputed on read.
	ScanAll(ctx context.Context, rt RegisterType) ([]Record, error)
	// Close releases the underlying resources.
	Close() error
}
