// Package memory provides the in-memory implementation of the record
// store used for tests and as the authoritative semantics every durable
// backend mirrors.
package memory

import (
	"context"
	"sync"

	"registercore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.RecordStore = (*Store)(nil)

type table struct {
	rows   []domain.Record
	nextID int64
}

// Store keeps one insertion-ordered table per register type behind a
// single mutex, giving the single-active-writer model for free.
type Store struct {
	mu       sync.Mutex
	registry *domain.Registry
	formulas *domain.FormulaSet
	tables   map[domain.RegisterType]*table
}

// NewStore constructs an empty store over the given registry and
// formula set.
func NewStore(registry *domain.Registry, formulas *domain.FormulaSet) *Store {
	return &Store{
		registry: registry,
		formulas: formulas,
		tables:   make(map[domain.RegisterType]*table),
	}
}

// CreateMany atomically replaces the register's table. The replacement
// rows are validated and recomputed before the swap, so a failure leaves
// the previous table untouched.
func (s *Store) CreateMany(ctx context.Context, rt domain.RegisterType, records []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	schema, ok := s.registry.Schema(rt)
	if !ok {
		return domain.ErrUnknownRegister{Register: rt}
	}
	next := &table{rows: make([]domain.Record, 0, len(records)), nextID: 1}
	for _, rec := range records {
		row := rec.Clone()
		if !row.Conforms(schema) {
			padded := domain.NewRecord(schema)
			copy(padded.Values, row.Values)
			padded.Editor = row.Editor
			row = padded
		}
		row = s.formulas.Recompute(schema, row)
		row.ID = next.nextID
		next.nextID++
		next.rows = append(next.rows, row)
	}
	s.mu.Lock()
	s.tables[rt] = next
	s.mu.Unlock()
	return nil
}

// UpdateField writes one cell, cascades the derived columns, and stamps
// the editor, all under the store lock.
func (s *Store) UpdateField(ctx context.Context, rt domain.RegisterType, id int64, column string, value domain.Value, editor string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	schema, ok := s.registry.Schema(rt)
	if !ok {
		return domain.Record{}, domain.ErrUnknownRegister{Register: rt}
	}
	col, ok := schema.Column(column)
	if !ok {
		return domain.Record{}, domain.ErrUnknownColumn{Register: rt, Column: column}
	}
	if col.Derived() {
		return domain.Record{}, domain.ErrReadOnlyColumn{Register: rt, Column: column}
	}
	if !value.IsNull() && value.Kind != col.Kind {
		return domain.Record{}, domain.ErrTypeMismatch{Register: rt, Column: column, Want: col.Kind, Got: value.Kind}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.tables[rt]
	if !ok {
		return domain.Record{}, domain.ErrNotFound{Register: rt, ID: id}
	}
	for i, row := range tbl.rows {
		if row.ID != id {
			continue
		}
		updated := row.Clone()
		updated.Set(schema, column, value)
		updated = s.formulas.ApplyEdit(schema, updated, column)
		updated.Editor = editor
		tbl.rows[i] = updated
		return updated.Clone(), nil
	}
	return domain.Record{}, domain.ErrNotFound{Register: rt, ID: id}
}

// ScanAll returns a deep-copied snapshot in insertion order.
func (s *Store) ScanAll(ctx context.Context, rt domain.RegisterType) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := s.registry.Schema(rt); !ok {
		return nil, domain.ErrUnknownRegister{Register: rt}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl, ok := s.tables[rt]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Record, len(tbl.rows))
	for i, row := range tbl.rows {
		out[i] = row.Clone()
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
