// Package postgres provides a Postgres-backed record store with the same
// relational layout and semantics as the sqlite backend, for deployments
// that keep the registers in a shared database server.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"registercore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion.
var _ domain.RecordStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/registercore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists register tables to Postgres.
type Store struct {
	mu       sync.Mutex
	db       *sql.DB
	registry *domain.Registry
	formulas *domain.FormulaSet
}

// NewStore opens a Postgres-backed store using the provided DSN (falls
// back to defaultDSN) and ensures every register table exists.
func NewStore(dsn string, registry *domain.Registry, formulas *domain.FormulaSet) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, rt := range registry.Types() {
		schema, _ := registry.Schema(rt)
		if _, err := db.ExecContext(ctx, createTableDDL(schema)); err != nil {
			return nil, fmt.Errorf("create table %s: %w", tableName(rt), err)
		}
	}
	return &Store{db: db, registry: registry, formulas: formulas}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// CreateMany replaces the register table inside one transaction.
func (s *Store) CreateMany(ctx context.Context, rt domain.RegisterType, records []domain.Record) error {
	schema, ok := s.registry.Schema(rt)
	if !ok {
		return domain.ErrUnknownRegister{Register: rt}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+tableName(rt)); err != nil {
		return fmt.Errorf("clear %s: %w", tableName(rt), err)
	}
	insert := insertSQL(schema)
	for _, rec := range records {
		row := conformed(schema, rec)
		row = s.formulas.Recompute(schema, row)
		args := make([]any, 0, schema.Len()+1)
		for _, v := range row.Values {
			args = append(args, driverValue(v))
		}
		args = append(args, row.Editor)
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName(rt), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// UpdateField persists the edited cell, recomputed dependents and editor
// stamp in one transaction, locking the row for the duration.
func (s *Store) UpdateField(ctx context.Context, rt domain.RegisterType, id int64, column string, value domain.Value, editor string) (domain.Record, error) {
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Record{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, selectSQL(schema)+" WHERE id = $1 FOR UPDATE", id)
	rec, err := scanRecord(schema, row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrNotFound{Register: rt, ID: id}
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("load record %d: %w", id, err)
	}

	rec.Set(schema, column, value)
	rec = s.formulas.ApplyEdit(schema, rec, column)
	rec.Editor = editor

	args := make([]any, 0, schema.Len()+2)
	for _, v := range rec.Values {
		args = append(args, driverValue(v))
	}
	args = append(args, rec.Editor, id)
	if _, err := tx.ExecContext(ctx, updateSQL(schema), args...); err != nil {
		return domain.Record{}, fmt.Errorf("update %s: %w", tableName(rt), err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Record{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return rec, nil
}

// ScanAll reads the full table in insertion (id) order.
func (s *Store) ScanAll(ctx context.Context, rt domain.RegisterType) ([]domain.Record, error) {
	schema, ok := s.registry.Schema(rt)
	if !ok {
		return nil, domain.ErrUnknownRegister{Register: rt}
	}
	rows, err := s.db.QueryContext(ctx, selectSQL(schema)+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", tableName(rt), err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Record
	for rows.Next() {
		rec, err := scanRecord(schema, rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", tableName(rt), err)
	}
	return out, nil
}

func tableName(rt domain.RegisterType) string { return string(rt) + "s" }

func sqlType(k domain.Kind) string {
	switch k {
	case domain.KindInteger:
		return "BIGINT"
	case domain.KindDecimal:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createTableDDL(schema *domain.Schema) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(tableName(schema.Type()))
	b.WriteString(" (\n\tid BIGSERIAL PRIMARY KEY")
	for _, col := range schema.Columns() {
		b.WriteString(",\n\t")
		b.WriteString(quoteIdent(col.Name))
		b.WriteString(" ")
		b.WriteString(sqlType(col.Kind))
	}
	b.WriteString(",\n\teditor TEXT\n)")
	return b.String()
}

func selectSQL(schema *domain.Schema) string {
	names := make([]string, 0, schema.Len()+2)
	names = append(names, "id")
	for _, col := range schema.Columns() {
		names = append(names, quoteIdent(col.Name))
	}
	names = append(names, "editor")
	return "SELECT " + strings.Join(names, ", ") + " FROM " + tableName(schema.Type())
}

func insertSQL(schema *domain.Schema) string {
	names := make([]string, 0, schema.Len()+1)
	marks := make([]string, 0, schema.Len()+1)
	for _, col := range schema.Columns() {
		names = append(names, quoteIdent(col.Name))
		marks = append(marks, fmt.Sprintf("$%d", len(marks)+1))
	}
	names = append(names, "editor")
	marks = append(marks, fmt.Sprintf("$%d", len(marks)+1))
	return "INSERT INTO " + tableName(schema.Type()) +
		" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
}

func updateSQL(schema *domain.Schema) string {
	sets := make([]string, 0, schema.Len()+1)
	for _, col := range schema.Columns() {
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdent(col.Name), len(sets)+1))
	}
	sets = append(sets, fmt.Sprintf("editor = $%d", len(sets)+1))
	return "UPDATE " + tableName(schema.Type()) + " SET " + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d", schema.Len()+2)
}

func driverValue(v domain.Value) any {
	switch v.Kind {
	case domain.KindInteger:
		return v.Int
	case domain.KindDecimal:
		return v.Decimal
	case domain.KindDate, domain.KindText:
		return v.Text
	default:
		return nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(schema *domain.Schema, row rowScanner) (domain.Record, error) {
	cols := schema.Columns()
	var id int64
	var editor sql.NullString
	ints := make([]sql.NullInt64, len(cols))
	floats := make([]sql.NullFloat64, len(cols))
	texts := make([]sql.NullString, len(cols))

	dest := make([]any, 0, len(cols)+2)
	dest = append(dest, &id)
	for i, col := range cols {
		switch col.Kind {
		case domain.KindInteger:
			dest = append(dest, &ints[i])
		case domain.KindDecimal:
			dest = append(dest, &floats[i])
		default:
			dest = append(dest, &texts[i])
		}
	}
	dest = append(dest, &editor)
	if err := row.Scan(dest...); err != nil {
		return domain.Record{}, err
	}

	rec := domain.NewRecord(schema)
	rec.ID = id
	rec.Editor = editor.String
	for i, col := range cols {
		switch col.Kind {
		case domain.KindInteger:
			if ints[i].Valid {
				rec.Values[i] = domain.IntegerValue(ints[i].Int64)
			}
		case domain.KindDecimal:
			if floats[i].Valid {
				rec.Values[i] = domain.DecimalValue(floats[i].Float64)
			}
		case domain.KindDate:
			if texts[i].Valid && texts[i].String != "" {
				rec.Values[i] = domain.DateValue(texts[i].String)
			}
		default:
			// empty text is a value, only SQL NULL maps back to Null
			if texts[i].Valid {
				rec.Values[i] = domain.TextValue(texts[i].String)
			}
		}
	}
	return rec, nil
}

func conformed(schema *domain.Schema, rec domain.Record) domain.Record {
	if rec.Conforms(schema) {
		return rec.Clone()
	}
	padded := domain.NewRecord(schema)
	copy(padded.Values, rec.Values)
	padded.Editor = rec.Editor
	return padded
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
