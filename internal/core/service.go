// Package core wires the register domain together: imports through the
// normalizer, field edits with derived-column recomputation, exports
// with backup rotation, and the observability ports around all of it.
package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"registercore/internal/archive"
	"registercore/internal/ingest"
	"registercore/pkg/domain"
)

// backupStamp is the timestamp layout appended to rotated export files.
const backupStamp = "20060102150405"

// Service exposes the transactional operations of the register system
// over an injected record store.
type Service struct {
	registry *domain.Registry
	formulas *domain.FormulaSet
	store    domain.RecordStore
	runner   *ingest.Runner
	archive  archive.Store
	logger   Logger
	metrics  MetricsRecorder
	clock    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger injects the logging backend.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder injects the metrics backend.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the time source used for default dates and backup
// stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithArchive attaches an artifact archive; exports and imported
// sources are copied into it when present.
func WithArchive(a archive.Store) Option {
	return func(s *Service) { s.archive = a }
}

// NewService constructs a service over the given store, registry and
// formula set.
func NewService(store domain.RecordStore, registry *domain.Registry, formulas *domain.FormulaSet, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		formulas: formulas,
		store:    store,
		runner:   ingest.NewRunner(store, ingest.NewNormalizer(registry)),
		logger:   noopLogger{},
		metrics:  noopMetricsRecorder{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the schema registry backing the service.
func (s *Service) Registry() *domain.Registry { return s.registry }

// Import replaces the register's table with the normalized contents of
// the given source table and reports row counts and rejects.
func (s *Service) Import(ctx context.Context, rt domain.RegisterType, t ingest.Table) ingest.Report {
	start := time.Now()
	report := s.runner.RunSync(ctx, rt, t)
	s.observe(ctx, "import", start, report.Err)
	if report.Err == nil {
		s.logger.Info("import committed", "register", rt, "imported", report.Imported, "rejected", len(report.Rejected))
	}
	return report
}

// ImportAsync runs the import off the caller's goroutine. The returned
// channel delivers exactly one report.
func (s *Service) ImportAsync(ctx context.Context, rt domain.RegisterType, t ingest.Table) <-chan ingest.Report {
	done := make(chan ingest.Report, 1)
	go func() {
		done <- s.Import(ctx, rt, t)
	}()
	return done
}

// Records returns the full snapshot of one register in insertion order.
func (s *Service) Records(ctx context.Context, rt domain.RegisterType) ([]domain.Record, error) {
	start := time.Now()
	records, err := s.store.ScanAll(ctx, rt)
	s.observe(ctx, "scan", start, err)
	return records, err
}

// EditField updates one cell, recomputes dependents and stamps the
// editor, all inside the store's atomic unit. The updated record is
// returned as stored.
func (s *Service) EditField(ctx context.Context, rt domain.RegisterType, id int64, column string, value domain.Value, editor string) (domain.Record, error) {
	start := time.Now()
	updated, err := s.store.UpdateField(ctx, rt, id, column, value, editor)
	s.observe(ctx, "edit_field", start, err)
	if err == nil {
		s.logger.Info("field updated", "register", rt, "id", id, "column", column, "editor", editor)
	}
	return updated, err
}

// NewRecord appends a record populated with the register's defaults and
// returns it with its assigned id.
func (s *Service) NewRecord(ctx context.Context, rt domain.RegisterType, editor string) (domain.Record, error) {
	start := time.Now()
	rec, err := s.newRecord(ctx, rt, editor)
	s.observe(ctx, "new_record", start, err)
	return rec, err
}

func (s *Service) newRecord(ctx context.Context, rt domain.RegisterType, editor string) (domain.Record, error) {
	schema, ok := s.registry.Schema(rt)
	if !ok {
		return domain.Record{}, domain.ErrUnknownRegister{Register: rt}
	}
	existing, err := s.store.ScanAll(ctx, rt)
	if err != nil {
		return domain.Record{}, fmt.Errorf("scan before append: %w", err)
	}

	rec := s.defaultRecord(schema)
	rec.Editor = editor
	if err := s.store.CreateMany(ctx, rt, append(existing, rec)); err != nil {
		return domain.Record{}, fmt.Errorf("append record: %w", err)
	}
	all, err := s.store.ScanAll(ctx, rt)
	if err != nil || len(all) == 0 {
		return domain.Record{}, fmt.Errorf("scan after append: %w", err)
	}
	return all[len(all)-1], nil
}

// defaultRecord mirrors the blank-row defaults of the original ledger:
// today's agreement and due dates, placeholder counterparty details and
// zeroed money columns. Non-contract registers start fully empty.
func (s *Service) defaultRecord(schema *domain.Schema) domain.Record {
	rec := domain.NewRecord(schema)
	if schema.Type() != domain.RegisterContract {
		return rec
	}
	today := s.clock().Format(domain.DateLayout)
	rec.Set(schema, domain.ColAgreementDate, domain.DateValue(today))
	rec.Set(schema, domain.ColPaymentDueDate, domain.DateValue(today))
	rec.Set(schema, domain.ColBuyer, domain.TextValue(`ООО "Пример", ИНН 0000000000`))
	rec.Set(schema, domain.ColParcelCadastral, domain.TextValue("00:00:0000000:00, г. Пример"))
	rec.Set(schema, domain.ColLegalBasis, domain.TextValue("Номер ЗК РФ"))
	for _, col := range []string{domain.ColContractPrice, domain.ColAmountPaid, domain.ColAccruedPenalty, domain.ColPaidPenalty} {
		rec.Set(schema, col, domain.DecimalValue(0))
	}
	return rec
}

// Export writes the register as CSV to path. An existing file at path
// is first rotated to "<path>_backup_<timestamp><ext>". The returned
// string is the backup name, empty when nothing was rotated.
func (s *Service) Export(ctx context.Context, rt domain.RegisterType, path string) (string, error) {
	start := time.Now()
	backup, err := s.export(ctx, rt, path)
	s.observe(ctx, "export", start, err)
	if err == nil {
		s.logger.Info("export written", "register", rt, "path", path, "backup", backup)
	}
	return backup, err
}

func (s *Service) export(ctx context.Context, rt domain.RegisterType, path string) (string, error) {
	schema, ok := s.registry.Schema(rt)
	if !ok {
		return "", domain.ErrUnknownRegister{Register: rt}
	}
	records, err := s.store.ScanAll(ctx, rt)
	if err != nil {
		return "", fmt.Errorf("scan for export: %w", err)
	}

	stamp := s.clock().Format(backupStamp)
	backup := ""
	if _, err := os.Stat(path); err == nil {
		backup = fmt.Sprintf("%s_backup_%s%s", path, stamp, filepath.Ext(path))
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("rotate previous export: %w", err)
		}
	}

	if err := writeCSV(path, schema, records); err != nil {
		return backup, err
	}
	if s.archive != nil {
		if err := s.archiveFile(ctx, fmt.Sprintf("exports/%s/%s-%s", rt, stamp, filepath.Base(path)), path); err != nil {
			s.logger.Warn("export archived copy failed", "register", rt, "error", err)
		}
	}
	return backup, nil
}

// ArchiveSource stores the raw bytes of an imported file so the
// pre-normalization source stays reproducible. A no-op without an
// attached archive.
func (s *Service) ArchiveSource(ctx context.Context, rt domain.RegisterType, name, path string) error {
	if s.archive == nil {
		return nil
	}
	key := fmt.Sprintf("imports/%s/%s-%s", rt, s.clock().Format(backupStamp), name)
	return s.archiveFile(ctx, key, path)
}

func (s *Service) archiveFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.archive.Put(ctx, key, f, archive.PutOptions{ContentType: "text/csv"})
	return err
}

// Close releases the underlying store.
func (s *Service) Close() error { return s.store.Close() }

func (s *Service) observe(ctx context.Context, operation string, start time.Time, err error) {
	s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	if err != nil {
		s.logger.Error(operation+" failed", "error", err)
	} else {
		s.logger.Debug(operation + " ok")
	}
}

func writeCSV(path string, schema *domain.Schema, records []domain.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	w := csv.NewWriter(f)

	cols := schema.Columns()
	header := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		header = append(header, col.Name)
	}
	header = append(header, "editor")
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, v := range rec.Values {
			row[i] = v.Render()
		}
		row[len(row)-1] = rec.Editor
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
