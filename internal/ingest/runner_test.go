package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"registercore/internal/infra/persistence/memory"
	"registercore/pkg/domain"
)

type failingStore struct {
	domain.RecordStore
	err error
}

func (f *failingStore) CreateMany(ctx context.Context, rt domain.RegisterType, records []domain.Record) error {
	return f.err
}

func TestRunnerDeliversSingleReport(t *testing.T) {
	reg, err := domain.NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	store := memory.NewStore(reg, domain.NewFormulaSet())
	runner := NewRunner(store, NewNormalizer(reg))

	table := Table{
		Headers: []string{"Номер договора", "Оплачено"},
		Rows: [][]string{
			{"1", "100"},
			{"", ""}, // empty row is rejected, not committed
			{"2", "200"},
		},
	}
	done := runner.Run(context.Background(), domain.RegisterContract, table)

	var report Report
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("import did not complete")
	}
	if report.Err != nil {
		t.Fatalf("report err: %v", report.Err)
	}
	if report.Register != domain.RegisterContract {
		t.Fatalf("register = %q", report.Register)
	}
	if report.Imported != 2 || len(report.Rejected) != 1 {
		t.Fatalf("imported %d rejected %d", report.Imported, len(report.Rejected))
	}

	// the channel delivers exactly one report
	select {
	case extra, ok := <-done:
		if ok {
			t.Fatalf("second report delivered: %+v", extra)
		}
	default:
	}

	records, err := store.ScanAll(context.Background(), domain.RegisterContract)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("store holds %d records, want 2", len(records))
	}
}

func TestRunnerAbortsOnUnknownRegister(t *testing.T) {
	reg, _ := domain.NewRegistry()
	store := memory.NewStore(reg, domain.NewFormulaSet())
	runner := NewRunner(store, NewNormalizer(reg))

	report := runner.RunSync(context.Background(), domain.RegisterType("ghost"), Table{})
	if !errors.Is(report.Err, domain.ErrImportAborted) {
		t.Fatalf("err = %v, want ErrImportAborted", report.Err)
	}
	if report.Imported != 0 {
		t.Fatalf("imported = %d on aborted run", report.Imported)
	}
}

func TestRunnerAbortsOnStoreFailure(t *testing.T) {
	reg, _ := domain.NewRegistry()
	runner := NewRunner(&failingStore{err: errors.New("disk full")}, NewNormalizer(reg))

	table := Table{Headers: []string{"Номер договора"}, Rows: [][]string{{"1"}}}
	report := runner.RunSync(context.Background(), domain.RegisterContract, table)
	if !errors.Is(report.Err, domain.ErrImportAborted) {
		t.Fatalf("err = %v, want ErrImportAborted", report.Err)
	}
}
