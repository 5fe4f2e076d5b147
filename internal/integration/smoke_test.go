package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"registercore/internal/archive"
	"registercore/internal/core"
	"registercore/internal/infra/persistence/sqlite"
	"registercore/internal/ingest"
	"registercore/internal/query"
	"registercore/pkg/domain"
)

// TestLedgerLifecycle drives the full stack the way an operator would:
// import a messy spreadsheet into the durable store, inspect it through
// the query view, edit a field with its cascade, then export with
// backup rotation and an archived copy.
func TestLedgerLifecycle(t *testing.T) {
	ctx := context.Background()
	registry, err := domain.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	formulas := domain.NewFormulaSet()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "registers.db"), registry, formulas)
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	arch := archive.NewMemory()
	metrics := core.NewExpvarMetricsRecorder("")
	svc := core.NewService(store, registry, formulas,
		core.WithArchive(arch),
		core.WithMetricsRecorder(metrics),
	)
	t.Cleanup(func() { _ = svc.Close() })

	report := svc.Import(ctx, domain.RegisterContract, ingest.Table{
		Headers: []string{"Номер договора", "Дата заключения договора", "Срок оплаты по договору", "Фактическая дата оплаты", "Цена ЗУ по договору, руб.", "Оплачено", "примечание"},
		Rows: [][]string{
			{"101", "10.01.2024", "17.01.2024", "20.01.2024", "12 500,50", "250", "None"},
			{"102", "2024-01-11", "18.01.2024", "18.01.2024", "500", "500", "вторая"},
			{"", "", "", "", "", "", ""},
		},
	})
	if report.Err != nil || report.Imported != 2 || len(report.Rejected) != 1 {
		t.Fatalf("import report: %+v", report)
	}

	schema, _ := registry.Schema(domain.RegisterContract)
	records, err := svc.Records(ctx, domain.RegisterContract)
	if err != nil || len(records) != 2 {
		t.Fatalf("records: %d, %v", len(records), err)
	}

	// derived columns were stored by the import and survive the read
	if v, _ := records[0].Value(schema, domain.ColControlByDate); v.Int != 3 {
		t.Fatalf("control by date = %v", v)
	}
	flags := query.Flags(schema, formulas.Convention(), records[0])
	if !flags.Overdue || !flags.Warning {
		t.Fatalf("flags = %+v", flags)
	}
	if f := query.Flags(schema, formulas.Convention(), records[1]); f.Overdue {
		t.Fatalf("on-time row flagged: %+v", f)
	}

	// the filter tolerates the comma decimal separator
	matches, err := query.Filter(schema, records, domain.ColContractPrice, "12500,50")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if !matches[0].Matched || matches[1].Matched {
		t.Fatalf("filter matches: %+v", matches)
	}

	// agreement date edit cascades into the due date and its control
	updated, err := svc.EditField(ctx, domain.RegisterContract, 1, domain.ColAgreementDate, domain.DateValue("15.01.2024"), "ivanov")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if v, _ := updated.Value(schema, domain.ColPaymentDueDate); v.Text != "22.01.2024" {
		t.Fatalf("cascaded due date = %v", v)
	}
	if v, _ := updated.Value(schema, domain.ColControlByDate); v.Int != -2 {
		t.Fatalf("recomputed control = %v", v)
	}

	var readonly domain.ErrReadOnlyColumn
	if _, err := svc.EditField(ctx, domain.RegisterContract, 1, domain.ColUnpaidPenalty, domain.DecimalValue(1), "ivanov"); !errors.As(err, &readonly) {
		t.Fatalf("derived edit err = %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "contracts.csv")
	if _, err := svc.Export(ctx, domain.RegisterContract, exportPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	backup, err := svc.Export(ctx, domain.RegisterContract, exportPath)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if !strings.Contains(backup, "_backup_") {
		t.Fatalf("backup name = %q", backup)
	}
	if _, err := os.Stat(backup); err != nil {
		t.Fatalf("backup file: %v", err)
	}

	archived, err := arch.List(ctx, "exports/contract/")
	if err != nil || len(archived) != 2 {
		t.Fatalf("archived exports = %+v, err %v", archived, err)
	}

	snap := metrics.Snapshot()
	if snap.Results["import"]["success"] != 1 || snap.Results["edit_field"]["success"] != 1 {
		t.Fatalf("metrics snapshot: %+v", snap.Results)
	}
}
