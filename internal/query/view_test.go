package query

import (
	"errors"
	"testing"

	"registercore/pkg/domain"
)

func contractSchema(t *testing.T) *domain.Schema {
	t.Helper()
	reg, err := domain.NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	schema, _ := reg.Schema(domain.RegisterContract)
	return schema
}

func record(t *testing.T, s *domain.Schema, column string, v domain.Value) domain.Record {
	t.Helper()
	rec := domain.NewRecord(s)
	if !rec.Set(s, column, v) {
		t.Fatalf("set %s", column)
	}
	return rec
}

func matchedRows(ms []Match) []bool {
	out := make([]bool, len(ms))
	for i, m := range ms {
		out[i] = m.Matched
	}
	return out
}

func TestFilterNumericTolerance(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColContractPrice, domain.DecimalValue(12500.50)),
		record(t, s, domain.ColContractPrice, domain.DecimalValue(12500.60)),
		record(t, s, domain.ColContractPrice, domain.NullValue()),
	}
	ms, err := Filter(s, rows, domain.ColContractPrice, "12500,50")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := matchedRows(ms); !got[0] || got[1] || got[2] {
		t.Fatalf("matches = %v, want [true false false]", got)
	}
	if len(ms) != len(rows) {
		t.Fatalf("filter dropped rows: %d of %d", len(ms), len(rows))
	}
}

func TestFilterEmptyQueryMatchesAll(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColNote, domain.TextValue("a")),
		record(t, s, domain.ColNote, domain.NullValue()),
	}
	ms, err := Filter(s, rows, domain.ColNote, "")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	for i, m := range ms {
		if !m.Matched {
			t.Fatalf("row %d not matched by empty query", i)
		}
	}
}

func TestFilterSubstringCaseInsensitive(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColBuyer, domain.TextValue("ООО Ромашка, ИНН 123")),
		record(t, s, domain.ColBuyer, domain.TextValue("ИП Иванов")),
	}
	ms, err := Filter(s, rows, domain.ColBuyer, "ромашка")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := matchedRows(ms); !got[0] || got[1] {
		t.Fatalf("matches = %v", got)
	}
}

func TestFilterNumericColumnFallsBackToSubstring(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColContractPrice, domain.DecimalValue(12500.50)),
		record(t, s, domain.ColContractPrice, domain.DecimalValue(900)),
	}
	// a bare separator is not a number, so the rendered text is searched
	ms, err := Filter(s, rows, domain.ColContractPrice, ".")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := matchedRows(ms); !got[0] || got[1] {
		t.Fatalf("matches = %v", got)
	}
}

func TestFilterDateColumnSubstring(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColAgreementDate, domain.DateValue("10.01.2024")),
		record(t, s, domain.ColAgreementDate, domain.DateValue("10.02.2024")),
	}
	ms, err := Filter(s, rows, domain.ColAgreementDate, ".01.")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if got := matchedRows(ms); !got[0] || got[1] {
		t.Fatalf("matches = %v", got)
	}
}

func TestFilterUnknownColumn(t *testing.T) {
	s := contractSchema(t)
	_, err := Filter(s, nil, "no_such_column", "x")
	var unknown domain.ErrUnknownColumn
	if !errors.As(err, &unknown) || unknown.Column != "no_such_column" {
		t.Fatalf("err = %v", err)
	}
	if _, err := Sort(s, nil, "no_such_column", false); !errors.As(err, &unknown) {
		t.Fatalf("sort err = %v", err)
	}
}

func TestSortNumeric(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColContractPrice, domain.DecimalValue(10)),
		record(t, s, domain.ColContractPrice, domain.DecimalValue(2)),
		record(t, s, domain.ColContractPrice, domain.DecimalValue(1)),
	}
	sorted, err := Sort(s, rows, domain.ColContractPrice, false)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	assertOrder(t, renderColumn(s, sorted, domain.ColContractPrice), []string{"1", "2", "10"})

	desc, err := Sort(s, rows, domain.ColContractPrice, true)
	if err != nil {
		t.Fatalf("sort desc: %v", err)
	}
	assertOrder(t, renderColumn(s, desc, domain.ColContractPrice), []string{"10", "2", "1"})
}

func TestSortEmptyCellForcesLexicographic(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColContractPrice, domain.DecimalValue(10)),
		record(t, s, domain.ColContractPrice, domain.DecimalValue(2)),
		record(t, s, domain.ColContractPrice, domain.NullValue()),
	}
	sorted, err := Sort(s, rows, domain.ColContractPrice, false)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	// the unrenderable cell disqualifies numeric ordering: "10" < "2"
	assertOrder(t, renderColumn(s, sorted, domain.ColContractPrice), []string{"", "10", "2"})

	desc, err := Sort(s, rows, domain.ColContractPrice, true)
	if err != nil {
		t.Fatalf("sort desc: %v", err)
	}
	assertOrder(t, renderColumn(s, desc, domain.ColContractPrice), []string{"2", "10", ""})
}

func TestSortLexicographicFallback(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColNote, domain.TextValue("10")),
		record(t, s, domain.ColNote, domain.TextValue("банан")),
		record(t, s, domain.ColNote, domain.TextValue("2")),
	}
	sorted, err := Sort(s, rows, domain.ColNote, false)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	// one non-numeric cell forces string comparison: "10" < "2"
	assertOrder(t, renderColumn(s, sorted, domain.ColNote), []string{"10", "2", "банан"})
}

func TestSortStableTies(t *testing.T) {
	s := contractSchema(t)
	make3 := func(price float64, note string) domain.Record {
		rec := record(t, s, domain.ColContractPrice, domain.DecimalValue(price))
		rec.Set(s, domain.ColNote, domain.TextValue(note))
		return rec
	}
	rows := []domain.Record{make3(5, "a"), make3(5, "b"), make3(1, "c"), make3(5, "d")}
	sorted, err := Sort(s, rows, domain.ColContractPrice, false)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	assertOrder(t, renderColumn(s, sorted, domain.ColNote), []string{"c", "a", "b", "d"})
}

func TestSortDoesNotMutateInput(t *testing.T) {
	s := contractSchema(t)
	rows := []domain.Record{
		record(t, s, domain.ColContractPrice, domain.DecimalValue(2)),
		record(t, s, domain.ColContractPrice, domain.DecimalValue(1)),
	}
	if _, err := Sort(s, rows, domain.ColContractPrice, false); err != nil {
		t.Fatalf("sort: %v", err)
	}
	if v, _ := rows[0].Value(s, domain.ColContractPrice); v.Decimal != 2 {
		t.Fatalf("input reordered in place")
	}
}

func TestFlagsConventions(t *testing.T) {
	s := contractSchema(t)
	overdue := domain.NewRecord(s)
	overdue.Set(s, domain.ColPaymentDueDate, domain.DateValue("17.01.2024"))
	overdue.Set(s, domain.ColActualPaymentDate, domain.DateValue("20.01.2024"))
	overdue = domain.NewFormulaSet().Recompute(s, overdue)

	if f := Flags(s, domain.ConventionPositiveOverdue, overdue); !f.Overdue {
		t.Fatalf("positive convention missed overdue row: %+v", f)
	}
	// same stored record under the opposite convention reads as early
	if f := Flags(s, domain.ConventionNegativeOverdue, overdue); f.Overdue {
		t.Fatalf("negative convention flagged positive control: %+v", f)
	}
}

func TestFlagsMatchDedicatedFormulaSet(t *testing.T) {
	s := contractSchema(t)
	rec := domain.NewRecord(s)
	rec.Set(s, domain.ColPaymentDueDate, domain.DateValue("17.01.2024"))
	rec.Set(s, domain.ColActualPaymentDate, domain.DateValue("20.01.2024"))
	rec.Set(s, domain.ColContractPrice, domain.DecimalValue(100))
	rec = domain.NewFormulaSet().Recompute(s, rec)

	for _, conv := range []domain.DateControlConvention{
		domain.ConventionPositiveOverdue,
		domain.ConventionNegativeOverdue,
	} {
		want := domain.NewFormulaSet(domain.WithDateControlConvention(conv)).Flags(s, rec)
		for i := 0; i < 3; i++ {
			if got := Flags(s, conv, rec); got != want {
				t.Fatalf("convention %v call %d: got %+v, want %+v", conv, i, got, want)
			}
		}
	}
}

func renderColumn(s *domain.Schema, rows []domain.Record, column string) []string {
	out := make([]string, len(rows))
	for i, rec := range rows {
		v, _ := rec.Value(s, column)
		out[i] = v.Render()
	}
	return out
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
