// Package ingest turns externally supplied tabular data into canonical
// register records: header reconciliation against a synonym table, typed
// cell coercion, and row-at-a-time fault isolation.
package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"registercore/pkg/domain"
)

// Table is the bulk import boundary: an untyped header row plus data
// rows, as read from a spreadsheet or CSV by the caller.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Reject describes one input row that could not produce a record. Row is
// the zero-based index into Table.Rows.
type Reject struct {
	Row    int
	Reason string
}

// Normalizer maps heterogeneous tabular input onto the canonical column
// schema of a register. It is stateless across calls apart from the
// static synonym table.
type Normalizer struct {
	registry *domain.Registry
	synonyms map[string]string
}

// NewNormalizer constructs a normalizer with the built-in header synonym
// table extended by the canonical column names themselves.
func NewNormalizer(registry *domain.Registry) *Normalizer {
	syn := make(map[string]string, len(headerSynonyms)*2)
	for raw, canonical := range headerSynonyms {
		syn[foldHeader(raw)] = canonical
	}
	for _, rt := range registry.Types() {
		for _, col := range registry.ColumnsFor(rt) {
			syn[foldHeader(col.Name)] = col.Name
		}
	}
	return &Normalizer{registry: registry, synonyms: syn}
}

// Normalize produces canonical rows in input order plus a report of
// rejected rows. A single bad row never aborts the batch; the caller
// commits the surviving rows with one CreateMany.
func (n *Normalizer) Normalize(rt domain.RegisterType, t Table) ([]domain.Record, []Reject, error) {
	schema, ok := n.registry.Schema(rt)
	if !ok {
		return nil, nil, domain.ErrUnknownRegister{Register: rt}
	}

	// Header reconciliation: map each input column to a schema ordinal,
	// first occurrence wins, unmatched headers are dropped.
	target := make([]int, len(t.Headers))
	claimed := make(map[int]bool, schema.Len())
	for i, header := range t.Headers {
		target[i] = -1
		name, ok := n.synonyms[foldHeader(header)]
		if !ok {
			continue
		}
		idx, ok := schema.Index(name)
		if !ok || claimed[idx] {
			continue
		}
		col, _ := schema.Column(name)
		if col.Derived() {
			// calculated columns are never imported, only computed
			continue
		}
		claimed[idx] = true
		target[i] = idx
	}

	records := make([]domain.Record, 0, len(t.Rows))
	var rejected []Reject
	for rowIdx, cells := range t.Rows {
		rec, reason := n.normalizeRow(schema, target, cells)
		if reason != "" {
			rejected = append(rejected, Reject{Row: rowIdx, Reason: reason})
			continue
		}
		records = append(records, rec)
	}
	return records, rejected, nil
}

func (n *Normalizer) normalizeRow(schema *domain.Schema, target []int, cells []string) (domain.Record, string) {
	empty := true
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			empty = false
			break
		}
	}
	if empty {
		return domain.Record{}, "empty row"
	}

	rec := domain.NewRecord(schema)
	cols := schema.Columns()
	for cellIdx, schemaIdx := range target {
		if schemaIdx < 0 || cellIdx >= len(cells) {
			continue
		}
		col := cols[schemaIdx]
		value, err := coerce(col, cells[cellIdx])
		if err != nil {
			return domain.Record{}, err.Error()
		}
		rec.Values[schemaIdx] = value
	}
	return rec, ""
}

// coerce applies the per-kind coercion policy. Only a required column
// with a present but unparsable cell produces an error; every other
// failure defaults to 0 or Null per the column's declared fallback.
func coerce(col domain.ColumnSpec, raw string) (domain.Value, error) {
	trimmed := strings.TrimSpace(raw)
	switch col.Kind {
	case domain.KindInteger:
		n, ok := domain.ParseInteger(trimmed)
		if ok {
			return domain.IntegerValue(n), nil
		}
		if col.Required && trimmed != "" && !isMissingToken(trimmed) {
			return domain.Value{}, fmt.Errorf("invalid %s: %q", col.Name, trimmed)
		}
		return domain.NullValue(), nil
	case domain.KindDecimal:
		f, ok := domain.ParseDecimal(trimmed)
		if ok {
			return domain.DecimalValue(f), nil
		}
		if col.ZeroFallback {
			return domain.DecimalValue(0), nil
		}
		return domain.NullValue(), nil
	case domain.KindDate:
		if canonical, ok := domain.ParseDate(trimmed); ok {
			return domain.DateValue(canonical), nil
		}
		return domain.NullValue(), nil
	default:
		return coerceText(trimmed), nil
	}
}

func coerceText(s string) domain.Value {
	if s == "" || isMissingToken(s) {
		return domain.TextValue("")
	}
	// strip a bare ".0" artifact from numeric-origin columns
	if trimmed, ok := strings.CutSuffix(s, ".0"); ok && isDigits(trimmed) {
		return domain.TextValue(trimmed)
	}
	return domain.TextValue(s)
}

// missing-value tokens produced by spreadsheet tooling
var missingTokens = []string{"none", "nan", "null"}

func isMissingToken(s string) bool {
	for _, tok := range missingTokens {
		if strings.EqualFold(s, tok) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// foldHeader reduces a header to its comparison skeleton: lower-cased,
// quote characters removed, every run of non-letter/digit characters
// collapsed to a single space.
func foldHeader(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '"' || r == '\'' || r == '«' || r == '»' || r == '“' || r == '”' || r == '„':
			// quotes vanish entirely so «"-" - просрочка» style suffixes fold cleanly
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
