// Package query implements the read-side view over a register snapshot:
// per-column filtering, ordering, and row highlighting. It never touches
// a store; callers hand it the records from one ScanAll.
package query

import (
	"math"
	"sort"
	"strings"

	"registercore/pkg/domain"
)

// Match pairs a record with the outcome of one filter evaluation. Every
// input row is returned so callers can highlight matches in place
// instead of collapsing the table.
type Match struct {
	Record  domain.Record
	Matched bool
}

// relTolerance absorbs decimal-separator and formatting round-trips when
// comparing a parsed query against a stored numeric cell.
const relTolerance = 1e-9

// Filter evaluates q against the named column of every row. Numeric
// columns first try a numeric comparison (comma or dot decimal
// separator, small relative tolerance); when q is not a number, and for
// text and date columns always, matching falls back to case-insensitive
// substring search over the rendered cell. An empty query matches every
// row.
func Filter(s *domain.Schema, rows []domain.Record, column, q string) ([]Match, error) {
	col, ok := s.Column(column)
	if !ok {
		return nil, domain.ErrUnknownColumn{Register: s.Type(), Column: column}
	}
	idx, _ := s.Index(column)

	q = strings.TrimSpace(q)
	numeric := false
	var want float64
	if col.Kind == domain.KindInteger || col.Kind == domain.KindDecimal {
		want, numeric = domain.ParseDecimal(q)
	}
	needle := strings.ToLower(q)

	out := make([]Match, len(rows))
	for i, rec := range rows {
		out[i] = Match{Record: rec, Matched: true}
		if q == "" {
			continue
		}
		cell := rec.Values[idx]
		if numeric {
			got, ok := cell.AsNumber()
			out[i].Matched = ok && closeEnough(got, want)
			continue
		}
		out[i].Matched = strings.Contains(strings.ToLower(cell.Render()), needle)
	}
	return out, nil
}

func closeEnough(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= relTolerance*scale
}

// Sort orders rows by the named column and returns a new slice. When
// every cell parses as a number (comma decimals accepted) the order is
// numeric; a single unparsable cell, empty renders included, switches
// the whole column to lexicographic comparison of the rendered text.
// Ties keep their scan order.
func Sort(s *domain.Schema, rows []domain.Record, column string, descending bool) ([]domain.Record, error) {
	if _, ok := s.Column(column); !ok {
		return nil, domain.ErrUnknownColumn{Register: s.Type(), Column: column}
	}
	idx, _ := s.Index(column)

	type key struct {
		num  float64
		text string
	}
	keys := make([]key, len(rows))
	numeric := true
	for i, rec := range rows {
		text := rec.Values[idx].Render()
		keys[i] = key{text: strings.ToLower(text)}
		n, ok := domain.ParseDecimal(text)
		if !ok {
			numeric = false
			continue
		}
		keys[i].num = n
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if numeric {
			if descending {
				return ka.num > kb.num
			}
			return ka.num < kb.num
		}
		if descending {
			return ka.text > kb.text
		}
		return ka.text < kb.text
	})
	sorted := make([]domain.Record, len(rows))
	for i, j := range order {
		sorted[i] = rows[j]
	}
	return sorted, nil
}

// The flag formula sets are immutable after construction, so one per
// convention serves every call.
var (
	positiveOverdueSet = domain.NewFormulaSet(domain.WithDateControlConvention(domain.ConventionPositiveOverdue))
	negativeOverdueSet = domain.NewFormulaSet(domain.WithDateControlConvention(domain.ConventionNegativeOverdue))
)

// Flags reports the highlighting state of one record under the given
// overdue sign convention.
func Flags(s *domain.Schema, conv domain.DateControlConvention, r domain.Record) domain.RowFlags {
	set := positiveOverdueSet
	if conv == domain.ConventionNegativeOverdue {
		set = negativeOverdueSet
	}
	return set.Flags(s, r)
}
