// Package domain defines the canonical register schemas, the typed cell
// value model, and the derived-field formula engine shared by every
// persistence backend.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type of a canonical column or cell value.
type Kind string

// Supported value kinds. A zero Value carries no kind and represents Null.
const (
	// KindInteger is a signed whole number (contract numbers, day counts).
	KindInteger Kind = "integer"
	// KindDecimal is a signed finite real number (prices, areas, penalties).
	KindDecimal Kind = "decimal"
	// KindDate is a calendar date in canonical DD.MM.YYYY form.
	KindDate Kind = "date"
	// KindText is free-form text.
	KindText Kind = "text"
)

// DateLayout is the canonical date rendering used everywhere a date is
// stored or displayed: two-digit day, two-digit month, four-digit year,
// ASCII dot separators.
const DateLayout = "02.01.2006"

// dateInputLayouts are accepted on ingestion, day-first. Parsed values are
// always re-rendered with DateLayout before leaving the coercion layer.
var dateInputLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
}

// Value is the closed tagged union held by every record cell:
// Integer, Decimal, Date, Text, or Null. The zero value is Null.
type Value struct {
	Kind    Kind    `json:"kind,omitempty"`
	Int     int64   `json:"int,omitempty"`
	Decimal float64 `json:"decimal,omitempty"`
	Text    string  `json:"text,omitempty"`
}

// NullValue returns the Null value.
func NullValue() Value { return Value{} }

// IntegerValue wraps v as an integer cell.
func IntegerValue(v int64) Value { return Value{Kind: KindInteger, Int: v} }

// DecimalValue wraps v as a decimal cell.
func DecimalValue(v float64) Value { return Value{Kind: KindDecimal, Decimal: v} }

// TextValue wraps v as a text cell.
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }

// DateValue wraps an already-canonical date string as a date cell.
// Use ParseDate to coerce arbitrary input first.
func DateValue(canonical string) Value { return Value{Kind: KindDate, Text: canonical} }

// IsNull reports whether the value carries no data.
func (v Value) IsNull() bool { return v.Kind == "" }

// AsNumber returns the numeric payload of an integer or decimal value.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int), true
	case KindDecimal:
		return v.Decimal, true
	default:
		return 0, false
	}
}

// AsDate returns the parsed time of a date value.
func (v Value) AsDate() (time.Time, bool) {
	if v.Kind != KindDate {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, v.Text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Render produces the display/export text for the value. Null renders as
// the empty string; dates render canonically; decimals render without
// trailing zeros.
func (v Value) Render() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.Decimal, 'f', -1, 64)
	case KindDate, KindText:
		return v.Text
	default:
		return ""
	}
}

// String implements fmt.Stringer for debugging output.
func (v Value) String() string {
	if v.IsNull() {
		return "<null>"
	}
	return fmt.Sprintf("%s(%s)", v.Kind, v.Render())
}

// ParseDate coerces raw input into a canonical date string, day-first.
// Ambiguous DD/MM vs MM/DD input resolves as day-first. The second return
// is false when the input cannot be parsed; callers must store Null then,
// never a partial value.
func ParseDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	for _, layout := range dateInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// ParseDecimal coerces raw input into a float, stripping whitespace and
// thousands separators and accepting a comma decimal separator.
func ParseDecimal(raw string) (float64, bool) {
	s := stripSpaces(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseInteger coerces raw input into an int64, tolerating whitespace and
// a bare ".0" suffix left behind by numeric-origin spreadsheet columns.
func ParseInteger(raw string) (int64, bool) {
	s := stripSpaces(raw)
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ' ':
			return -1
		}
		return r
	}, s)
}
