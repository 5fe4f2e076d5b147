package domain

import "time"

// DateControlConvention selects which sign of the date control column
// marks an overdue payment. Historical exports of this ledger flip
// between the two, so the convention is policy, not ground truth.
type DateControlConvention string

const (
	// ConventionPositiveOverdue computes actual − due: a positive value
	// marks a late payment. Default.
	ConventionPositiveOverdue DateControlConvention = "positive_overdue"
	// ConventionNegativeOverdue computes due − actual: a negative value
	// marks a late payment, matching the older export format.
	ConventionNegativeOverdue DateControlConvention = "negative_overdue"
)

// paymentTermDays is the contractual payment window: editing the
// agreement date re-derives the due date this many days later.
const paymentTermDays = 7

// RowFlags carries the compliance highlighting state derived from the
// control columns of one record.
type RowFlags struct {
	// Overdue is raised when the date control column crosses the
	// convention's lateness sign. Never raised while either date is
	// missing.
	Overdue bool
	// Warning is raised when money is still outstanding: a positive
	// price control or unpaid penalty balance.
	Warning bool
}

// FormulaSet recomputes every derived column of a record from its source
// columns. Recompute is pure and idempotent; stores invoke it inside the
// same atomic unit as the triggering write so that no reader ever
// observes a stale derived cell.
type FormulaSet struct {
	convention DateControlConvention
}

// FormulaOption configures a FormulaSet.
type FormulaOption func(*FormulaSet)

// WithDateControlConvention overrides the overdue sign convention.
func WithDateControlConvention(c DateControlConvention) FormulaOption {
	return func(f *FormulaSet) {
		if c == ConventionPositiveOverdue || c == ConventionNegativeOverdue {
			f.convention = c
		}
	}
}

// NewFormulaSet constructs the built-in formula family for this domain.
func NewFormulaSet(opts ...FormulaOption) *FormulaSet {
	f := &FormulaSet{convention: ConventionPositiveOverdue}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Convention returns the active overdue sign convention.
func (f *FormulaSet) Convention() DateControlConvention { return f.convention }

// Recompute returns a copy of the record with every derived column
// replaced by its formula result over the record's current values.
// Non-derived columns are untouched.
func (f *FormulaSet) Recompute(s *Schema, r Record) Record {
	out := r.Clone()
	for _, col := range s.Columns() {
		if !col.Derived() {
			continue
		}
		out.Set(s, col.Name, f.derive(s, out, col.Name))
	}
	return out
}

// ApplyEdit runs the write-time cascade for the edited column, then
// recomputes the derived columns. Editing the agreement date overwrites
// the payment due date (agreement date + 7 days) before the formulas see
// the record.
func (f *FormulaSet) ApplyEdit(s *Schema, r Record, column string) Record {
	out := r.Clone()
	if column == ColAgreementDate {
		if agreed, ok := dateAt(s, out, ColAgreementDate); ok {
			due := agreed.AddDate(0, 0, paymentTermDays).Format(DateLayout)
			out.Set(s, ColPaymentDueDate, DateValue(due))
		}
	}
	return f.Recompute(s, out)
}

// Flags derives the compliance highlighting for a record.
func (f *FormulaSet) Flags(s *Schema, r Record) RowFlags {
	var flags RowFlags
	if v, ok := r.Value(s, ColControlByDate); ok && !v.IsNull() {
		late := v.Int > 0
		if f.convention == ConventionNegativeOverdue {
			late = v.Int < 0
		}
		flags.Overdue = late
	}
	if v, ok := r.Value(s, ColControlByPrice); ok && !v.IsNull() && v.Decimal > 0 {
		flags.Warning = true
	}
	if v, ok := r.Value(s, ColUnpaidPenalty); ok && !v.IsNull() && v.Decimal > 0 {
		flags.Warning = true
	}
	return flags
}

func (f *FormulaSet) derive(s *Schema, r Record, column string) Value {
	switch column {
	case ColControlByDate:
		due, okDue := dateAt(s, r, ColPaymentDueDate)
		actual, okActual := dateAt(s, r, ColActualPaymentDate)
		if !okDue || !okActual {
			return NullValue()
		}
		days := int64(actual.Sub(due) / (24 * time.Hour))
		if f.convention == ConventionNegativeOverdue {
			days = -days
		}
		return IntegerValue(days)
	case ColControlByPrice:
		return DecimalValue(numberAt(s, r, ColContractPrice) - numberAt(s, r, ColAmountPaid))
	case ColUnpaidPenalty:
		return DecimalValue(numberAt(s, r, ColAccruedPenalty) - numberAt(s, r, ColPaidPenalty))
	default:
		return NullValue()
	}
}

// numberAt reads a numeric source cell, treating missing or non-numeric
// values as 0 so the arithmetic formulas stay total.
func numberAt(s *Schema, r Record, column string) float64 {
	v, ok := r.Value(s, column)
	if !ok {
		return 0
	}
	n, ok := v.AsNumber()
	if !ok {
		return 0
	}
	return n
}

func dateAt(s *Schema, r Record, column string) (time.Time, bool) {
	v, ok := r.Value(s, column)
	if !ok {
		return time.Time{}, false
	}
	return v.AsDate()
}
