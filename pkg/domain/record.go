package domain

// Record is one row of a register: a surrogate id, the cell values in
// schema column order, and the identity that last edited the row.
// Derived cells are always consistent with their formula over the current
// source cells immediately after any successful write.
type Record struct {
	ID     int64   `json:"id"`
	Values []Value `json:"values"`
	Editor string  `json:"editor,omitempty"`
}

// NewRecord returns a record with every cell Null, shaped for the schema.
func NewRecord(s *Schema) Record {
	return Record{Values: make([]Value, s.Len())}
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Values = make([]Value, len(r.Values))
	copy(out.Values, r.Values)
	return out
}

// Value returns the cell for the named column.
func (r Record) Value(s *Schema, column string) (Value, bool) {
	i, ok := s.Index(column)
	if !ok || i >= len(r.Values) {
		return Value{}, false
	}
	return r.Values[i], true
}

// Set stores a cell for the named column, reporting whether the column
// exists in the schema.
func (r *Record) Set(s *Schema, column string, v Value) bool {
	i, ok := s.Index(column)
	if !ok || i >= len(r.Values) {
		return false
	}
	r.Values[i] = v
	return true
}

// Conforms reports whether the record carries exactly one cell per
// schema column.
func (r Record) Conforms(s *Schema) bool {
	return len(r.Values) == s.Len()
}
