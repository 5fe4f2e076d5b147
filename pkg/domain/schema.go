package domain

import "fmt"

// RegisterType identifies one of the ledgers managed by the system.
type RegisterType string

// Built-in register types shipped with the default registry.
const (
	// RegisterContract is the land sale contract ledger.
	RegisterContract RegisterType = "contract"
	// RegisterAgreement is the land redistribution agreement ledger.
	RegisterAgreement RegisterType = "agreement"
	// RegisterPermit is the land use permit ledger.
	RegisterPermit RegisterType = "permit"
)

// ColumnSpec declares one canonical column of a register schema.
// A column is either user-writable (empty DependsOn) or derived
// (non-empty DependsOn, never writable).
type ColumnSpec struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Writable  bool     `json:"writable"`
	DependsOn []string `json:"depends_on,omitempty"`
	// Required marks the mandatory import field: a row whose cell for this
	// column is present but uncoercible is rejected rather than defaulted.
	Required bool `json:"required,omitempty"`
	// ZeroFallback selects the decimal coercion fallback: 0 for monetary
	// columns so downstream arithmetic stays total, Null otherwise.
	ZeroFallback bool `json:"zero_fallback,omitempty"`
}

// Derived reports whether the column is computed from source columns.
func (c ColumnSpec) Derived() bool { return len(c.DependsOn) > 0 }

// Schema is the immutable, ordered canonical column set of one register
// type. Instances are created once at registry construction and never
// mutated afterwards.
type Schema struct {
	registerType RegisterType
	columns      []ColumnSpec
	index        map[string]int
}

// Type returns the register type the schema belongs to.
func (s *Schema) Type() RegisterType { return s.registerType }

// Columns returns a copy of the ordered column list.
func (s *Schema) Columns() []ColumnSpec {
	out := make([]ColumnSpec, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of canonical columns.
func (s *Schema) Len() int { return len(s.columns) }

// Column looks up a column spec by name.
func (s *Schema) Column(name string) (ColumnSpec, bool) {
	i, ok := s.index[name]
	if !ok {
		return ColumnSpec{}, false
	}
	return s.columns[i], true
}

// Index returns the ordinal position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Registry holds the schema for every known register type. It is pure
// configuration: built at startup, validated once, then read-only.
type Registry struct {
	schemas map[RegisterType]*Schema
}

// NewRegistry builds the registry with the built-in register schemas and
// validates every schema invariant. A validation failure is a fatal
// configuration error, never a runtime condition.
func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[RegisterType]*Schema)}
	for rt, columns := range builtinSchemas() {
		schema, err := newSchema(rt, columns)
		if err != nil {
			return nil, err
		}
		r.schemas[rt] = schema
	}
	return r, nil
}

// Schema returns the schema registered for the given type.
func (r *Registry) Schema(rt RegisterType) (*Schema, bool) {
	s, ok := r.schemas[rt]
	return s, ok
}

// ColumnsFor returns the ordered canonical column list for the register
// type, or nil when the type is unknown.
func (r *Registry) ColumnsFor(rt RegisterType) []ColumnSpec {
	s, ok := r.schemas[rt]
	if !ok {
		return nil
	}
	return s.Columns()
}

// Types lists the registered register types in stable declaration order.
func (r *Registry) Types() []RegisterType {
	return []RegisterType{RegisterContract, RegisterAgreement, RegisterPermit}
}

func newSchema(rt RegisterType, columns []ColumnSpec) (*Schema, error) {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("register %s: column %d has no name", rt, i)
		}
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("register %s: duplicate column %q", rt, col.Name)
		}
		index[col.Name] = i
	}
	for _, col := range columns {
		if col.Writable && len(col.DependsOn) > 0 {
			return nil, fmt.Errorf("register %s: writable column %q declares dependencies", rt, col.Name)
		}
		if !col.Writable && len(col.DependsOn) == 0 {
			return nil, fmt.Errorf("register %s: derived column %q has no dependencies", rt, col.Name)
		}
		for _, dep := range col.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("register %s: column %q depends on unknown column %q", rt, col.Name, dep)
			}
		}
	}
	if err := checkAcyclic(rt, columns, index); err != nil {
		return nil, err
	}
	return &Schema{registerType: rt, columns: columns, index: index}, nil
}

// checkAcyclic walks the dependency graph depth-first and fails on any
// cycle. With the built-in schemas every dependency targets a writable
// column, but the check guards future registrations as well.
func checkAcyclic(rt RegisterType, columns []ColumnSpec, index map[string]int) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(columns))
	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case visiting:
			return fmt.Errorf("register %s: dependency cycle through column %q", rt, columns[i].Name)
		case done:
			return nil
		}
		state[i] = visiting
		for _, dep := range columns[i].DependsOn {
			if err := visit(index[dep]); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}
	for i := range columns {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// Canonical contract register column names. The three control columns are
// derived; everything else is user-writable.
const (
	ColContractNumber     = "contract_number"
	ColAgreementDate      = "agreement_date"
	ColBuyer              = "buyer"
	ColParcelCadastral    = "parcel_cadastral"
	ColParcelArea         = "parcel_area"
	ColPermittedUse       = "permitted_use"
	ColLegalBasis         = "legal_basis"
	ColContractPrice      = "contract_price"
	ColPaymentDueDate     = "payment_due_date"
	ColActualPaymentDate  = "actual_payment_date"
	ColReceiptReference   = "receipt_reference"
	ColAmountPaid         = "amount_paid"
	ColNote               = "note"
	ColAccruedPenalty     = "accrued_penalty"
	ColPaidPenalty        = "paid_penalty"
	ColReceiptDate        = "receipt_date"
	ColOverpaymentRefund  = "overpayment_refund"
	ColControlByDate      = "control_by_date"
	ColControlByPrice     = "control_by_price"
	ColUnpaidPenalty      = "unpaid_penalty"
)

func builtinSchemas() map[RegisterType][]ColumnSpec {
	return map[RegisterType][]ColumnSpec{
		RegisterContract: {
			{Name: ColContractNumber, Kind: KindInteger, Writable: true, Required: true},
			{Name: ColAgreementDate, Kind: KindDate, Writable: true},
			{Name: ColBuyer, Kind: KindText, Writable: true},
			{Name: ColParcelCadastral, Kind: KindText, Writable: true},
			{Name: ColParcelArea, Kind: KindDecimal, Writable: true},
			{Name: ColPermittedUse, Kind: KindText, Writable: true},
			{Name: ColLegalBasis, Kind: KindText, Writable: true},
			{Name: ColContractPrice, Kind: KindDecimal, Writable: true, ZeroFallback: true},
			{Name: ColPaymentDueDate, Kind: KindDate, Writable: true},
			{Name: ColActualPaymentDate, Kind: KindDate, Writable: true},
			{Name: ColReceiptReference, Kind: KindText, Writable: true},
			{Name: ColAmountPaid, Kind: KindDecimal, Writable: true, ZeroFallback: true},
			{Name: ColNote, Kind: KindText, Writable: true},
			{Name: ColAccruedPenalty, Kind: KindDecimal, Writable: true, ZeroFallback: true},
			{Name: ColPaidPenalty, Kind: KindDecimal, Writable: true, ZeroFallback: true},
			{Name: ColReceiptDate, Kind: KindDate, Writable: true},
			{Name: ColOverpaymentRefund, Kind: KindText, Writable: true},
			{Name: ColControlByDate, Kind: KindInteger, DependsOn: []string{ColPaymentDueDate, ColActualPaymentDate}},
			{Name: ColControlByPrice, Kind: KindDecimal, DependsOn: []string{ColContractPrice, ColAmountPaid}},
			{Name: ColUnpaidPenalty, Kind: KindDecimal, DependsOn: []string{ColAccruedPenalty, ColPaidPenalty}},
		},
		RegisterAgreement: {
			{Name: "number", Kind: KindInteger, Writable: true, Required: true},
			{Name: "territory", Kind: KindText, Writable: true},
			{Name: "parties", Kind: KindText, Writable: true},
			{Name: "term", Kind: KindText, Writable: true},
		},
		RegisterPermit: {
			{Name: "number", Kind: KindInteger, Writable: true, Required: true},
			{Name: "parcel", Kind: KindText, Writable: true},
			{Name: "applicant", Kind: KindText, Writable: true},
			{Name: "period", Kind: KindText, Writable: true},
		},
	}
}
