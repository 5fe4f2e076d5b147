package domain

import "testing"

func TestParseDateDayFirst(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"17.01.2024", "17.01.2024", true},
		{"7.1.2024", "07.01.2024", true},
		{"03/04/2024", "03.04.2024", true}, // day-first: 3 April, not 4 March
		{"2024-01-17", "17.01.2024", true},
		{"2024-01-17 00:00:00", "17.01.2024", true},
		{" 17.01.2024 ", "17.01.2024", true},
		{"", "", false},
		{"not a date", "", false},
		{"32.01.2024", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseDate(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDecimalSeparators(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12500.50", 12500.50, true},
		{"12500,50", 12500.50, true},
		{"12 500,50", 12500.50, true},
		{"1 234,5", 1234.5, true}, // non-breaking thousands separator
		{"-3,25", -3.25, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDecimal(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseDecimal(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseIntegerArtifacts(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"42.0", 42, true},
		{" 1 024 ", 1024, true},
		{"", 0, false},
		{"4.2", 0, false},
		{"forty", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseInteger(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseInteger(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestValueRender(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{NullValue(), ""},
		{IntegerValue(-7), "-7"},
		{DecimalValue(12500.5), "12500.5"},
		{DateValue("17.01.2024"), "17.01.2024"},
		{TextValue("ООО Пример"), "ООО Пример"},
	}
	for _, tc := range cases {
		if got := tc.v.Render(); got != tc.want {
			t.Fatalf("Render(%v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if !NullValue().IsNull() {
		t.Fatalf("zero value must be null")
	}
	if n, ok := IntegerValue(3).AsNumber(); !ok || n != 3 {
		t.Fatalf("integer AsNumber = %v, %v", n, ok)
	}
	if n, ok := DecimalValue(2.5).AsNumber(); !ok || n != 2.5 {
		t.Fatalf("decimal AsNumber = %v, %v", n, ok)
	}
	if _, ok := TextValue("x").AsNumber(); ok {
		t.Fatalf("text must not be numeric")
	}
	d, ok := DateValue("17.01.2024").AsDate()
	if !ok || d.Format(DateLayout) != "17.01.2024" {
		t.Fatalf("AsDate = %v, %v", d, ok)
	}
	if _, ok := DateValue("corrupt").AsDate(); ok {
		t.Fatalf("corrupt date must not parse")
	}
}
