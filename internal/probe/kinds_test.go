package probe

import (
	"testing"
	"time"
)

//
// InferKinds
//

// TestInferKinds verifies per-column kind inference and its precedence rules.
//
// Null tokens never vote, and a column with only nulls falls back to String.
func TestInferKinds(t *testing.T) {
	t.Parallel()

	nulls := NewNullSet(nil)

	tests := []struct {
		name string
		rows [][]string
		want Kind
	}{
		{"integers", [][]string{{"1"}, {"-42"}, {"933"}}, Integer},
		{"zero one is integer", [][]string{{"0"}, {"1"}}, Integer},
		{"floats", [][]string{{"1.5"}, {"2"}, {"-0.25"}}, Float},
		{"booleans", [][]string{{"true"}, {"False"}, {"yes"}}, Boolean},
		{"dates", [][]string{{"2010-03-01"}, {"2012-12-31"}}, Date},
		{"timestamps", [][]string{{"2010-03-01T10:11:12.345+0000"}, {"2010-03-01T10:11:12Z"}}, Timestamp},
		{"mixed date and timestamp", [][]string{{"2010-03-01"}, {"2010-03-01 10:11:12"}}, String},
		{"strings", [][]string{{"Mahinda"}, {"1"}}, String},
		{"nulls ignored", [][]string{{""}, {"7"}, {"NULL"}, {"null"}}, Integer},
		{"all null", [][]string{{""}, {"NULL"}}, String},
		{"no rows", nil, String},
		{"short rows", [][]string{{}, {"3"}}, Integer},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferKinds(tt.rows, 1, nulls)
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("InferKinds(%v) = %v, want [%v]", tt.rows, got, tt.want)
			}
		})
	}
}

// TestInferKindsPerColumn verifies that columns are inferred independently.
func TestInferKindsPerColumn(t *testing.T) {
	t.Parallel()

	rows := [][]string{
		{"1", "Yang", "2010-01-01", "0.5"},
		{"2", "Chen", "2011-02-02", "1"},
	}
	got := InferKinds(rows, 4, NewNullSet(nil))
	want := []Kind{Integer, String, Date, Float}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("col %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// TestNullSetCustom verifies that a configured null set replaces the default.
func TestNullSetCustom(t *testing.T) {
	t.Parallel()

	s := NewNullSet([]string{"\\N"})
	if !s.IsNull("\\N") {
		t.Fatalf("expected \\N to be null")
	}
	if s.IsNull("") {
		t.Fatalf("empty string must not be null when the set is configured without it")
	}

	got := InferKinds([][]string{{"\\N"}, {"5"}}, 1, s)
	if got[0] != Integer {
		t.Fatalf("got %v, want integer", got[0])
	}
}

//
// ParseBool
//

// TestParseBool verifies permissive boolean parsing.
func TestParseBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		ok    bool
		value bool
	}{
		{"true literal", "true", true, true},
		{"false literal", "false", true, false},
		{"numeric true", "1", true, true},
		{"numeric false", "0", true, false},
		{"yes", "yes", true, true},
		{"no", "no", true, false},
		{"upper case", "TRUE", true, true},
		{"with spaces", "  false  ", true, false},
		{"invalid", "maybe", false, false},
		{"empty", "", false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseBool(tt.in)
			if ok != tt.ok || got != tt.value {
				t.Fatalf("ParseBool(%q) = (%v,%v), want (%v,%v)", tt.in, got, ok, tt.value, tt.ok)
			}
		})
	}
}

//
// ParseDate / ParseTimestamp
//

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2023-01-02T15:04:05Z", true, time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2023-01-02T16:04:05+01:00", true, time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2010-02-14T15:32:10.447+0000", true, time.Date(2010, 2, 14, 15, 32, 10, 447e6, time.UTC)},
		{"2023-01-02 15:04:05", true, time.Date(2023, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2023-99-99T00:00:00Z", false, time.Time{}},
		{"2023-01-02", false, time.Time{}},
		{"", false, time.Time{}},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseTimestamp(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && !got.Equal(tt.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in string
		ok bool
	}{
		{"2023-01-02", true},
		{"01/02/2023", true},
		{"2023-99-99", false},
		{"2023-01-02T00:00:00Z", false},
		{"", false},
	}

	for _, tt := range tests {
		d, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Fatalf("ParseDate(%q) ok=%v, want %v", tt.in, ok, tt.ok)
		}
		if ok && d.IsZero() {
			t.Fatalf("ParseDate(%q) returned zero time with ok=true", tt.in)
		}
	}
}

//
// Profile
//

// TestProfile verifies null counts, distinct counts and the Unique helper.
func TestProfile(t *testing.T) {
	t.Parallel()

	names := []string{"id", "tag"}
	rows := [][]string{
		{"1", "a"},
		{"2", "a"},
		{"3", ""},
	}
	got := Profile(names, rows, NewNullSet(nil))

	if got[0].Kind != Integer || got[0].Values != 3 || got[0].Nulls != 0 || !got[0].Unique() {
		t.Fatalf("id profile = %+v", got[0])
	}
	if got[1].Kind != String || got[1].Values != 2 || got[1].Nulls != 1 || got[1].Distinct != 1 || got[1].Unique() {
		t.Fatalf("tag profile = %+v", got[1])
	}
}
