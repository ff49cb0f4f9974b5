// Package probe infers column kinds from raw delimited text.
//
// Inference is value driven: every non-null value of a column is tried against
// each candidate kind, and the most specific kind that accepts all of them
// wins. A column with no non-null values is a String column.
package probe

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the inferred value kind of a column. It is computed once per table
// and travels with it.
type Kind int

const (
	String Kind = iota
	Integer
	Float
	Boolean
	Date
	Timestamp
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	default:
		return "string"
	}
}

// DefaultNullValues are the tokens treated as missing values when the caller
// does not configure its own set.
var DefaultNullValues = []string{"", "NULL", "null"}

// NullSet decides which raw tokens are missing values. Matching is exact.
type NullSet map[string]struct{}

// NewNullSet builds a NullSet from tokens. A nil slice yields DefaultNullValues.
func NewNullSet(tokens []string) NullSet {
	if tokens == nil {
		tokens = DefaultNullValues
	}
	s := make(NullSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// IsNull reports whether v is a missing value.
func (s NullSet) IsNull(v string) bool {
	_, ok := s[v]
	return ok
}

// InferKinds infers one Kind per column of rows. Rows shorter than ncols
// contribute nothing to the missing columns.
//
// Precedence when several kinds accept every value:
// Integer, Boolean, Date, Timestamp, Float, then String. A column of "0"/"1"
// is therefore Integer, not Boolean.
func InferKinds(rows [][]string, ncols int, nulls NullSet) []Kind {
	out := make([]Kind, ncols)
	for col := 0; col < ncols; col++ {
		var seen bool
		allInt := true
		allFloat := true
		allBool := true
		allDate := true
		allTS := true

		for _, r := range rows {
			if col >= len(r) || nulls.IsNull(r[col]) {
				continue
			}
			v := strings.TrimSpace(r[col])
			seen = true

			if allInt {
				if _, ok := ParseInteger(v); !ok {
					allInt = false
				}
			}
			if allFloat {
				if _, ok := ParseFloat(v); !ok {
					allFloat = false
				}
			}
			if allBool {
				if _, ok := ParseBool(v); !ok {
					allBool = false
				}
			}
			if allDate {
				if _, ok := ParseDate(v); !ok {
					allDate = false
				}
			}
			if allTS {
				if _, ok := ParseTimestamp(v); !ok {
					allTS = false
				}
			}
			if !allInt && !allFloat && !allBool && !allDate && !allTS {
				break
			}
		}

		switch {
		case !seen:
			out[col] = String
		case allInt:
			out[col] = Integer
		case allBool:
			out[col] = Boolean
		case allDate:
			out[col] = Date
		case allTS:
			out[col] = Timestamp
		case allFloat:
			out[col] = Float
		default:
			out[col] = String
		}
	}
	return out
}

// ParseInteger parses a base-10 signed 64-bit integer.
func ParseInteger(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil
}

// ParseFloat parses a 64-bit float.
func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// ParseBool accepts common truthy and falsy spellings, case-insensitively.
func ParseBool(s string) (bool, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
}

var tsLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05.000",
	"02.01.2006 15:04:05",
}

// ParseDate parses a calendar date with no time of day. The result is
// midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, lay := range dateLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTimestamp parses a date with time of day. Values without a zone are
// taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, lay := range tsLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
