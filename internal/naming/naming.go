// Package naming holds the canonical spelling rules for graph labels and
// column names.
//
// Every rule here is pure and deterministic. Labels converge regardless of the
// casing used in file names or headers, so "PERSON", "person" and "Person"
// all name the same node label.
package naming

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"graphetl/internal/errors"
)

// Label returns the canonical form of a node label: trimmed, lower-cased,
// with only the first character upper-cased ("tagClass" -> "Tagclass").
//
// Errors:
//   - ErrEmptyLabel if raw is empty after trimming.
func Label(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", errors.New(errors.ErrEmptyLabel, "label cannot be empty")
	}
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:], nil
}

// Column returns the canonical form of a column name: trimmed, lower-cased,
// with every '.' replaced by '_' ("Person.id" -> "person_id").
func Column(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(s, ".", "_")
}

// Columns applies Column to every name.
func Columns(raw []string) []string {
	out := make([]string, len(raw))
	for i, r := range raw {
		out[i] = Column(r)
	}
	return out
}

// Dedupe makes names unique while preserving order. The first occurrence of a
// name is kept as is; later occurrences get "_1", "_2", ... appended in order
// of appearance.
//
//	["id","name","name","name"] -> ["id","name","name_1","name_2"]
//
// A generated name that collides with a name appearing later in the input is
// not re-checked.
func Dedupe(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		count := seen[n]
		if count == 0 {
			out = append(out, n)
		} else {
			out = append(out, n+"_"+strconv.Itoa(count))
		}
		seen[n] = count + 1
	}
	return out
}
