package graph

import (
	"sort"

	"github.com/apache/arrow/go/v10/arrow"

	"graphetl/internal/errors"
)

// IDTypes records the Arrow type of each node label's id column.
//
// One IDTypes belongs to one pipeline run: it starts empty, gains an entry per
// node label during node loading, and is only read while relationships are
// loaded. Entries are never overwritten. The zero value is not usable; call
// NewIDTypes.
type IDTypes struct {
	types map[string]arrow.DataType
}

func NewIDTypes() *IDTypes {
	return &IDTypes{types: make(map[string]arrow.DataType)}
}

// Record stores the id type of label. Recording the same type twice is a
// no-op.
//
// Errors:
//   - ErrSchemaConflict if label already has a different type.
func (r *IDTypes) Record(label string, t arrow.DataType) error {
	if prev, ok := r.types[label]; ok {
		if arrow.TypeEqual(prev, t) {
			return nil
		}
		return errors.Newf(errors.ErrSchemaConflict, "label %s already has id type %s, got %s", label, prev, t)
	}
	r.types[label] = t
	return nil
}

// Lookup returns the id type of label.
func (r *IDTypes) Lookup(label string) (arrow.DataType, bool) {
	t, ok := r.types[label]
	return t, ok
}

// Labels returns every recorded label in sorted order.
func (r *IDTypes) Labels() []string {
	out := make([]string, 0, len(r.types))
	for l := range r.types {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (r *IDTypes) Len() int { return len(r.types) }
