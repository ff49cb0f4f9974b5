// Package table turns delimited graph files into typed Arrow records.
//
// A Table pairs an arrow.Record with the probe.Kind inferred for each of its
// columns. Tables are immutable: operations that change a column return a new
// Table and leave the receiver untouched.
package table

import (
	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"

	"graphetl/internal/errors"
	"graphetl/internal/probe"
)

// ArrowType maps an inferred kind to the Arrow type columns of that kind are
// stored as.
func ArrowType(k probe.Kind) arrow.DataType {
	switch k {
	case probe.Integer:
		return arrow.PrimitiveTypes.Int64
	case probe.Float:
		return arrow.PrimitiveTypes.Float64
	case probe.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case probe.Date:
		return arrow.FixedWidthTypes.Date32
	case probe.Timestamp:
		return arrow.FixedWidthTypes.Timestamp_ms
	default:
		return arrow.BinaryTypes.String
	}
}

// KindOf is the inverse of ArrowType. ok is false for types ArrowType never
// produces.
func KindOf(dt arrow.DataType) (probe.Kind, bool) {
	switch dt.ID() {
	case arrow.INT64:
		return probe.Integer, true
	case arrow.FLOAT64:
		return probe.Float, true
	case arrow.BOOL:
		return probe.Boolean, true
	case arrow.DATE32:
		return probe.Date, true
	case arrow.TIMESTAMP:
		return probe.Timestamp, true
	case arrow.STRING:
		return probe.String, true
	default:
		return probe.String, false
	}
}

// Table is a typed, column-named record loaded from one or more files.
type Table struct {
	rec   arrow.Record
	kinds []probe.Kind
}

// New wraps rec. kinds must have one entry per column. New takes ownership of
// one reference to rec.
func New(rec arrow.Record, kinds []probe.Kind) *Table {
	return &Table{rec: rec, kinds: append([]probe.Kind(nil), kinds...)}
}

// Record returns the underlying record. The caller must Retain it to keep it
// past t.Release.
func (t *Table) Record() arrow.Record { return t.rec }

func (t *Table) Schema() *arrow.Schema { return t.rec.Schema() }

func (t *Table) NumRows() int64 { return t.rec.NumRows() }

// Kinds returns a copy of the per-column kinds.
func (t *Table) Kinds() []probe.Kind { return append([]probe.Kind(nil), t.kinds...) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	fields := t.rec.Schema().Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// ColumnIndex returns the index of the first column called name, or -1.
func (t *Table) ColumnIndex(name string) int {
	idx := t.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return -1
	}
	return idx[0]
}

// Column returns the column called name.
func (t *Table) Column(name string) (arrow.Array, bool) {
	i := t.ColumnIndex(name)
	if i < 0 {
		return nil, false
	}
	return t.rec.Column(i), true
}

// WithColumn returns a copy of t whose column name is replaced by arr. The
// field type and kind follow arr's type.
func (t *Table) WithColumn(name string, arr arrow.Array) (*Table, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, errors.Newf(errors.ErrMissingIdentifier, "no column %q", name)
	}
	if int64(arr.Len()) != t.rec.NumRows() {
		return nil, errors.Errorf("column %q has %d rows, table has %d", name, arr.Len(), t.rec.NumRows())
	}

	fields := append([]arrow.Field(nil), t.rec.Schema().Fields()...)
	fields[idx].Type = arr.DataType()

	cols := make([]arrow.Array, len(fields))
	for i := range cols {
		cols[i] = t.rec.Column(i)
	}
	cols[idx] = arr

	kinds := t.Kinds()
	kinds[idx], _ = KindOf(arr.DataType())

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, t.rec.NumRows())
	return &Table{rec: rec, kinds: kinds}, nil
}

// Release drops the table's reference to its record.
func (t *Table) Release() {
	if t != nil && t.rec != nil {
		t.rec.Release()
	}
}

// RequireNonNull fails when column name is absent or holds any null. where
// names the source for the error message, e.g. "person_0_0.csv:id".
//
// Errors:
//   - ErrMissingIdentifier if the column does not exist.
//   - ErrNullIdentifier if it has nulls.
func RequireNonNull(t *Table, name, where string) error {
	col, ok := t.Column(name)
	if !ok {
		return errors.Newf(errors.ErrMissingIdentifier, "missing %s column in %s; found: %v", name, where, t.ColumnNames())
	}
	if n := col.NullN(); n > 0 {
		return errors.Newf(errors.ErrNullIdentifier, "nulls found in %s (%d of %d rows)", where, n, col.Len())
	}
	return nil
}
