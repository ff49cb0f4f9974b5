package storage

import (
	"fmt"
	"net/url"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
)

// ColumnSpec describes one dataset column for backends that need DDL.
type ColumnSpec struct {
	Name     string
	Type     arrow.DataType
	Nullable bool
}

// ColumnsOf returns the column specs of schema in order.
func ColumnsOf(schema *arrow.Schema) []ColumnSpec {
	fields := schema.Fields()
	out := make([]ColumnSpec, len(fields))
	for i, f := range fields {
		out[i] = ColumnSpec{Name: f.Name, Type: f.Type, Nullable: f.Nullable}
	}
	return out
}

// ColumnNames returns the names of cols.
func ColumnNames(cols []ColumnSpec) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

// Rows converts rec into positional Go values for SQL drivers.
//
// Value mapping: int64, float64, bool and string pass through; date32 and
// timestamp become time.Time in UTC; nulls become nil.
//
// Errors:
//   - If a column has a type the graph loader never produces.
func Rows(rec arrow.Record) ([][]any, error) {
	n := int(rec.NumRows())
	ncols := int(rec.NumCols())
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = make([]any, ncols)
	}

	for c := 0; c < ncols; c++ {
		get, err := valueFunc(rec.Column(c))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", rec.ColumnName(c), err)
		}
		col := rec.Column(c)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				continue
			}
			rows[i][c] = get(i)
		}
	}
	return rows, nil
}

func valueFunc(arr arrow.Array) (func(i int) any, error) {
	switch a := arr.(type) {
	case *array.Int64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Float64:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Boolean:
		return func(i int) any { return a.Value(i) }, nil
	case *array.String:
		return func(i int) any { return a.Value(i) }, nil
	case *array.Date32:
		return func(i int) any {
			return time.UnixMilli(int64(a.Value(i)) * int64(24*time.Hour/time.Millisecond)).UTC()
		}, nil
	case *array.Timestamp:
		ts, ok := a.DataType().(*arrow.TimestampType)
		if !ok {
			break
		}
		unit := int64(ts.Unit.Multiplier())
		return func(i int) any { return time.Unix(0, int64(a.Value(i))*unit).UTC() }, nil
	}
	return nil, fmt.Errorf("unsupported arrow type %s", arr.DataType())
}

// RedactDSN hides the password of a URL-style DSN. DSNs that do not parse as
// URLs with a scheme are replaced entirely.
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "[redacted]"
	}
	return u.Redacted()
}
