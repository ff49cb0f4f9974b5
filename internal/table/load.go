package table

import (
	"context"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"

	"graphetl/internal/errors"
	"graphetl/internal/graphfile"
	csvparser "graphetl/internal/parser/csv"
	"graphetl/internal/probe"
)

// LoadOptions controls how files are parsed.
type LoadOptions struct {
	// Delimiter between fields. Zero means graphfile.DefaultDelimiter.
	Delimiter rune

	// NullValues are the tokens read as missing values. Nil means
	// probe.DefaultNullValues.
	NullValues []string

	// Allocator for the built arrays. Nil means a Go allocator.
	Allocator memory.Allocator
}

func (o LoadOptions) allocator() memory.Allocator {
	if o.Allocator == nil {
		return memory.NewGoAllocator()
	}
	return o.Allocator
}

// Load reads paths as one table whose columns are named columns. Each file's
// first line is skipped, and every data row must have exactly len(columns)
// fields. Kinds are inferred over the rows of all files together.
//
// Load has no side effects beyond reading the files.
//
// Errors:
//   - ErrUnreadableFile if a file cannot be opened.
//   - ErrMalformedRow if a row has the wrong field count or cannot be parsed.
func Load(ctx context.Context, paths []string, columns []string, opt LoadOptions) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = graphfile.DefaultDelimiter
	}

	var rows [][]string
	for _, p := range paths {
		rc, err := graphfile.Open(p)
		if err != nil {
			return nil, err
		}
		part, err := csvparser.ReadAll(ctx, rc, csvparser.Options{
			Comma:      delim,
			HasHeader:  true,
			Fields:     len(columns),
			LazyQuotes: true,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", p)
		}
		rows = append(rows, part...)
	}

	nulls := probe.NewNullSet(opt.NullValues)
	kinds := probe.InferKinds(rows, len(columns), nulls)
	return Build(columns, kinds, rows, nulls, opt.allocator())
}

// Build converts rows into a Table with the given column names and kinds.
//
// Errors:
//   - ErrTypeMismatch if a value does not parse as its column's kind.
func Build(columns []string, kinds []probe.Kind, rows [][]string, nulls probe.NullSet, mem memory.Allocator) (*Table, error) {
	fields := make([]arrow.Field, len(columns))
	cols := make([]arrow.Array, 0, len(columns))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for i, name := range columns {
		dt := ArrowType(kinds[i])
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}

		arr, err := buildColumn(i, kinds[i], dt, rows, nulls, mem)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		cols = append(cols, arr)
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(len(rows)))
	return New(rec, kinds), nil
}

func buildColumn(col int, kind probe.Kind, dt arrow.DataType, rows [][]string, nulls probe.NullSet, mem memory.Allocator) (arrow.Array, error) {
	b := array.NewBuilder(mem, dt)
	defer b.Release()
	b.Reserve(len(rows))

	for i, r := range rows {
		if col >= len(r) || nulls.IsNull(r[col]) {
			b.AppendNull()
			continue
		}
		if err := appendParsed(b, kind, r[col]); err != nil {
			return nil, errors.Wrapf(err, "row %d", i+1)
		}
	}
	return b.NewArray(), nil
}

func appendParsed(b array.Builder, kind probe.Kind, v string) error {
	switch kind {
	case probe.Integer:
		n, ok := probe.ParseInteger(v)
		if !ok {
			return mismatch(v, kind)
		}
		b.(*array.Int64Builder).Append(n)
	case probe.Float:
		f, ok := probe.ParseFloat(v)
		if !ok {
			return mismatch(v, kind)
		}
		b.(*array.Float64Builder).Append(f)
	case probe.Boolean:
		x, ok := probe.ParseBool(v)
		if !ok {
			return mismatch(v, kind)
		}
		b.(*array.BooleanBuilder).Append(x)
	case probe.Date:
		d, ok := probe.ParseDate(v)
		if !ok {
			return mismatch(v, kind)
		}
		b.(*array.Date32Builder).Append(date32(d))
	case probe.Timestamp:
		ts, ok := probe.ParseTimestamp(v)
		if !ok {
			return mismatch(v, kind)
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(ts.UnixMilli()))
	default:
		b.(*array.StringBuilder).Append(v)
	}
	return nil
}

func mismatch(v string, kind probe.Kind) error {
	return errors.Newf(errors.ErrTypeMismatch, "value %q is not a valid %s", v, kind)
}
