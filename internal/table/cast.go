package table

import (
	"math"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"

	"graphetl/internal/errors"
	"graphetl/internal/probe"
)

const (
	msPerDay = int64(24 * time.Hour / time.Millisecond)

	// Largest magnitude at which every int64 is exactly representable as a
	// float64.
	maxExactFloat = 1 << 53
)

// Cast converts arr to exactly the type to. Nulls stay null.
//
// Only conversions that cannot lose information are allowed: every non-null
// value must convert, and converting it back yields the same value. Strings
// cast to int64 or bool must therefore be spelled exactly as
// strconv.FormatInt or strconv.FormatBool would ("7", not "007", "+7" or
// " 7"; "true", not "yes"). Strings cast to float64, date32 or timestamp are
// parsed with the loader's inference rules. When arr already has type to it
// is returned with an extra reference.
//
// Supported conversions:
//
//	int64     -> float64 (|v| <= 2^53), utf8
//	float64   -> int64 (integral, in range), utf8
//	utf8      -> int64, float64, bool, date32, timestamp
//	bool      -> int64, utf8
//	date32    -> timestamp, utf8
//	timestamp -> date32 (midnight only), utf8
//
// Errors:
//   - ErrTypeMismatch for any other pair, or for a value that does not convert.
func Cast(arr arrow.Array, to arrow.DataType, mem memory.Allocator) (arrow.Array, error) {
	from := arr.DataType()
	if arrow.TypeEqual(from, to) {
		arr.Retain()
		return arr, nil
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	conv, err := converter(arr, to)
	if err != nil {
		return nil, err
	}

	b := array.NewBuilder(mem, to)
	defer b.Release()
	b.Reserve(arr.Len())

	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		if err := conv(b, i); err != nil {
			return nil, errors.Wrapf(err, "cast %s to %s at row %d", from, to, i+1)
		}
	}
	return b.NewArray(), nil
}

type convertFunc func(b array.Builder, i int) error

func converter(arr arrow.Array, to arrow.DataType) (convertFunc, error) {
	switch src := arr.(type) {
	case *array.Int64:
		switch to.ID() {
		case arrow.FLOAT64:
			return func(b array.Builder, i int) error {
				v := src.Value(i)
				if v > maxExactFloat || v < -maxExactFloat {
					return lossy(strconv.FormatInt(v, 10), to)
				}
				b.(*array.Float64Builder).Append(float64(v))
				return nil
			}, nil
		case arrow.STRING:
			return func(b array.Builder, i int) error {
				b.(*array.StringBuilder).Append(strconv.FormatInt(src.Value(i), 10))
				return nil
			}, nil
		}

	case *array.Float64:
		switch to.ID() {
		case arrow.INT64:
			return func(b array.Builder, i int) error {
				v := src.Value(i)
				if v != math.Trunc(v) || v > maxExactFloat || v < -maxExactFloat {
					return lossy(strconv.FormatFloat(v, 'g', -1, 64), to)
				}
				b.(*array.Int64Builder).Append(int64(v))
				return nil
			}, nil
		case arrow.STRING:
			return func(b array.Builder, i int) error {
				b.(*array.StringBuilder).Append(strconv.FormatFloat(src.Value(i), 'g', -1, 64))
				return nil
			}, nil
		}

	case *array.String:
		switch to.ID() {
		case arrow.INT64:
			return func(b array.Builder, i int) error {
				v := src.Value(i)
				n, ok := probe.ParseInteger(v)
				if !ok || strconv.FormatInt(n, 10) != v {
					return lossy(v, to)
				}
				b.(*array.Int64Builder).Append(n)
				return nil
			}, nil
		case arrow.FLOAT64:
			return func(b array.Builder, i int) error {
				f, ok := probe.ParseFloat(src.Value(i))
				if !ok {
					return lossy(src.Value(i), to)
				}
				b.(*array.Float64Builder).Append(f)
				return nil
			}, nil
		case arrow.BOOL:
			return func(b array.Builder, i int) error {
				v := src.Value(i)
				x, ok := probe.ParseBool(v)
				if !ok || strconv.FormatBool(x) != v {
					return lossy(v, to)
				}
				b.(*array.BooleanBuilder).Append(x)
				return nil
			}, nil
		case arrow.DATE32:
			return func(b array.Builder, i int) error {
				d, ok := probe.ParseDate(src.Value(i))
				if !ok {
					return lossy(src.Value(i), to)
				}
				b.(*array.Date32Builder).Append(date32(d))
				return nil
			}, nil
		case arrow.TIMESTAMP:
			unit, err := timestampUnit(to)
			if err != nil {
				return nil, err
			}
			return func(b array.Builder, i int) error {
				ts, ok := probe.ParseTimestamp(src.Value(i))
				if !ok {
					return lossy(src.Value(i), to)
				}
				b.(*array.TimestampBuilder).Append(arrow.Timestamp(ts.UnixNano() / unit))
				return nil
			}, nil
		}

	case *array.Boolean:
		switch to.ID() {
		case arrow.INT64:
			return func(b array.Builder, i int) error {
				var n int64
				if src.Value(i) {
					n = 1
				}
				b.(*array.Int64Builder).Append(n)
				return nil
			}, nil
		case arrow.STRING:
			return func(b array.Builder, i int) error {
				b.(*array.StringBuilder).Append(strconv.FormatBool(src.Value(i)))
				return nil
			}, nil
		}

	case *array.Date32:
		switch to.ID() {
		case arrow.TIMESTAMP:
			unit, err := timestampUnit(to)
			if err != nil {
				return nil, err
			}
			return func(b array.Builder, i int) error {
				ns := int64(src.Value(i)) * msPerDay * int64(time.Millisecond)
				b.(*array.TimestampBuilder).Append(arrow.Timestamp(ns / unit))
				return nil
			}, nil
		case arrow.STRING:
			return func(b array.Builder, i int) error {
				b.(*array.StringBuilder).Append(dateTime(src.Value(i)).Format("2006-01-02"))
				return nil
			}, nil
		}

	case *array.Timestamp:
		from, ok := arr.DataType().(*arrow.TimestampType)
		if !ok {
			break
		}
		fromUnit := int64(from.Unit.Multiplier())
		switch to.ID() {
		case arrow.DATE32:
			return func(b array.Builder, i int) error {
				ms := int64(src.Value(i)) * fromUnit / int64(time.Millisecond)
				if ms%msPerDay != 0 {
					return lossy(time.UnixMilli(ms).UTC().Format(time.RFC3339Nano), to)
				}
				b.(*array.Date32Builder).Append(arrow.Date32(ms / msPerDay))
				return nil
			}, nil
		case arrow.STRING:
			return func(b array.Builder, i int) error {
				t := time.Unix(0, int64(src.Value(i))*fromUnit).UTC()
				b.(*array.StringBuilder).Append(t.Format(time.RFC3339Nano))
				return nil
			}, nil
		}
	}

	return nil, errors.Newf(errors.ErrTypeMismatch, "cannot cast %s to %s", arr.DataType(), to)
}

// timestampUnit returns the nanoseconds per tick of a timestamp type.
func timestampUnit(dt arrow.DataType) (int64, error) {
	ts, ok := dt.(*arrow.TimestampType)
	if !ok {
		return 0, errors.Newf(errors.ErrTypeMismatch, "not a timestamp type: %s", dt)
	}
	return int64(ts.Unit.Multiplier()), nil
}

func lossy(v string, to arrow.DataType) error {
	return errors.Newf(errors.ErrTypeMismatch, "value %q cannot be represented as %s", v, to)
}

func date32(t time.Time) arrow.Date32 {
	ms := t.UnixMilli()
	days := ms / msPerDay
	if ms%msPerDay < 0 {
		days--
	}
	return arrow.Date32(days)
}

func dateTime(d arrow.Date32) time.Time {
	return time.UnixMilli(int64(d) * msPerDay).UTC()
}

// CastColumn returns a copy of t whose column name has type to. See Cast.
func CastColumn(t *Table, name string, to arrow.DataType, mem memory.Allocator) (*Table, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, errors.Newf(errors.ErrMissingIdentifier, "no column %q", name)
	}
	arr, err := Cast(col, to, mem)
	if err != nil {
		return nil, errors.Wrapf(err, "column %q", name)
	}
	defer arr.Release()
	return t.WithColumn(name, arr)
}
