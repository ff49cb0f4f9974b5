// Package csv parses delimited graph files into positional string records.
package csv

import (
	"context"
	"encoding/csv"
	"io"

	"graphetl/internal/errors"
)

// Options controls record parsing.
type Options struct {
	// Comma is the field delimiter. Zero means '|'.
	Comma rune

	// HasHeader skips the first record. The caller names columns itself.
	HasHeader bool

	// Fields is the required number of fields per record. A record with a
	// different count fails with ErrMalformedRow. Zero disables the check.
	Fields int

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool
}

// StreamRecords reads src record by record and calls fn with the 1-based
// record number (header included) and the record's fields. The fields slice is
// owned by fn. src is closed on return.
//
// Cancellation is checked between records.
//
// Errors:
//   - ErrMalformedRow when a record's field count differs from opt.Fields or
//     the text cannot be parsed.
//   - ctx.Err() when ctx is done.
//   - Any error returned by fn, unchanged.
func StreamRecords(ctx context.Context, src io.ReadCloser, opt Options, fn func(line int, rec []string) error) error {
	defer src.Close()

	comma := opt.Comma
	if comma == 0 {
		comma = '|'
	}

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	var line int
	if opt.HasHeader {
		line++
		if _, err := cr.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrapf(errors.New(errors.ErrMalformedRow, err.Error()), "read header")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return errors.Wrapf(errors.New(errors.ErrMalformedRow, err.Error()), "record %d", line)
		}
		if opt.Fields > 0 && len(rec) != opt.Fields {
			return errors.Newf(errors.ErrMalformedRow, "record %d has %d fields, want %d", line, len(rec), opt.Fields)
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

// ReadAll collects every record of src. See StreamRecords.
func ReadAll(ctx context.Context, src io.ReadCloser, opt Options) ([][]string, error) {
	var rows [][]string
	err := StreamRecords(ctx, src, opt, func(_ int, rec []string) error {
		rows = append(rows, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
