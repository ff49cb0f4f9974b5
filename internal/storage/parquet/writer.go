// Package parquet writes datasets as Parquet files, one file per dataset,
// replaced atomically.
package parquet

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	pq "github.com/apache/arrow/go/v10/parquet"
	"github.com/apache/arrow/go/v10/parquet/compress"
	"github.com/apache/arrow/go/v10/parquet/file"
	"github.com/apache/arrow/go/v10/parquet/pqarrow"

	"graphetl/internal/storage"
)

// Ext is the file extension of every dataset.
const Ext = ".parquet"

const rowGroupSize = 64 * 1024

func init() {
	storage.Register("parquet", New)
}

// Writer stores each dataset at <dir>/<name>.parquet. The Arrow schema is
// embedded so readers get back the exact column types, including timestamp
// time zones.
type Writer struct {
	dir   string
	props *pq.WriterProperties
}

// New creates the output directory if needed.
func New(_ context.Context, cfg storage.Config) (storage.Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("parquet: missing output dir")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("parquet: %w", err)
	}
	return &Writer{
		dir:   cfg.Dir,
		props: pq.NewWriterProperties(pq.WithCompression(compress.Codecs.Snappy)),
	}, nil
}

func (w *Writer) Location() string { return w.dir }

func (w *Writer) Close() {}

// Path returns where name is stored.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name+Ext)
}

func (w *Writer) WriteDataset(ctx context.Context, name string, rec arrow.Record) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()

	path := w.Path(name)
	err := storage.WriteFileAtomic(path, func(out io.Writer) error {
		return pqarrow.WriteTable(tbl, out, rowGroupSize, w.props,
			pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	})
	if err != nil {
		return "", fmt.Errorf("parquet: write %s: %w", path, err)
	}
	return path, nil
}

// ReadTable loads a dataset written by Writer.
func ReadTable(ctx context.Context, path string, mem memory.Allocator) (arrow.Table, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	rdr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, err
	}
	return rdr.ReadTable(ctx)
}
