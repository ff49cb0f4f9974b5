// Package arrowipc writes datasets in the Arrow IPC file format.
package arrowipc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/ipc"
	"github.com/apache/arrow/go/v10/arrow/memory"

	"graphetl/internal/storage"
)

const Ext = ".arrow"

func init() {
	storage.Register("arrow", New)
}

// Writer stores each dataset at <dir>/<name>.arrow.
type Writer struct {
	dir string
	mem memory.Allocator
}

func New(_ context.Context, cfg storage.Config) (storage.Writer, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("arrow: missing output dir")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("arrow: %w", err)
	}
	return &Writer{dir: cfg.Dir, mem: memory.NewGoAllocator()}, nil
}

func (w *Writer) Location() string { return w.dir }

func (w *Writer) Close() {}

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

	path := w.Path(name)
	err := storage.WriteFileAtomicSeeker(path, func(out io.WriteSeeker) error {
		fw, err := ipc.NewFileWriter(out, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(w.mem))
		if err != nil {
			return err
		}
		if err := fw.Write(rec); err != nil {
			_ = fw.Close()
			return err
		}
		return fw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("arrow: write %s: %w", path, err)
	}
	return path, nil
}

// ReadRecords loads every record batch of a dataset written by Writer. The
// caller releases the records.
func ReadRecords(path string, mem memory.Allocator) (*arrow.Schema, []arrow.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			for _, done := range recs {
				done.Release()
			}
			return nil, nil, err
		}
		rec.Retain()
		recs = append(recs, rec)
	}
	return r.Schema(), recs, nil
}
