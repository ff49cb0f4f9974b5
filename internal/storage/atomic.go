package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFileAtomic writes path by streaming write into a temporary file in the
// same directory and renaming it over path once it is complete and synced.
// Readers observe either the old file or the new one, never a partial write.
//
// write receives a buffered writer that does not implement io.Closer, so
// encoders that close their sink on completion leave the file open for the
// final flush and sync.
func WriteFileAtomic(path string, write func(w io.Writer) error) error {
	return replaceFile(path, func(f *os.File) error {
		bw := bufio.NewWriterSize(f, 1<<20)
		if err := write(bw); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", f.Name(), err)
		}
		return nil
	})
}

// WriteFileAtomicSeeker is WriteFileAtomic for encoders that need to seek,
// such as the Arrow IPC file writer. write receives the unbuffered temporary
// file behind a value that cannot close it.
func WriteFileAtomicSeeker(path string, write func(w io.WriteSeeker) error) error {
	return replaceFile(path, func(f *os.File) error {
		return write(fileSeeker{f})
	})
}

// fileSeeker hides every method of *os.File but Write and Seek.
type fileSeeker struct{ f *os.File }

func (s fileSeeker) Write(p []byte) (int, error) { return s.f.Write(p) }

func (s fileSeeker) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}

// replaceFile creates a temporary file next to path, fills it with fill,
// syncs it and renames it over path. The temporary file is removed on any
// error.
func replaceFile(path string, fill func(f *os.File) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp-"+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = fill(f); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
