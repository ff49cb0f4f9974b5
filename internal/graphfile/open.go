// Package graphfile locates and opens the delimited files that make up a graph
// export, and derives table names from their file names.
package graphfile

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"graphetl/internal/errors"
)

// compressionExts are the suffixes Open knows how to decompress. Stem strips
// every suffix in this list, decompressible or not.
var compressionExts = []string{".gz", ".zst", ".bz2", ".xz"}

// Open returns a reader over the decoded text of path.
//
// .gz and .zst files are decompressed transparently. A leading UTF-8 byte
// order mark is consumed, so the first header token never carries it.
// Closing the returned reader closes the underlying file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.New(errors.ErrUnreadableFile, err.Error()), "open %s", path)
	}

	var (
		r       io.Reader = f
		closers           = []io.Closer{f}
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(errors.New(errors.ErrUnreadableFile, err.Error()), "gzip %s", path)
		}
		r = zr
		closers = append([]io.Closer{zr}, closers...)
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(errors.New(errors.ErrUnreadableFile, err.Error()), "zstd %s", path)
		}
		r = zr
		closers = append([]io.Closer{zr.IOReadCloser()}, closers...)
	}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	return &readCloser{
		Reader:  transform.NewReader(r, dec),
		closers: closers,
	}, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// IsDelimitedFile reports whether path names a file the scanner should pick up:
// a .csv file, optionally followed by a compression suffix Open can decode.
func IsDelimitedFile(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".gz", ".zst"} {
		name = strings.TrimSuffix(name, ext)
	}
	return strings.HasSuffix(name, ".csv") && name != ".csv"
}
