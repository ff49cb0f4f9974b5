package graphfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"graphetl/internal/errors"
)

// Scan recursively lists every delimited file under root in lexicographic
// path order.
//
// Errors:
//   - ErrInputRootNotFound if root does not exist or is not a directory.
//   - ErrNoInputFiles if the walk finds nothing.
func Scan(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Newf(errors.ErrInputRootNotFound, "input root not found: %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrInputRootNotFound, "input root is not a directory: %s", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsDelimitedFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.New(errors.ErrUnreadableFile, err.Error()), "scan %s", root)
	}
	if len(files) == 0 {
		return nil, errors.Newf(errors.ErrNoInputFiles, "no delimited files found under: %s", root)
	}

	sort.Strings(files)
	return files, nil
}

// Rel returns path relative to root for display, or path itself when it is
// not under root.
func Rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
