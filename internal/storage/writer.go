// Package storage persists graph tables as named datasets.
//
// Backends register themselves from init() under a kind ("parquet", "arrow",
// "sqlite", "postgres", "mssql"). Import internal/storage/all to link every
// backend into a binary.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow/go/v10/arrow"
)

// Config selects and configures a backend.
//
// Edge cases:
//   - Kind must match a registered backend.
//   - Dir is used by file backends, DSN and Schema by SQL backends. Each
//     backend validates only the fields it uses.
type Config struct {
	Kind   string
	Dir    string
	DSN    string
	Schema string
}

// Writer persists datasets.
//
// Every dataset is replaced wholesale: after WriteDataset returns nil, readers
// see exactly rec under name, and before it returns they see the previous
// contents (or nothing). A failed write leaves the previous contents in place.
// Writes to distinct names are independent. Concurrent writes to the same name
// are not supported.
type Writer interface {
	// WriteDataset replaces the dataset called name with rec and returns the
	// dataset's location (a file path or a qualified table name). The location
	// is a pure function of the writer's configuration and name.
	WriteDataset(ctx context.Context, name string, rec arrow.Record) (string, error)

	// Location describes where datasets go, safe for logs (no credentials).
	Location() string

	// Close releases backend resources. Call once.
	Close()
}

type factory func(ctx context.Context, cfg Config) (Writer, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register makes a backend available to New under kind.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs the Writer registered under cfg.Kind.
//
// Errors:
//   - If cfg.Kind is empty or unregistered.
//   - Whatever the backend factory returns.
func New(ctx context.Context, cfg Config) (Writer, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidateName rejects dataset names that could escape the output location.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("storage: empty dataset name")
	case name == "." || name == "..":
		return fmt.Errorf("storage: invalid dataset name %q", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("storage: dataset name %q contains a path separator", name)
	}
	return nil
}
