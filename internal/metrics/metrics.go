// Package metrics is a small facade over pluggable metric backends.
//
// Pipeline code records through the package-level functions; the command
// selects a backend once at startup with SetBackend. The default backend
// discards everything.
package metrics

import (
	"sync"
	"time"
)

// Metric names recorded by the pipeline.
const (
	StepTotal       = "etl_step_total"
	RecordsTotal    = "etl_records_total"
	FilesTotal      = "etl_files_total"
	StepDurationSec = "etl_step_duration_seconds"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer observations.
type Flusher interface {
	Flush() error
}

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nop{}
)

// SetBackend installs b. A nil b restores the discarding backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nop{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend if it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordStep counts one step outcome and observes its duration.
func RecordStep(step, status string, elapsed time.Duration) {
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSec, elapsed.Seconds(), l)
}

// RecordRows counts rows written for a dataset kind ("node" or "edge").
func RecordRows(kind string, n int64) {
	IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}

// RecordFile counts one input file by role.
func RecordFile(role string) {
	IncCounter(FilesTotal, 1, Labels{"role": role})
}
