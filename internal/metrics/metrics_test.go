package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	mu       sync.Mutex
	counters map[string]float64
	hists    map[string][]float64
	flushed  int
	flushErr error
}

func newRecorder() *recorder {
	return &recorder{counters: map[string]float64{}, hists: map[string][]float64{}}
}

func (r *recorder) IncCounter(name string, delta float64, l Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"|"+l["step"]+l["status"]+l["kind"]+l["role"]] += delta
}

func (r *recorder) ObserveHistogram(name string, v float64, l Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hists[name] = append(r.hists[name], v)
}

func (r *recorder) Flush() error {
	r.flushed++
	return r.flushErr
}

// Not parallel: the backend is process-global.
func TestFacadeRoutesToBackend(t *testing.T) {
	r := newRecorder()
	SetBackend(r)
	t.Cleanup(func() { SetBackend(nil) })

	RecordStep("node", "written", 1500*time.Millisecond)
	RecordStep("node", "written", time.Second)
	RecordRows("edge", 42)
	RecordFile("unrecognized")

	assert.Equal(t, 2.0, r.counters[StepTotal+"|nodewritten"])
	assert.Equal(t, 42.0, r.counters[RecordsTotal+"|edge"])
	assert.Equal(t, 1.0, r.counters[FilesTotal+"|unrecognized"])
	assert.Equal(t, []float64{1.5, 1}, r.hists[StepDurationSec])

	r.flushErr = errors.New("down")
	assert.EqualError(t, Flush(), "down")
	assert.Equal(t, 1, r.flushed)
}

func TestNopBackend(t *testing.T) {
	SetBackend(nil)
	IncCounter(StepTotal, 1, nil)
	ObserveHistogram(StepDurationSec, 1, nil)
	assert.NoError(t, Flush())
}
