package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphetl/internal/metrics"
)

func TestBackendCollects(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("test", "http://127.0.0.1:1")
	require.NoError(t, err)

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "node", "status": "written"})
	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "edge"})
	b.IncCounter(metrics.RecordsTotal, 10, metrics.Labels{"kind": "node"})
	b.IncCounter("unknown_total", 1, nil)
	b.ObserveHistogram(metrics.StepDurationSec, 0.5, metrics.Labels{"step": "node", "status": "written"})

	mfs, err := b.Gatherer().Gather()
	require.NoError(t, err)

	got := map[string]int{}
	for _, mf := range mfs {
		got[mf.GetName()] = len(mf.GetMetric())
	}
	assert.Equal(t, 2, got[metrics.StepTotal])
	assert.Equal(t, 1, got[metrics.RecordsTotal])
	assert.Equal(t, 1, got[metrics.StepDurationSec])
	assert.NotContains(t, got, "unknown_total")
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(raw)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("graph_build", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.FilesTotal, 3, metrics.Labels{"role": "node"})
	require.NoError(t, b.Flush())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasSuffix(path, "/job/graph_build"), path)
	assert.NotEmpty(t, body)
}

func TestNewBackendRequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("job", " ")
	assert.Error(t, err)
}
