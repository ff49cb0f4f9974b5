// Package prompush implements a metrics backend that pushes to a Prometheus
// Pushgateway on Flush. Suited to batch runs that exit before a scrape.
package prompush

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"graphetl/internal/metrics"
)

// Backend keeps one private registry per run and pushes it as a whole, so a
// job's previous samples are replaced rather than merged.
type Backend struct {
	reg    *prometheus.Registry
	pusher *push.Pusher

	counters map[string]*prometheus.CounterVec
	hists    map[string]*prometheus.HistogramVec
}

// NewBackend prepares collectors for the pipeline metrics and a pusher for
// job at url.
func NewBackend(job, url string) (*Backend, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("prompush: missing pushgateway url")
	}
	if job == "" {
		job = "graphetl"
	}

	b := &Backend{
		reg: prometheus.NewRegistry(),
		counters: map[string]*prometheus.CounterVec{
			metrics.StepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: metrics.StepTotal,
				Help: "Pipeline steps by step and outcome.",
			}, []string{"step", "status"}),
			metrics.RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: metrics.RecordsTotal,
				Help: "Rows written by dataset kind.",
			}, []string{"kind"}),
			metrics.FilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: metrics.FilesTotal,
				Help: "Input files by classified role.",
			}, []string{"role"}),
		},
		hists: map[string]*prometheus.HistogramVec{
			metrics.StepDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    metrics.StepDurationSec,
				Help:    "Pipeline step duration.",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			}, []string{"step", "status"}),
		},
	}
	for _, c := range b.counters {
		b.reg.MustRegister(c)
	}
	for _, h := range b.hists {
		b.reg.MustRegister(h)
	}
	b.pusher = push.New(url, job).Gatherer(b.reg)
	return b, nil
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	c, ok := b.counters[name]
	if !ok || delta <= 0 {
		return
	}
	c.With(prometheus.Labels(fill(labels, counterLabels(name)))).Add(delta)
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	h, ok := b.hists[name]
	if !ok || value < 0 {
		return
	}
	h.With(prometheus.Labels(fill(labels, []string{"step", "status"}))).Observe(value)
}

// Flush pushes every collector, replacing the job's group on the gateway.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: %w", err)
	}
	return nil
}

// Gatherer exposes the registry for tests.
func (b *Backend) Gatherer() prometheus.Gatherer { return b.reg }

func counterLabels(name string) []string {
	switch name {
	case metrics.RecordsTotal:
		return []string{"kind"}
	case metrics.FilesTotal:
		return []string{"role"}
	}
	return []string{"step", "status"}
}

// fill returns exactly the keys a vector expects; missing values become
// "unknown" so With never panics.
func fill(in metrics.Labels, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v := in[k]
		if v == "" {
			v = "unknown"
		}
		out[k] = v
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
var _ metrics.Flusher = (*Backend)(nil)
