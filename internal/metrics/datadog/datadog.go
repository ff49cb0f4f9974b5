// Package datadog ships graphetl metrics to the Datadog intake API.
//
// Observations accumulate in a window keyed by metric and tag set. The window
// is submitted on a ticker (once a minute by default) and once more on Close,
// so a long build yields a time series and a short one still delivers its
// tail.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"graphetl/internal/metrics"
)

// seriesNames maps facade metric names to Datadog metric names. Anything
// else is dropped.
var seriesNames = map[string]string{
	metrics.StepTotal:       "graphetl.step.total",
	metrics.RecordsTotal:    "graphetl.records.total",
	metrics.FilesTotal:      "graphetl.files.total",
	metrics.StepDurationSec: "graphetl.step.duration_seconds",
}

// Options configures a Backend.
type Options struct {
	// JobName is sent as tag "job:<name>". Defaults to "graphetl".
	JobName string
	// Tags are added to every series, e.g. "team:graph".
	Tags []string
	// FlushEvery defaults to one minute.
	FlushEvery time.Duration

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the slice of *datadogV2.MetricsApi we call.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// seriesKey identifies one output series: a Datadog metric name plus its
// sorted, comma-joined tags.
type seriesKey struct {
	metric string
	tags   string
}

// window is everything observed since the last submission.
type window struct {
	counts  map[seriesKey]float64
	samples map[seriesKey][]float64
}

func newWindow() *window {
	return &window{
		counts:  map[seriesKey]float64{},
		samples: map[seriesKey][]float64{},
	}
}

func (w *window) empty() bool { return len(w.counts) == 0 && len(w.samples) == 0 }

// Backend implements metrics.Backend and metrics.Flusher.
type Backend struct {
	api  submitter
	ctx  context.Context
	tags []string
	now  func() time.Time

	mu  sync.Mutex
	cur *window

	stop chan struct{}
	done chan struct{}
}

// NewBackend starts a backend on the official client. DD_API_KEY and DD_SITE
// are read by the client; submission errors surface from Flush and Close.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if opts.JobName == "" {
		opts.JobName = "graphetl"
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = time.Minute
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.newTicker == nil {
		opts.newTicker = time.NewTicker
	}
	if opts.submitter == nil {
		opts.submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:  opts.submitter,
		ctx:  dd.NewDefaultContext(parent),
		tags: append([]string{envTag(), "job:" + opts.JobName}, opts.Tags...),
		now:  opts.now,
		cur:  newWindow(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.run(opts.newTicker(opts.FlushEvery))
	return b, nil
}

// envTag prefers ENV over DD_ENV.
func envTag() string {
	for _, k := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

func (b *Backend) run(t *time.Ticker) {
	defer close(b.done)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stop:
			return
		}
	}
}

// Close stops the ticker and submits what is left. Call once.
func (b *Backend) Close() error {
	close(b.stop)
	<-b.done
	return b.Flush()
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	metric, ok := seriesNames[name]
	if !ok || delta <= 0 {
		return
	}
	k := seriesKey{metric: metric, tags: labelTags(labels)}
	b.mu.Lock()
	b.cur.counts[k] += delta
	b.mu.Unlock()
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	metric, ok := seriesNames[name]
	if !ok || value < 0 {
		return
	}
	k := seriesKey{metric: metric, tags: labelTags(labels)}
	b.mu.Lock()
	b.cur.samples[k] = append(b.cur.samples[k], value)
	b.mu.Unlock()
}

// Flush submits the current window and starts a new one. The window is
// discarded even when submission fails.
func (b *Backend) Flush() error {
	b.mu.Lock()
	w := b.cur
	b.cur = newWindow()
	b.mu.Unlock()

	if w.empty() {
		return nil
	}
	body := datadogV2.MetricPayload{Series: b.series(w, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, body, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// series renders w in a stable order: counters first, then one gauge per
// summary statistic of every sampled series.
func (b *Backend) series(w *window, ts int64) []datadogV2.MetricSeries {
	out := make([]datadogV2.MetricSeries, 0, len(w.counts)+len(summaries)*len(w.samples))
	for _, k := range sortedKeys(w.counts) {
		out = append(out, point(k.metric, datadogV2.METRICINTAKETYPE_COUNT, w.counts[k], b.seriesTags(k), ts))
	}
	for _, k := range sortedKeys(w.samples) {
		s := append([]float64(nil), w.samples[k]...)
		sort.Float64s(s)
		tags := b.seriesTags(k)
		for _, sm := range summaries {
			out = append(out, point(k.metric+"."+sm.suffix, datadogV2.METRICINTAKETYPE_GAUGE, sm.fn(s), tags, ts))
		}
	}
	return out
}

func (b *Backend) seriesTags(k seriesKey) []string {
	tags := append([]string(nil), b.tags...)
	if k.tags != "" {
		tags = append(tags, strings.Split(k.tags, ",")...)
	}
	return tags
}

// summaries reduce a sorted, non-empty sample slice to one gauge each.
var summaries = []struct {
	suffix string
	fn     func(sorted []float64) float64
}{
	{"p50", func(s []float64) float64 { return nearestRank(s, 0.50) }},
	{"p90", func(s []float64) float64 { return nearestRank(s, 0.90) }},
	{"p95", func(s []float64) float64 { return nearestRank(s, 0.95) }},
	{"p99", func(s []float64) float64 { return nearestRank(s, 0.99) }},
	{"max", func(s []float64) float64 { return s[len(s)-1] }},
	{"samples", func(s []float64) float64 { return float64(len(s)) }},
}

func point(metric string, typ datadogV2.MetricIntakeType, v float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
		Tags:   tags,
	}
}

// labelTags turns labels into sorted "key:value" tags joined by commas. An
// empty value becomes "unknown".
func labelTags(labels metrics.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if v == "" {
			v = "unknown"
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

func sortedKeys[V any](m map[seriesKey]V) []seriesKey {
	keys := make([]seriesKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].metric != keys[j].metric {
			return keys[i].metric < keys[j].metric
		}
		return keys[i].tags < keys[j].tags
	})
	return keys
}

// nearestRank expects s sorted ascending and non-empty.
func nearestRank(s []float64, p float64) float64 {
	switch {
	case p <= 0:
		return s[0]
	case p >= 1:
		return s[len(s)-1]
	}
	i := int(p*float64(len(s)-1) + 0.5)
	if i >= len(s) {
		i = len(s) - 1
	}
	return s[i]
}

// ParseTagsCSV splits "env:prod, team:graph" into tags, dropping blanks.
func ParseTagsCSV(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

var (
	_ metrics.Backend = (*Backend)(nil)
	_ metrics.Flusher = (*Backend)(nil)
)
