package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"

	"graphetl/internal/graph"
)

// SkipReason says why an input file produced no dataset.
type SkipReason int

const (
	// SkipUnrecognized: the header is neither a node nor a relationship
	// header, or the file name yields no label.
	SkipUnrecognized SkipReason = iota + 1
	// SkipUnresolvedEndpoint: a relationship names a label with no node table.
	SkipUnresolvedEndpoint
	// FailedIntegrity: the table failed a data-integrity check and the run
	// was configured to continue.
	FailedIntegrity
)

func (r SkipReason) String() string {
	switch r {
	case SkipUnrecognized:
		return "skipped: unrecognized header"
	case SkipUnresolvedEndpoint:
		return "skipped: unresolved endpoint"
	case FailedIntegrity:
		return "failed: data integrity"
	default:
		return "unknown"
	}
}

// metricStatus is the status label used for r in etl_step_total.
func (r SkipReason) metricStatus() string {
	switch r {
	case SkipUnrecognized:
		return "skipped_unrecognized"
	case SkipUnresolvedEndpoint:
		return "skipped_unresolved"
	default:
		return "failed_integrity"
	}
}

// Skip is one input file that did not contribute to any dataset.
type Skip struct {
	Path   string // relative to the input root
	Reason SkipReason
	Err    error
}

// Dataset is one dataset written by the run.
type Dataset struct {
	Name     string
	Role     graph.Role
	Location string
	Rows     int64
	Files    []string // relative to the input root
}

// Report summarizes a run. It is returned even when the run fails, holding
// whatever completed before the failure.
type Report struct {
	RunID    string
	Input    string
	Output   string
	Started  time.Time
	Duration time.Duration

	Datasets []Dataset
	Skipped  []Skip
}

// DatasetNames returns the names of written datasets in write order.
func (r *Report) DatasetNames() []string {
	out := make([]string, len(r.Datasets))
	for i, d := range r.Datasets {
		out[i] = d.Name
	}
	return out
}

// SkippedPaths returns the relative paths skipped for reason, sorted.
func (r *Report) SkippedPaths(reason SkipReason) []string {
	var out []string
	for _, s := range r.Skipped {
		if s.Reason == reason {
			out = append(out, s.Path)
		}
	}
	sort.Strings(out)
	return out
}

// Dataset returns the dataset called name.
func (r *Report) Dataset(name string) (Dataset, bool) {
	for _, d := range r.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}

// Render writes the report as tables to w.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "run %s: %d dataset(s) written to %s in %s\n",
		r.RunID, len(r.Datasets), r.Output, r.Duration.Round(time.Millisecond))

	if len(r.Datasets) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{"dataset", "role", "rows", "files", "location"})
		for _, d := range r.Datasets {
			t.AppendRow(table.Row{d.Name, d.Role.String(), d.Rows, len(d.Files), d.Location})
		}
		t.Render()
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "\n%d file(s) skipped:\n", len(r.Skipped))
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.Style().Format.Header = text.FormatDefault
		t.AppendHeader(table.Row{"path", "reason", "detail"})
		for _, s := range r.Skipped {
			detail := ""
			if s.Err != nil {
				detail = firstLine(s.Err.Error())
			}
			t.AppendRow(table.Row{s.Path, s.Reason.String(), detail})
		}
		t.Render()
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
