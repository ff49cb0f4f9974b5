// Package pipeline drives a graph build: it scans an input tree of delimited
// files, writes one dataset per node label, then one dataset per relationship
// type whose endpoint columns carry the identifier types of their node
// labels.
//
// A run moves through Init, ScanningFiles, LoadingNodes, LoadingRelationships
// and Done. Every node table is written (and its identifier type recorded)
// before any relationship table is read. Files that cannot be classified or
// whose endpoints are unknown are reported in Report.Skipped and never fail
// the run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/google/uuid"

	"graphetl/internal/errors"
	"graphetl/internal/graph"
	"graphetl/internal/graphfile"
	"graphetl/internal/logging"
	"graphetl/internal/metrics"
	"graphetl/internal/naming"
	"graphetl/internal/storage"
	"graphetl/internal/table"
)

// Endpoint column names of every relationship dataset.
const (
	SrcColumn = "src"
	DstColumn = "dst"
	IDColumn  = "id"
)

// IntegrityPolicy decides what a data-integrity failure does to the run.
type IntegrityPolicy int

const (
	// PolicyAbort stops the run at the first failing table.
	PolicyAbort IntegrityPolicy = iota
	// PolicySkip reports the table as FailedIntegrity and continues.
	PolicySkip
)

func (p IntegrityPolicy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "abort"
}

// State is a phase of a run.
type State int

const (
	StateInit State = iota
	StateScanningFiles
	StateLoadingNodes
	StateLoadingRelationships
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateScanningFiles:
		return "scanning_files"
	case StateLoadingNodes:
		return "loading_nodes"
	case StateLoadingRelationships:
		return "loading_relationships"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure Run. Input and Writer are required.
type Options struct {
	Input  string
	Writer storage.Writer

	// Delimiter of the input files. Zero means '|'.
	Delimiter rune
	// NullValues are read as missing. Nil means probe.DefaultNullValues.
	NullValues []string

	Policy IntegrityPolicy

	// Logger defaults to the logger in ctx, then slog.Default.
	Logger *slog.Logger
	// Allocator defaults to a Go allocator.
	Allocator memory.Allocator

	// OnState, when set, is called on every state transition.
	OnState func(State)
}

// groupFile is one input file of a table group.
type groupFile struct {
	path   string
	rel    string
	header []string
}

// group is every file of one table, e.g. person_0_0.csv and person_1_0.csv.
type group struct {
	name  string
	role  graph.Role
	files []groupFile
}

func (g *group) paths() []string {
	out := make([]string, len(g.files))
	for i, f := range g.files {
		out[i] = f.path
	}
	return out
}

func (g *group) rels() []string {
	out := make([]string, len(g.files))
	for i, f := range g.files {
		out[i] = f.rel
	}
	return out
}

type runner struct {
	opt    Options
	log    *slog.Logger
	mem    memory.Allocator
	reg    *graph.IDTypes
	report *Report
	state  State
}

// Run executes one build. The returned report is non-nil whenever opt is
// valid, including on failure, and lists what completed.
//
// Errors (all fatal):
//   - ErrInvalidConfig if Input or Writer is missing.
//   - ErrInputRootNotFound, ErrNoInputFiles, ErrNoNodeFiles, ErrUnreadableFile.
//   - ErrStorageFailure if a dataset cannot be written.
//   - A data-integrity error under PolicyAbort.
//   - ctx.Err() if ctx is cancelled between tables.
func Run(ctx context.Context, opt Options) (*Report, error) {
	if opt.Writer == nil {
		return nil, errors.New(errors.ErrInvalidConfig, "pipeline: missing writer")
	}
	if opt.Input == "" {
		return nil, errors.New(errors.ErrInvalidConfig, "pipeline: missing input root")
	}

	r := &runner{
		opt: opt,
		mem: opt.Allocator,
		reg: graph.NewIDTypes(),
		report: &Report{
			RunID:   uuid.NewString(),
			Input:   opt.Input,
			Output:  opt.Writer.Location(),
			Started: time.Now(),
		},
	}
	if r.mem == nil {
		r.mem = memory.NewGoAllocator()
	}
	log := opt.Logger
	if log == nil {
		log = logging.FromContext(ctx)
	}
	r.log = log.With("run_id", r.report.RunID)

	err := r.run(ctx)
	r.report.Duration = time.Since(r.report.Started)
	if err != nil {
		r.log.Error("build failed", "state", r.state.String(), "err", err)
		return r.report, err
	}
	r.log.Info("build finished",
		"datasets", len(r.report.Datasets),
		"skipped", len(r.report.Skipped),
		"duration", r.report.Duration)
	return r.report, nil
}

func (r *runner) enter(s State) {
	r.state = s
	r.log.Debug("state", "state", s.String())
	if r.opt.OnState != nil {
		r.opt.OnState(s)
	}
}

func (r *runner) run(ctx context.Context) error {
	r.enter(StateInit)

	r.enter(StateScanningFiles)
	files, err := graphfile.Scan(r.opt.Input)
	if err != nil {
		return err
	}
	r.log.Info("scanned input", "root", r.opt.Input, "files", len(files))

	nodes, edges, nodeFiles, err := r.classify(files)
	if err != nil {
		return err
	}
	if nodeFiles == 0 {
		return errors.Newf(errors.ErrNoNodeFiles, "no node files found under: %s", r.opt.Input)
	}

	r.enter(StateLoadingNodes)
	for _, g := range nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.settle(g, r.loadNode(ctx, g)); err != nil {
			return err
		}
	}

	r.enter(StateLoadingRelationships)
	for _, g := range edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.settle(g, r.loadEdge(ctx, g)); err != nil {
			return err
		}
	}

	r.enter(StateDone)
	return nil
}

// classify reads every header and groups files by table. Groups come back
// sorted by name so the processing order does not depend on file layout.
func (r *runner) classify(files []string) (nodes, edges []*group, nodeFiles int, err error) {
	byName := map[string]*group{}

	for _, path := range files {
		rel := graphfile.Rel(r.opt.Input, path)
		header, err := graphfile.ReadHeader(path, r.delimiter())
		if err != nil {
			return nil, nil, 0, err
		}

		role := graph.Classify(header)
		metrics.RecordFile(role.String())

		var name string
		switch role {
		case graph.RoleNode:
			nodeFiles++
			label, lerr := naming.Label(graphfile.TableStem(path))
			if lerr != nil {
				r.skip(graph.RoleNode, []string{rel}, SkipUnrecognized, lerr, 0)
				continue
			}
			name = label
		case graph.RoleEdge:
			name = graphfile.TableStem(path)
		default:
			r.skip(graph.RoleUnrecognized, []string{rel}, SkipUnrecognized,
				errors.Newf(errors.ErrNotEdgeHeader, "header %v is neither a node nor a relationship header", header), 0)
			continue
		}

		key := role.String() + "\x00" + name
		g, ok := byName[key]
		if !ok {
			g = &group{name: name, role: role}
			byName[key] = g
			if role == graph.RoleNode {
				nodes = append(nodes, g)
			} else {
				edges = append(edges, g)
			}
		}
		g.files = append(g.files, groupFile{path: path, rel: rel, header: header})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].name < nodes[j].name })
	sort.Slice(edges, func(i, j int) bool { return edges[i].name < edges[j].name })
	return nodes, edges, nodeFiles, nil
}

// settle applies the integrity policy to the outcome of one group. Skips
// have already been recorded by the loaders; what remains is either fatal or
// an integrity failure.
func (r *runner) settle(g *group, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsDataIntegrity(err) && r.opt.Policy == PolicySkip {
		r.skip(g.role, g.rels(), FailedIntegrity, err, 0)
		return nil
	}
	if errors.IsDataIntegrity(err) {
		metrics.RecordStep(g.role.String(), FailedIntegrity.metricStatus(), 0)
	}
	return errors.Wrapf(err, "%s %s", g.role, g.name)
}

func (r *runner) loadNode(ctx context.Context, g *group) error {
	start := time.Now()

	columns, err := groupColumns(g, func(h []string) []string {
		return naming.Dedupe(naming.Columns(h))
	})
	if err != nil {
		return err
	}

	t, err := table.Load(ctx, g.paths(), columns, r.loadOptions())
	if err != nil {
		return err
	}
	defer t.Release()

	if err := table.RequireNonNull(t, IDColumn, g.files[0].rel+":"+IDColumn); err != nil {
		return err
	}

	idType := t.Schema().Field(t.ColumnIndex(IDColumn)).Type
	if err := r.write(ctx, g, t, start); err != nil {
		return err
	}
	if err := r.reg.Record(g.name, idType); err != nil {
		return err
	}
	r.log.Debug("recorded id type", "label", g.name, "type", idType.String())
	return nil
}

func (r *runner) loadEdge(ctx context.Context, g *group) error {
	start := time.Now()

	ep, err := graph.ResolveEndpoints(g.files[0].header, r.reg)
	switch {
	case errors.Is(err, errors.ErrUnresolvedEndpoint):
		r.skip(graph.RoleEdge, g.rels(), SkipUnresolvedEndpoint, err, time.Since(start))
		return nil
	case errors.Is(err, errors.ErrNotEdgeHeader):
		r.skip(graph.RoleEdge, g.rels(), SkipUnrecognized, err, time.Since(start))
		return nil
	case err != nil:
		return err
	}

	columns, err := groupColumns(g, func(h []string) []string {
		cols := append([]string{SrcColumn, DstColumn}, naming.Columns(h[2:])...)
		return naming.Dedupe(cols)
	})
	if err != nil {
		return err
	}

	loaded, err := table.Load(ctx, g.paths(), columns, r.loadOptions())
	if err != nil {
		return err
	}
	defer loaded.Release()

	withSrc, err := table.CastColumn(loaded, SrcColumn, ep.Src.Type, r.mem)
	if err != nil {
		return errors.Wrapf(err, "source endpoint %s", ep.Src.Label)
	}
	defer withSrc.Release()

	t, err := table.CastColumn(withSrc, DstColumn, ep.Dst.Type, r.mem)
	if err != nil {
		return errors.Wrapf(err, "destination endpoint %s", ep.Dst.Label)
	}
	defer t.Release()

	for _, col := range []string{SrcColumn, DstColumn} {
		if err := table.RequireNonNull(t, col, g.files[0].rel+":"+col); err != nil {
			return err
		}
	}

	return r.write(ctx, g, t, start)
}

func (r *runner) write(ctx context.Context, g *group, t *table.Table, start time.Time) error {
	loc, err := r.opt.Writer.WriteDataset(ctx, g.name, t.Record())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Newf(errors.ErrStorageFailure, "write dataset %s: %v", g.name, err)
	}

	rows := t.NumRows()
	r.report.Datasets = append(r.report.Datasets, Dataset{
		Name:     g.name,
		Role:     g.role,
		Location: loc,
		Rows:     rows,
		Files:    g.rels(),
	})

	role := g.role.String()
	metrics.RecordStep(role, "written", time.Since(start))
	metrics.RecordRows(role, rows)
	r.log.Info("wrote dataset", "dataset", g.name, "role", role, "rows", rows, "files", len(g.files), "location", loc)
	return nil
}

func (r *runner) skip(role graph.Role, rels []string, reason SkipReason, err error, elapsed time.Duration) {
	for _, rel := range rels {
		r.report.Skipped = append(r.report.Skipped, Skip{Path: rel, Reason: reason, Err: err})
		r.log.Warn("skipped file", "path", rel, "reason", reason.String(), "err", err)
	}
	metrics.RecordStep(role.String(), reason.metricStatus(), elapsed)
}

func (r *runner) delimiter() rune {
	if r.opt.Delimiter == 0 {
		return graphfile.DefaultDelimiter
	}
	return r.opt.Delimiter
}

func (r *runner) loadOptions() table.LoadOptions {
	return table.LoadOptions{
		Delimiter:  r.delimiter(),
		NullValues: r.opt.NullValues,
		Allocator:  r.mem,
	}
}

// groupColumns derives the column names of a group from its first header and
// checks that every other file derives the same names.
//
// Errors:
//   - ErrSchemaConflict if two files of the group disagree.
func groupColumns(g *group, derive func(header []string) []string) ([]string, error) {
	want := derive(g.files[0].header)
	for _, f := range g.files[1:] {
		got := derive(f.header)
		if !equalStrings(want, got) {
			return nil, errors.Newf(errors.ErrSchemaConflict,
				"%s has columns %v, but %s has %v", f.rel, got, g.files[0].rel, want)
		}
	}
	return want, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
