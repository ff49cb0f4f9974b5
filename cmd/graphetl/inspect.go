package main

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/spf13/cobra"

	"graphetl/internal/errors"
	"graphetl/internal/graph"
	"graphetl/internal/graphfile"
	"graphetl/internal/naming"
	csvparser "graphetl/internal/parser/csv"
	"graphetl/internal/probe"
)

// errSampleFull stops sampling once enough rows are read.
var errSampleFull = errors.Errorf("sample full")

type inspectFlags struct {
	delimiter  string
	nullValues []string
	rows       int
}

func newInspectCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	f := inspectFlags{
		delimiter:  "|",
		nullValues: append([]string(nil), probe.DefaultNullValues...),
		rows:       1000,
	}
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show how build would treat each file.",
		Long: `inspect prints, for every FILE, its role (node, edge or unrecognized),
the dataset it would feed, the endpoint labels of relationship files, and
the normalized columns with the kinds inferred from the first --rows rows.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{errors.New(errors.ErrInvalidConfig, "inspect needs at least one FILE")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if utf8.RuneCountInString(f.delimiter) != 1 {
				return usageError{errors.Newf(errors.ErrInvalidConfig, "delimiter must be a single character, got %q", f.delimiter)}
			}
			if f.rows <= 0 {
				return usageError{errors.Newf(errors.ErrInvalidConfig, "--rows must be positive, got %d", f.rows)}
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			for i, path := range args {
				if i > 0 {
					fmt.Fprintln(stdout)
				}
				if err := inspectFile(ctx, stdout, path, f); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.delimiter, "delimiter", "d", f.delimiter, "Field delimiter of the input files.")
	cmd.Flags().StringSliceVar(&f.nullValues, "null-values", f.nullValues, "Cell values read as null.")
	cmd.Flags().IntVar(&f.rows, "rows", f.rows, "Number of data rows sampled per file.")
	return cmd
}

func inspectFile(ctx context.Context, w io.Writer, path string, f inspectFlags) error {
	comma, _ := utf8.DecodeRuneInString(f.delimiter)
	header, err := graphfile.ReadHeader(path, comma)
	if err != nil {
		return err
	}

	role := graph.Classify(header)
	fmt.Fprintf(w, "%s\n  role: %s\n", path, role)

	var columns []string
	switch role {
	case graph.RoleNode:
		label, err := naming.Label(graphfile.TableStem(path))
		if err != nil {
			fmt.Fprintf(w, "  dataset: none (%v)\n", err)
			return nil
		}
		fmt.Fprintf(w, "  dataset: %s\n", label)
		columns = naming.Dedupe(naming.Columns(header))
	case graph.RoleEdge:
		src, dst, err := graph.EdgeLabels(header)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  dataset: %s\n  endpoints: %s -> %s\n", graphfile.TableStem(path), src, dst)
		columns = naming.Dedupe(append([]string{"src", "dst"}, naming.Columns(header[2:])...))
	default:
		_, _, err := graph.EdgeLabels(header)
		fmt.Fprintf(w, "  dataset: none (%v)\n", err)
		return nil
	}

	rows, err := sampleRows(ctx, path, comma, len(header), f.rows)
	if err != nil {
		return err
	}
	profiles := probe.Profile(columns, rows, probe.NewNullSet(f.nullValues))

	fmt.Fprintf(w, "  sampled rows: %d\n", len(rows))
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"column", "kind", "values", "nulls", "distinct", "unique"})
	for _, p := range profiles {
		distinct := fmt.Sprint(p.Distinct)
		if p.Capped {
			distinct = ">=" + distinct
		}
		t.AppendRow(table.Row{p.Name, p.Kind.String(), p.Values, p.Nulls, distinct, p.Unique()})
	}
	t.Render()
	return nil
}

// sampleRows reads up to limit data rows of path.
func sampleRows(ctx context.Context, path string, comma rune, fields, limit int) ([][]string, error) {
	src, err := graphfile.Open(path)
	if err != nil {
		return nil, err
	}
	var rows [][]string
	opt := csvparser.Options{Comma: comma, HasHeader: true, Fields: fields}
	err = csvparser.StreamRecords(ctx, src, opt, func(_ int, rec []string) error {
		rows = append(rows, rec)
		if len(rows) >= limit {
			return errSampleFull
		}
		return nil
	})
	if err != nil && err != errSampleFull {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return rows, nil
}
