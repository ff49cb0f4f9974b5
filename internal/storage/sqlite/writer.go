// Package sqlite stores datasets as tables in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	_ "modernc.org/sqlite"

	"graphetl/internal/storage"
)

// SQLite caps bound parameters per statement at 32766 in current builds; stay
// well below it.
const maxParams = 30000

const dateLayout = "2006-01-02"

func init() {
	storage.Register("sqlite", New)
}

// Writer replaces one table per dataset.
//
// SQLite has no native DATE or TIMESTAMP type, so dates are stored as TEXT
// "2006-01-02" and timestamps as RFC3339Nano TEXT in UTC. Booleans are stored
// as INTEGER 0/1.
type Writer struct {
	db  *sql.DB
	dsn string
}

func New(ctx context.Context, cfg storage.Config) (storage.Writer, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: missing dsn")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// A single connection keeps in-memory databases alive across statements.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Writer{db: db, dsn: cfg.DSN}, nil
}

func (w *Writer) Location() string { return w.dsn }

func (w *Writer) Close() { _ = w.db.Close() }

// DB exposes the underlying handle for callers that read results back.
func (w *Writer) DB() *sql.DB { return w.db }

// WriteDataset drops and recreates the table called name inside one
// transaction, so a failed load leaves the previous table untouched.
func (w *Writer) WriteDataset(ctx context.Context, name string, rec arrow.Record) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	cols := storage.ColumnsOf(rec.Schema())
	createSQL, err := buildCreateSQL(name, cols)
	if err != nil {
		return "", err
	}
	rows, err := storage.Rows(rec)
	if err != nil {
		return "", fmt.Errorf("sqlite: %s: %w", name, err)
	}
	for _, row := range rows {
		toSQLiteValues(row, cols)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(name)); err != nil {
		return "", fmt.Errorf("sqlite: drop %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return "", fmt.Errorf("sqlite: create %s: %w", name, err)
	}

	batch := batchRows(len(cols))
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(name, storage.ColumnNames(cols), rows[start:end])
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return "", fmt.Errorf("sqlite: insert %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return name, nil
}

func batchRows(ncols int) int {
	if ncols == 0 {
		return 1
	}
	n := maxParams / ncols
	if n < 1 {
		n = 1
	}
	return n
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqliteType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.INT64, arrow.BOOL:
		return "INTEGER", nil
	case arrow.FLOAT64:
		return "REAL", nil
	case arrow.STRING, arrow.DATE32, arrow.TIMESTAMP:
		return "TEXT", nil
	}
	return "", fmt.Errorf("sqlite: unsupported column type %s", dt)
}

func buildCreateSQL(name string, cols []storage.ColumnSpec) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("sqlite: %s has no columns", name)
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		typ, err := sqliteType(c.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", c.Name, err)
		}
		def := sqlIdent(c.Name) + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(name), strings.Join(defs, ", ")), nil
}

func buildInsertSQL(name string, columns []string, rows [][]any) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = sqlIdent(c)
	}
	tuple := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(name))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}
	return b.String(), args
}

// toSQLiteValues rewrites time and bool values in place into their stored
// representation.
func toSQLiteValues(row []any, cols []storage.ColumnSpec) {
	for i, v := range row {
		switch x := v.(type) {
		case time.Time:
			if cols[i].Type.ID() == arrow.DATE32 {
				row[i] = x.UTC().Format(dateLayout)
			} else {
				row[i] = formatSQLiteTime(x)
			}
		case bool:
			if x {
				row[i] = int64(1)
			} else {
				row[i] = int64(0)
			}
		}
	}
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
