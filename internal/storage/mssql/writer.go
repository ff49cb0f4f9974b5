// Package mssql stores datasets as tables in SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	_ "github.com/microsoft/go-mssqldb"

	"graphetl/internal/storage"
)

const (
	defaultSchema = "dbo"

	// SQL Server rejects more than 2100 parameters per request and more than
	// 1000 row constructors per VALUES list.
	maxParams = 2000
	maxRows   = 1000
)

func init() {
	storage.Register("mssql", New)
}

// execer is the subset of *sql.Tx used while loading, so statement
// generation can be tested without a server.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Writer replaces one table per dataset under a schema.
type Writer struct {
	db     *sql.DB
	schema string
	loc    string
}

func New(ctx context.Context, cfg storage.Config) (storage.Writer, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("mssql: missing dsn")
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		schema = defaultSchema
	}
	return &Writer{db: db, schema: schema, loc: storage.RedactDSN(cfg.DSN)}, nil
}

func (w *Writer) Location() string { return w.loc + " schema=" + w.schema }

func (w *Writer) Close() { _ = w.db.Close() }

func (w *Writer) WriteDataset(ctx context.Context, name string, rec arrow.Record) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	rows, err := storage.Rows(rec)
	if err != nil {
		return "", fmt.Errorf("mssql: %s: %w", name, err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceTable(ctx, tx, w.schema, name, storage.ColumnsOf(rec.Schema()), rows); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return mssqlTableIdent(w.schema, name), nil
}

// replaceTable drops schema.name if present, recreates it from cols and
// inserts rows in parameter-bounded batches.
func replaceTable(ctx context.Context, ex execer, schema, name string, cols []storage.ColumnSpec, rows [][]any) error {
	createSQL, err := buildCreateSQL(schema, name, cols)
	if err != nil {
		return err
	}
	if _, err := ex.ExecContext(ctx, buildDropSQL(schema, name)); err != nil {
		return fmt.Errorf("mssql: drop %s: %w", name, err)
	}
	if _, err := ex.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("mssql: create %s: %w", name, err)
	}

	columns := storage.ColumnNames(cols)
	batch := batchRows(len(columns))
	for start := 0; start < len(rows); start += batch {
		end := start + batch
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(schema, name, columns, rows[start:end])
		if _, err := ex.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("mssql: insert %s: %w", name, err)
		}
	}
	return nil
}

func batchRows(ncols int) int {
	if ncols <= 0 {
		return 1
	}
	n := maxParams / ncols
	if n > maxRows {
		n = maxRows
	}
	if n < 1 {
		n = 1
	}
	return n
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns [schema].[name].
func mssqlTableIdent(schema, name string) string {
	return mssqlIdent(schema) + "." + mssqlIdent(name)
}

func mssqlType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.INT64:
		return "BIGINT", nil
	case arrow.FLOAT64:
		return "FLOAT", nil
	case arrow.BOOL:
		return "BIT", nil
	case arrow.DATE32:
		return "DATE", nil
	case arrow.TIMESTAMP:
		return "DATETIME2(3)", nil
	case arrow.STRING:
		return "NVARCHAR(MAX)", nil
	}
	return "", fmt.Errorf("mssql: unsupported column type %s", dt)
}

func buildDropSQL(schema, name string) string {
	tbl := mssqlTableIdent(schema, name)
	lit := strings.ReplaceAll(tbl, "'", "''")
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s", lit, tbl)
}

func buildCreateSQL(schema, name string, cols []storage.ColumnSpec) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("mssql: %s has no columns", name)
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		typ, err := mssqlType(c.Type)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", c.Name, err)
		}
		null := " NULL"
		if !c.Nullable {
			null = " NOT NULL"
		}
		defs = append(defs, mssqlIdent(c.Name)+" "+typ+null)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", mssqlTableIdent(schema, name), strings.Join(defs, ", ")), nil
}

// buildInsertSQL numbers parameters @p1..@pN across all rows.
func buildInsertSQL(schema, name string, columns []string, rows [][]any) (string, []any) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = mssqlIdent(c)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(schema, name))
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			p++
		}
		b.WriteByte(')')
		args = append(args, row...)
	}
	return b.String(), args
}
