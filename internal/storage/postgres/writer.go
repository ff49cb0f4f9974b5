// Package postgres stores datasets as tables in a PostgreSQL schema.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"graphetl/internal/storage"
)

const defaultSchema = "public"

func init() {
	storage.Register("postgres", New)
}

// Writer replaces one table per dataset under a schema, loading rows with
// COPY.
type Writer struct {
	pool   *pgxpool.Pool
	schema string
	loc    string
}

func New(ctx context.Context, cfg storage.Config) (storage.Writer, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres: missing dsn")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	schema := cfg.Schema
	if schema == "" {
		schema = defaultSchema
	}
	return &Writer{pool: pool, schema: schema, loc: storage.RedactDSN(cfg.DSN)}, nil
}

func (w *Writer) Location() string { return w.loc + " schema=" + w.schema }

func (w *Writer) Close() { w.pool.Close() }

// WriteDataset recreates schema.name and copies rec into it in one
// transaction. Readers keep seeing the previous table until commit.
func (w *Writer) WriteDataset(ctx context.Context, name string, rec arrow.Record) (string, error) {
	if err := storage.ValidateName(name); err != nil {
		return "", err
	}
	cols := storage.ColumnsOf(rec.Schema())
	schemaSQL, createSQL, err := buildCreateSQL(w.schema, name, cols)
	if err != nil {
		return "", err
	}
	rows, err := storage.Rows(rec)
	if err != nil {
		return "", fmt.Errorf("postgres: %s: %w", name, err)
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		return "", fmt.Errorf("postgres: create schema %s: %w", w.schema, err)
	}
	if _, err := tx.Exec(ctx, buildDropSQL(w.schema, name)); err != nil {
		return "", fmt.Errorf("postgres: drop %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return "", fmt.Errorf("postgres: create %s: %w", name, err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{w.schema, name},
		storage.ColumnNames(cols),
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return "", fmt.Errorf("postgres: copy %s: %w", name, err)
	}
	if n != int64(len(rows)) {
		return "", fmt.Errorf("postgres: copy %s: wrote %d of %d rows", name, n, len(rows))
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return qualified(w.schema, name), nil
}

func pgIdent(id string) string {
	return pgx.Identifier{id}.Sanitize()
}

func qualified(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.INT64:
		return "BIGINT", nil
	case arrow.FLOAT64:
		return "DOUBLE PRECISION", nil
	case arrow.BOOL:
		return "BOOLEAN", nil
	case arrow.DATE32:
		return "DATE", nil
	case arrow.TIMESTAMP:
		return "TIMESTAMPTZ", nil
	case arrow.STRING:
		return "TEXT", nil
	}
	return "", fmt.Errorf("postgres: unsupported column type %s", dt)
}

func buildDropSQL(schema, name string) string {
	return "DROP TABLE IF EXISTS " + qualified(schema, name)
}

// buildCreateSQL returns the schema DDL and the table DDL for name.
func buildCreateSQL(schema, name string, cols []storage.ColumnSpec) (schemaSQL, createSQL string, err error) {
	if len(cols) == 0 {
		return "", "", fmt.Errorf("postgres: %s has no columns", name)
	}
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		typ, err := pgType(c.Type)
		if err != nil {
			return "", "", fmt.Errorf("column %q: %w", c.Name, err)
		}
		def := pgIdent(c.Name) + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	schemaSQL = "CREATE SCHEMA IF NOT EXISTS " + pgIdent(schema)
	createSQL = fmt.Sprintf("CREATE TABLE %s (%s)", qualified(schema, name), strings.Join(defs, ", "))
	return schemaSQL, createSQL, nil
}
