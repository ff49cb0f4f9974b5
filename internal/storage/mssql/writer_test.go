package mssql

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphetl/internal/storage"
)

type fakeExec struct {
	queries []string
	nargs   []int
	failOn  string
}

func (f *fakeExec) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	if f.failOn != "" && strings.HasPrefix(query, f.failOn) {
		return nil, errors.New("boom")
	}
	f.queries = append(f.queries, query)
	f.nargs = append(f.nargs, len(args))
	return nil, nil
}

func TestBuildCreateSQL(t *testing.T) {
	t.Parallel()

	got, err := buildCreateSQL("dbo", "Person", []storage.ColumnSpec{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "alive", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "seen", Type: arrow.FixedWidthTypes.Timestamp_ms, Nullable: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE [dbo].[Person] ([id] BIGINT NOT NULL, [alive] BIT NULL, [seen] DATETIME2(3) NULL)", got)
}

func TestBuildDropSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"IF OBJECT_ID(N'[dbo].[o''brien]', N'U') IS NOT NULL DROP TABLE [dbo].[o'brien]",
		buildDropSQL("dbo", "o'brien"))
	assert.Equal(t, "[a]]b]", mssqlIdent("a]b"))
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("dbo", "Tag", []string{"id", "name"}, [][]any{{int64(1), "a"}, {int64(2), nil}})
	assert.Equal(t, "INSERT INTO [dbo].[Tag] ([id], [name]) VALUES (@p1, @p2), (@p3, @p4)", q)
	assert.Len(t, args, 4)
}

func TestBatchRows(t *testing.T) {
	t.Parallel()

	assert.Equal(t, maxRows, batchRows(1))
	assert.Equal(t, 2000/3, batchRows(3))
	assert.Equal(t, 1, batchRows(5000))
	assert.Equal(t, 1, batchRows(0))
}

func TestReplaceTableBatches(t *testing.T) {
	t.Parallel()

	cols := []storage.ColumnSpec{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}
	rows := make([][]any, 2500)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}

	ex := &fakeExec{}
	require.NoError(t, replaceTable(context.Background(), ex, "dbo", "Tag", cols, rows))

	require.Len(t, ex.queries, 5)
	assert.True(t, strings.HasPrefix(ex.queries[0], "IF OBJECT_ID"))
	assert.True(t, strings.HasPrefix(ex.queries[1], "CREATE TABLE"))
	assert.Equal(t, []int{0, 0, 2000, 2000, 1000}, ex.nargs)
}

func TestReplaceTableStopsOnError(t *testing.T) {
	t.Parallel()

	cols := []storage.ColumnSpec{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}
	ex := &fakeExec{failOn: "CREATE"}
	err := replaceTable(context.Background(), ex, "dbo", "Tag", cols, [][]any{{int64(1)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mssql: create Tag")
	assert.Len(t, ex.queries, 1)
}
