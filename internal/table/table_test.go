package table

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v10/arrow"
	"github.com/apache/arrow/go/v10/arrow/array"
	"github.com/apache/arrow/go/v10/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphetl/internal/errors"
	"graphetl/internal/probe"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadInfersKinds(t *testing.T) {
	t.Parallel()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	p := writeCSV(t, t.TempDir(), "person_0_0.csv",
		"id|firstName|birthday|creationDate|score|active\n"+
			"933|Mahinda|1989-12-03|2010-02-14T15:32:10.447+0000|1.5|true\n"+
			"1129|Carmen||2010-01-17T11:05:35.000+0000|2|false\n")

	cols := []string{"id", "firstname", "birthday", "creationdate", "score", "active"}
	tbl, err := Load(context.Background(), []string{p}, cols, LoadOptions{Allocator: mem})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(2), tbl.NumRows())
	assert.Equal(t, cols, tbl.ColumnNames())
	assert.Equal(t, []probe.Kind{probe.Integer, probe.String, probe.Date, probe.Timestamp, probe.Float, probe.Boolean}, tbl.Kinds())

	id, ok := tbl.Column("id")
	require.True(t, ok)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Int64, id.DataType()))
	assert.Equal(t, []int64{933, 1129}, id.(*array.Int64).Int64Values())

	bday, _ := tbl.Column("birthday")
	assert.Equal(t, 1, bday.NullN())
	assert.Equal(t, "1989-12-03", dateTime(bday.(*array.Date32).Value(0)).Format("2006-01-02"))

	ts, _ := tbl.Column("creationdate")
	want := time.Date(2010, 2, 14, 15, 32, 10, 447e6, time.UTC)
	assert.Equal(t, arrow.Timestamp(want.UnixMilli()), ts.(*array.Timestamp).Value(0))
}

func TestLoadMultipleParts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	a := writeCSV(t, dir, "tag_0_0.csv", "id|name\n1|Bach\n")
	b := writeCSV(t, dir, "tag_1_0.csv", "id|name\n2|Mozart\n3|\n")

	tbl, err := Load(context.Background(), []string{a, b}, []string{"id", "name"}, LoadOptions{})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(3), tbl.NumRows())
	name, _ := tbl.Column("name")
	assert.Equal(t, "Mozart", name.(*array.String).Value(1))
	assert.True(t, name.IsNull(2))
}

func TestLoadEmptyTableIsStringTyped(t *testing.T) {
	t.Parallel()

	p := writeCSV(t, t.TempDir(), "empty.csv", "id|name\n")
	tbl, err := Load(context.Background(), []string{p}, []string{"id", "name"}, LoadOptions{})
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, int64(0), tbl.NumRows())
	assert.Equal(t, []probe.Kind{probe.String, probe.String}, tbl.Kinds())
}

func TestLoadMalformedRow(t *testing.T) {
	t.Parallel()

	p := writeCSV(t, t.TempDir(), "bad.csv", "id|name\n1|a\n2|b|extra\n")
	_, err := Load(context.Background(), []string{p}, []string{"id", "name"}, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedRow))
	assert.True(t, errors.IsDataIntegrity(err))
}

func TestLoadCustomNullsAndDelimiter(t *testing.T) {
	t.Parallel()

	p := writeCSV(t, t.TempDir(), "x.csv", "id,name\n1,\\N\n2,\n")
	tbl, err := Load(context.Background(), []string{p}, []string{"id", "name"}, LoadOptions{
		Delimiter:  ',',
		NullValues: []string{"\\N"},
	})
	require.NoError(t, err)
	defer tbl.Release()

	name, _ := tbl.Column("name")
	assert.True(t, name.IsNull(0))
	assert.False(t, name.IsNull(1))
	assert.Equal(t, "", name.(*array.String).Value(1))
}

func TestRequireNonNull(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	ok := writeCSV(t, dir, "ok.csv", "id|name\n1|a\n2|b\n")
	bad := writeCSV(t, dir, "bad.csv", "id|name\n1|a\n|b\n")

	tbl, err := Load(context.Background(), []string{ok}, []string{"id", "name"}, LoadOptions{})
	require.NoError(t, err)
	defer tbl.Release()
	assert.NoError(t, RequireNonNull(tbl, "id", "ok.csv:id"))

	err = RequireNonNull(tbl, "src", "ok.csv:src")
	assert.True(t, errors.Is(err, errors.ErrMissingIdentifier))

	tbl2, err := Load(context.Background(), []string{bad}, []string{"id", "name"}, LoadOptions{})
	require.NoError(t, err)
	defer tbl2.Release()

	err = RequireNonNull(tbl2, "id", "bad.csv:id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNullIdentifier))
	assert.Contains(t, err.Error(), "bad.csv:id")
}

func TestWithColumnLeavesReceiverUntouched(t *testing.T) {
	t.Parallel()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl, err := Build([]string{"src", "x"}, []probe.Kind{probe.String, probe.Integer},
		[][]string{{"1", "5"}, {"2", "6"}}, probe.NewNullSet(nil), mem)
	require.NoError(t, err)
	defer tbl.Release()

	cast, err := CastColumn(tbl, "src", arrow.PrimitiveTypes.Int64, mem)
	require.NoError(t, err)
	defer cast.Release()

	src, _ := tbl.Column("src")
	assert.Equal(t, arrow.STRING, src.DataType().ID())
	assert.Equal(t, probe.String, tbl.Kinds()[0])

	src2, _ := cast.Column("src")
	assert.Equal(t, arrow.INT64, src2.DataType().ID())
	assert.Equal(t, probe.Integer, cast.Kinds()[0])
	assert.Equal(t, []string{"src", "x"}, cast.ColumnNames())
}
