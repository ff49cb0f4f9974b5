package postgres

import (
	"strings"
	"testing"

	"github.com/apache/arrow/go/v10/arrow"

	"graphetl/internal/storage"
)

func TestBuildCreateSQL(t *testing.T) {
	t.Parallel()

	cols := []storage.ColumnSpec{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "active", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "birthday", Type: arrow.FixedWidthTypes.Date32, Nullable: true},
		{Name: "creationdate", Type: arrow.FixedWidthTypes.Timestamp_ms, Nullable: true},
	}

	schemaSQL, createSQL, err := buildCreateSQL("graph", "Person", cols)
	if err != nil {
		t.Fatalf("buildCreateSQL: %v", err)
	}
	if schemaSQL != `CREATE SCHEMA IF NOT EXISTS "graph"` {
		t.Fatalf("schemaSQL = %q", schemaSQL)
	}
	want := `CREATE TABLE "graph"."Person" ("id" BIGINT NOT NULL, "name" TEXT, "score" DOUBLE PRECISION, ` +
		`"active" BOOLEAN, "birthday" DATE, "creationdate" TIMESTAMPTZ)`
	if createSQL != want {
		t.Fatalf("createSQL =\n%s\nwant\n%s", createSQL, want)
	}
}

func TestBuildCreateSQL_Errors(t *testing.T) {
	t.Parallel()

	if _, _, err := buildCreateSQL("public", "Empty", nil); err == nil {
		t.Fatalf("expected error for table without columns")
	}
	_, _, err := buildCreateSQL("public", "Bad", []storage.ColumnSpec{{Name: "b", Type: arrow.BinaryTypes.Binary}})
	if err == nil || !strings.Contains(err.Error(), `column "b"`) {
		t.Fatalf("expected unsupported column error, got %v", err)
	}
}

func TestQuotingEscapesIdentifiers(t *testing.T) {
	t.Parallel()

	if got := buildDropSQL("public", `person_"knows"_person`); got != `DROP TABLE IF EXISTS "public"."person_""knows""_person"` {
		t.Fatalf("buildDropSQL = %q", got)
	}
}
