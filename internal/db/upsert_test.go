package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL_DefaultUpdateCols(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "properties",
		Columns:      []string{"address", "data", "score"},
		ConflictKeys: []string{"address"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "properties" ("address", "data", "score") VALUES ($1, $2, $3) ON CONFLICT ("address") DO UPDATE SET "data" = EXCLUDED."data", "score" = EXCLUDED."score"`,
		sql)
}

func TestUpsertSQL_SchemaQualified(t *testing.T) {
	sql, err := UpsertSQL(UpsertConfig{
		Table:        "public.properties",
		Columns:      []string{"address"},
		ConflictKeys: []string{"address"},
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "public"."properties" ("address") VALUES ($1) ON CONFLICT ("address") DO NOTHING`, sql)
}

func TestUpsertSQL_Validation(t *testing.T) {
	_, err := UpsertSQL(UpsertConfig{Table: "t", ConflictKeys: []string{"a"}})
	assert.ErrorContains(t, err, "no columns")

	_, err = UpsertSQL(UpsertConfig{Table: "t", Columns: []string{"a"}})
	assert.ErrorContains(t, err, "no conflict keys")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"properties"`, sanitizeTable("properties"))
	assert.Equal(t, `"s"."t"`, sanitizeTable("s.t"))
}
