package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `
-- header comment
CREATE TABLE a (id TEXT);

CREATE TABLE b (id TEXT);
-- trailing comment only
`
	stmts := SplitStatements(script)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Equal(t, "CREATE TABLE b (id TEXT)", stmts[1])
}

func TestApplySchema_IsIdempotent(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	first, err := ApplySchema(ctx, store, SchemaOptions{})
	require.NoError(t, err)
	assert.Empty(t, first.Warnings)
	assert.Zero(t, first.Skipped)

	second, err := ApplySchema(ctx, store, SchemaOptions{Strict: true})
	require.NoError(t, err)
	assert.Zero(t, second.Applied)
	assert.Equal(t, first.Applied, second.Skipped)

	status, err := GetSchemaStatus(ctx, store)
	require.NoError(t, err)
	assert.Empty(t, status.Missing)
	assert.ElementsMatch(t, Tables, status.Present)
}

func TestApplySchemaScript_Warnings(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	script := "CREATE TABLE ok (id TEXT); INSERT INTO nowhere VALUES (1); CREATE TABLE ok2 (id TEXT)"

	report, err := ApplySchemaScript(ctx, store, script, SchemaOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "no such table")

	_, err = ApplySchemaScript(ctx, store, "INSERT INTO nowhere VALUES (1)", SchemaOptions{Strict: true})
	assert.Error(t, err)
}

func TestSchemaScripts_Embedded(t *testing.T) {
	for _, d := range []Dialect{DialectSQLite, DialectPostgres} {
		script, err := SchemaScript(d)
		require.NoError(t, err)
		assert.Len(t, SplitStatements(script), len(Tables)+4)
	}

	_, err := SchemaScript(Dialect("oracle"))
	assert.Error(t, err)
}
