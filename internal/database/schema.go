package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"handbook/internal/config"
	"handbook/internal/middleware"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Tables lists every table the application schema creates.
var Tables = []string{"users", "posts", "post_likes", "events", "channels", "channel_members", "messages"}

// SchemaScript returns the embedded DDL for a dialect.
func SchemaScript(d Dialect) (string, error) {
	raw, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return "", fmt.Errorf("no schema for dialect %q: %w", d, err)
	}
	return string(raw), nil
}

// SchemaOptions controls how ApplySchemaScript reacts to statement errors.
type SchemaOptions struct {
	// Strict aborts on the first error that is not an "already exists" error.
	Strict bool
}

// SchemaReport summarizes one schema run.
type SchemaReport struct {
	Applied  int
	Skipped  int
	Warnings []string
}

// SplitStatements splits a script on the statement terminator. The split is
// naive: a terminator inside a string literal or body breaks the statement.
// Chunks holding only whitespace or comments are dropped.
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if isBlankStatement(p) {
			continue
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func isBlankStatement(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// ApplySchemaScript executes each statement of script. "already exists"
// errors are skipped so repeated starts are idempotent; other errors are
// logged as warnings and the run continues unless opts.Strict is set.
func ApplySchemaScript(ctx context.Context, exec Executor, script string, opts SchemaOptions) (SchemaReport, error) {
	var report SchemaReport

	for _, stmt := range SplitStatements(script) {
		_, err := exec.Run(ctx, stmt)
		switch {
		case err == nil:
			report.Applied++
		case IsAlreadyExists(err):
			report.Skipped++
		case opts.Strict:
			return report, fmt.Errorf("apply schema statement: %w", err)
		default:
			report.Warnings = append(report.Warnings, err.Error())
			middleware.Logger.WarnContext(ctx, "Schema initialization warning", slog.String("error", err.Error()))
		}
	}

	return report, nil
}

// ApplySchema runs the embedded script for the store's dialect.
func ApplySchema(ctx context.Context, store Store, opts SchemaOptions) (SchemaReport, error) {
	script, err := SchemaScript(store.Dialect())
	if err != nil {
		return SchemaReport{}, err
	}

	report, err := ApplySchemaScript(ctx, store, script, opts)
	if err != nil {
		return report, err
	}

	middleware.Logger.InfoContext(ctx, "Schema applied",
		slog.String("backend", string(store.Dialect())),
		slog.Int("applied", report.Applied),
		slog.Int("skipped", report.Skipped),
		slog.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

// ShouldAutoApply reports whether the server applies the schema at startup.
// The embedded backend always does; postgres only when DB_AUTO_SCHEMA is set.
func ShouldAutoApply(cfg *config.Config, d Dialect) bool {
	if d == DialectSQLite {
		return true
	}
	return cfg.DBAutoSchema
}

// SchemaStatus reports which application tables exist.
type SchemaStatus struct {
	Backend Dialect
	Present []string
	Missing []string
}

// GetSchemaStatus inspects the catalog of the connected backend.
func GetSchemaStatus(ctx context.Context, store Store) (*SchemaStatus, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table'"
	if store.Dialect() == DialectPostgres {
		query = "SELECT table_name AS name FROM information_schema.tables WHERE table_schema = current_schema()"
	}

	rows, err := store.All(ctx, query)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(rows))
	for _, r := range rows {
		existing[strings.ToLower(r.String("name"))] = true
	}

	status := &SchemaStatus{Backend: store.Dialect()}
	for _, t := range Tables {
		if existing[t] {
			status.Present = append(status.Present, t)
		} else {
			status.Missing = append(status.Missing, t)
		}
	}
	sort.Strings(status.Missing)
	return status, nil
}
