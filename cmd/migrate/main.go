// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"handbook/internal/config"
	"handbook/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go [-strict] <up|status>")
}

func run() error {
	strict := flag.Bool("strict", false, "Fail on the first statement error instead of skipping it")
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		report, err := database.ApplySchema(ctx, store, database.SchemaOptions{Strict: *strict})
		if err != nil {
			return fmt.Errorf("schema apply failed: %w", err)
		}
		log.Printf("schema applied backend=%s applied=%d skipped=%d", store.Dialect(), report.Applied, report.Skipped)
		for _, w := range report.Warnings {
			log.Printf("warning: %s", w)
		}
	case "status":
		status, err := database.GetSchemaStatus(ctx, store)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("backend=%s present=%d missing=%d", status.Backend, len(status.Present), len(status.Missing))
		for _, table := range status.Missing {
			log.Printf("missing: %s", table)
		}
	default:
		return usage()
	}

	return nil
}
