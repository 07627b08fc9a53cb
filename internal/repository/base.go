// Package repository implements the data access layer for the application.
// Every query is a hand-written SQL string with `?` placeholders; the Store
// rewrites them for the active backend.
package repository

import (
	"context"
	"database/sql"

	"handbook/internal/database"
	"handbook/internal/featureflags"
)

// unitOfWork runs a group of dependent statements. With transactional
// writes enabled the group shares one transaction; otherwise each statement
// commits on its own and a failure midway leaves earlier writes in place.
type unitOfWork struct {
	store database.Store
	flags *featureflags.Manager
}

func (u unitOfWork) run(ctx context.Context, subject string, fn func(tx database.Executor) error) error {
	if u.flags.Enabled(featureflags.TransactionalWrites, subject) {
		return u.store.WithTx(ctx, fn)
	}
	return fn(u.store)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
