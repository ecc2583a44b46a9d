package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

type migration struct {
	version string
	up      []string
}

// Migrate applies every embedded migration not yet recorded in schema_migrations.
func Migrate(ctx context.Context, db *bun.DB) ([]string, error) {
	var applied []string
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		applied, err = applyMigrations(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

func applyMigrations(ctx context.Context, exec rawExecutor) ([]string, error) {
	migs, err := loadMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}

	if _, err := exec.NewRaw(`CREATE TABLE IF NOT EXISTS schema_migrations (
    version text PRIMARY KEY,
    applied_at timestamptz NOT NULL DEFAULT now()
)`).Exec(ctx); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var done []string
	if err := exec.NewRaw("SELECT version FROM schema_migrations").Scan(ctx, &done); err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	seen := make(map[string]struct{}, len(done))
	for _, v := range done {
		seen[v] = struct{}{}
	}

	applied := make([]string, 0, len(migs))
	for _, m := range migs {
		if _, ok := seen[m.version]; ok {
			continue
		}
		for _, stmt := range m.up {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return nil, fmt.Errorf("migration %s: %w", m.version, err)
			}
		}
		if _, err := exec.NewRaw("INSERT INTO schema_migrations (version) VALUES (?)", m.version).Exec(ctx); err != nil {
			return nil, fmt.Errorf("record migration %s: %w", m.version, err)
		}
		applied = append(applied, m.version)
	}
	return applied, nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		version := strings.TrimSuffix(name[strings.LastIndex(name, "/")+1:], ".sql")
		out = append(out, migration{version: version, up: splitSQLStatements(upSQL)})
	}
	return out, nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := strings.TrimLeft(sql[upIdx+len(upMarker):], "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

// splitSQLStatements splits on semicolons. Migrations must not embed them in literals.
func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
