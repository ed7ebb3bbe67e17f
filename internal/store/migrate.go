package store

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-spaces/db"
)

// Direction selects which half of each migration pair is applied.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// MigrationFiles lists the embedded migration names for a direction, in the
// order they must run.
func MigrationFiles(dir Direction) ([]string, error) {
	names, err := fs.Glob(db.Migrations, "migrations/*_*."+string(dir)+".sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	if dir == Down {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}
	return names, nil
}

// Migrate applies every embedded migration for the direction. The up scripts
// are idempotent so re-running is safe.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dir Direction) ([]string, error) {
	names, err := MigrationFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no %s migrations found", dir)
	}
	applied := make([]string, 0, len(names))
	for _, name := range names {
		payload, err := fs.ReadFile(db.Migrations, name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(payload)); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		applied = append(applied, strings.TrimPrefix(name, "migrations/"))
	}
	return applied, nil
}

// Migrate runs the embedded migrations against the store's pool.
func (s *Store) Migrate(ctx context.Context, dir Direction) error {
	applied, err := Migrate(ctx, s.pool, dir)
	if err != nil {
		return err
	}
	s.logger.Info().Strs("files", applied).Str("direction", string(dir)).Msg("store: migrations applied")
	return nil
}
