// Package migrate applies the embedded SQL migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/variantlab/variant/migrations"
)

// Migration is a single schema migration with up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// EnsureVersionTable creates the schema_migrations table if it doesn't exist.
func EnsureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// CurrentVersion returns the applied migration version and dirty state.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var version, dirty int
	err := db.QueryRowContext(ctx,
		`SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty == 1, nil
}

func setVersion(ctx context.Context, db *sql.DB, version int, dirty bool) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
	return err
}

var upPattern = regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)

// Load reads the embedded migration files sorted by version.
func Load() ([]Migration, error) {
	var result []Migration

	err := fs.WalkDir(migrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		matches := upPattern.FindStringSubmatch(filepath.Base(path))
		if matches == nil {
			return nil
		}

		version, _ := strconv.Atoi(matches[1])
		upSQL, err := fs.ReadFile(migrations.FS, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		// Down migration is optional.
		downSQL, _ := fs.ReadFile(migrations.FS, fmt.Sprintf("%03d_%s.down.sql", version, matches[2]))

		result = append(result, Migration{
			Version: version,
			Name:    matches[2],
			UpSQL:   string(upSQL),
			DownSQL: string(downSQL),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

// Apply executes one migration in the given direction, tracking the dirty
// flag so an interrupted run is detectable.
func Apply(ctx context.Context, db *sql.DB, m Migration, up bool) error {
	direction, sqlContent, target := "up", m.UpSQL, m.Version
	if !up {
		direction, sqlContent, target = "down", m.DownSQL, m.Version-1
	}

	if err := setVersion(ctx, db, m.Version, true); err != nil {
		return fmt.Errorf("set dirty flag: %w", err)
	}

	for _, stmt := range strings.Split(sqlContent, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d %s: %w", m.Version, direction, err)
		}
	}

	return setVersion(ctx, db, target, false)
}

// To migrates the database to the target version, up or down as needed.
func To(ctx context.Context, db *sql.DB, target int) error {
	if err := EnsureVersionTable(ctx, db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, dirty, err := CurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", current)
	}

	all, err := Load()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if target >= current {
		for _, m := range all {
			if m.Version <= current || m.Version > target {
				continue
			}
			if err := Apply(ctx, db, m, true); err != nil {
				return err
			}
		}
		return nil
	}

	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if m.Version > current || m.Version <= target {
			continue
		}
		if m.DownSQL == "" {
			return fmt.Errorf("no down migration for version %d", m.Version)
		}
		if err := Apply(ctx, db, m, false); err != nil {
			return err
		}
	}
	return nil
}

// RunAll applies every pending migration.
func RunAll(ctx context.Context, db *sql.DB) error {
	all, err := Load()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	latest := 0
	if len(all) > 0 {
		latest = all[len(all)-1].Version
	}
	return To(ctx, db, latest)
}
