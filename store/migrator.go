package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/studypace/studypace/internal/version"
)

// Migration System Overview:
//
// Schema version is tracked in the migration_history table.
//
// Migration Flow:
// 1. preMigrate: Check if DB is initialized. If not, apply LATEST.sql
// 2. Migrate (prod mode): Apply incremental migrations from current to target version
// 3. Dev/demo modes always start from LATEST.sql on an empty database
//
// Migration Files:
// - Location: store/migration/{driver}/{version}/NN__description.sql
// - Naming: NN is a zero-padded patch number, description is human-readable
// - Ordering: Files sorted lexicographically and applied in order
// - LATEST.sql: Full schema for new installations (faster than incremental migrations)

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	// For example, "1__create_table.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the name of the latest schema file.
	// This file is used to initialize fresh installations with the current schema.
	LatestSchemaFileName = "LATEST.sql"
)

// Migrate brings the database schema to the version this build expects.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	if s.profile.Mode != "prod" {
		return nil
	}

	currentSchemaVersion, err := s.GetCurrentSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	targetSchemaVersion := version.GetMinorVersion(s.profile.Version)

	if version.IsVersionGreaterThan(currentSchemaVersion, targetSchemaVersion) {
		return errors.Errorf("database schema %s is newer than this build %s; refusing to run",
			currentSchemaVersion, targetSchemaVersion)
	}
	if currentSchemaVersion == targetSchemaVersion {
		return nil
	}

	slog.Info("start to migrate schema",
		slog.String("currentSchemaVersion", currentSchemaVersion),
		slog.String("targetSchemaVersion", targetSchemaVersion))
	for _, minorVersion := range s.getSchemaVersionsAfter(currentSchemaVersion) {
		slog.Info("applying migration", slog.String("version", minorVersion))
		if err := s.applyMigrationForMinorVersion(ctx, minorVersion); err != nil {
			return errors.Wrapf(err, "failed to apply migration for version %s", minorVersion)
		}
	}
	if err := s.recordSchemaVersion(ctx, targetSchemaVersion); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	slog.Info("migration completed", slog.String("schemaVersion", targetSchemaVersion))
	return nil
}

// preMigrate initializes an empty database with the latest schema.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	buf, err := migrationFS.ReadFile(filepath.Join("migration", s.profile.Driver, LatestSchemaFileName))
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema for driver %s", s.profile.Driver)
	}

	if err := s.execute(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	return s.recordSchemaVersion(ctx, version.GetMinorVersion(s.profile.Version))
}

// getSchemaVersionsAfter lists embedded migration version directories newer
// than the given minor version, in ascending order.
func (s *Store) getSchemaVersionsAfter(minorVersion string) []string {
	entries, err := migrationFS.ReadDir(filepath.Join("migration", s.profile.Driver))
	if err != nil {
		return nil
	}
	versions := []string{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if version.IsVersionGreaterThan(entry.Name()+".0", minorVersion+".0") {
			versions = append(versions, entry.Name())
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return version.IsVersionGreaterThan(versions[j]+".0", versions[i]+".0")
	})
	return versions
}

// applyMigrationForMinorVersion applies every migration file of a version
// directory inside one transaction.
func (s *Store) applyMigrationForMinorVersion(ctx context.Context, minorVersion string) error {
	dir := filepath.Join("migration", s.profile.Driver, minorVersion)
	files := []string{}
	if err := fs.WalkDir(migrationFS, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), MigrateFileNameSplit) {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return errors.Wrapf(err, "failed to walk migration dir %s", dir)
	}
	sort.Strings(files)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin migration transaction")
	}
	defer tx.Rollback()

	for _, file := range files {
		buf, err := migrationFS.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file %s", file)
		}
		if _, err := tx.ExecContext(ctx, string(buf)); err != nil {
			return errors.Wrapf(err, "failed to execute migration file %s", file)
		}
	}
	return tx.Commit()
}

// GetCurrentSchemaVersion returns the highest schema version recorded in
// migration_history.
func (s *Store) GetCurrentSchemaVersion(ctx context.Context) (string, error) {
	rows, err := s.driver.GetDB().QueryContext(ctx, "SELECT version FROM migration_history")
	if err != nil {
		return "", errors.Wrap(err, "failed to query migration history")
	}
	defer rows.Close()

	current := "0.0"
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return "", errors.Wrap(err, "failed to scan migration history")
		}
		if version.IsVersionGreaterThan(v+".0", current+".0") {
			current = v
		}
	}
	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, "failed to iterate migration history")
	}
	return current, nil
}

func (s *Store) recordSchemaVersion(ctx context.Context, minorVersion string) error {
	var stmt string
	if s.profile.Driver == "postgres" {
		stmt = "INSERT INTO migration_history (version) VALUES ($1) ON CONFLICT (version) DO NOTHING"
	} else {
		stmt = "INSERT INTO migration_history (version) VALUES (?) ON CONFLICT (version) DO NOTHING"
	}
	if _, err := s.driver.GetDB().ExecContext(ctx, stmt, minorVersion); err != nil {
		return errors.Wrapf(err, "failed to record schema version %s", minorVersion)
	}
	return nil
}

// execute runs a multi-statement script inside one transaction.
func (s *Store) execute(ctx context.Context, script string) error {
	tx, err := s.driver.GetDB().BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return tx.Commit()
}
