package migrations

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var files embed.FS

const (
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
)

// DB is the subset of *pgxpool.Pool the runner needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Migration is one versioned, reversible schema change.
type Migration struct {
	Name string
	Up   string
	Down string
}

type Migrator struct {
	db         DB
	migrations []Migration
}

// New returns a runner over the embedded Gator Tots migrations.
func New(db DB) (*Migrator, error) {
	return NewFromFS(db, files, "sql")
}

func NewFromFS(db DB, fsys fs.FS, root string) (*Migrator, error) {
	migrations, err := Load(fsys, root)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, migrations: migrations}, nil
}

// Embedded returns the migrations shipped with the binary.
func Embedded() ([]Migration, error) {
	return Load(files, "sql")
}

// Load reads every .sql file under root, ordered by file name.
func Load(fsys fs.FS, root string) ([]Migration, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		up := ExtractUp(string(content))
		if strings.TrimSpace(up) == "" {
			return nil, fmt.Errorf("migration %s has no up section", name)
		}
		migrations = append(migrations, Migration{
			Name: strings.TrimSuffix(name, ".sql"),
			Up:   up,
			Down: ExtractDown(string(content)),
		})
	}
	return migrations, nil
}

// ExtractUp returns the SQL in the -- +migrate Up section. Files without
// markers are treated as up-only.
func ExtractUp(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		downIdx := strings.Index(content, downMarker)
		if downIdx == -1 {
			return content
		}
		return content[:downIdx]
	}
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 || downIdx < upIdx {
		return content[upIdx+len(upMarker):]
	}
	return content[upIdx+len(upMarker) : downIdx]
}

// ExtractDown returns the SQL in the -- +migrate Down section.
func ExtractDown(content string) string {
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 {
		return ""
	}
	rest := content[downIdx+len(downMarker):]
	if upIdx := strings.Index(rest, upMarker); upIdx != -1 {
		rest = rest[:upIdx]
	}
	return rest
}

func (m *Migrator) Migrations() []Migration {
	return m.migrations
}

// Up applies every pending migration, each in its own transaction.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, mig := range m.migrations {
		if applied[mig.Name] {
			continue
		}
		err := m.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.Up); err != nil {
				return fmt.Errorf("exec migration %s: %w", mig.Name, err)
			}
			if _, err := tx.Exec(ctx,
				"INSERT INTO "+migrationTable+" (name) VALUES ($1)", mig.Name); err != nil {
				return fmt.Errorf("record migration %s: %w", mig.Name, err)
			}
			return nil
		})
		if err != nil {
			return done, err
		}
		log.Infof("migration %s applied", mig.Name)
		done = append(done, mig.Name)
	}
	return done, nil
}

// Down reverts the latest applied migrations, newest first. steps <= 0
// reverts all of them.
func (m *Migrator) Down(ctx context.Context, steps int) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var done []string
	for i := len(m.migrations) - 1; i >= 0; i-- {
		if steps > 0 && len(done) >= steps {
			break
		}
		mig := m.migrations[i]
		if !applied[mig.Name] {
			continue
		}
		if strings.TrimSpace(mig.Down) == "" {
			return done, fmt.Errorf("migration %s is not reversible", mig.Name)
		}
		err := m.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.Down); err != nil {
				return fmt.Errorf("revert migration %s: %w", mig.Name, err)
			}
			if _, err := tx.Exec(ctx,
				"DELETE FROM "+migrationTable+" WHERE name = $1", mig.Name); err != nil {
				return fmt.Errorf("unrecord migration %s: %w", mig.Name, err)
			}
			return nil
		})
		if err != nil {
			return done, err
		}
		log.Infof("migration %s reverted", mig.Name)
		done = append(done, mig.Name)
	}
	return done, nil
}

// Status reports which migrations are applied.
func (m *Migrator) Status(ctx context.Context) (map[string]bool, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	status := make(map[string]bool, len(m.migrations))
	for _, mig := range m.migrations {
		status[mig.Name] = applied[mig.Name]
	}
	return status, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.Exec(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.Query(ctx, "SELECT name FROM "+migrationTable)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return applied, nil
}

func (m *Migrator) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warnf("migration rollback: %v", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
