package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// builder renders SQL for the SQLite dialect.
var builder = entsql.Dialect(dialect.SQLite)

// Store holds the ent SQL driver and provides access to repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter

	// writeMu serializes read-then-write transactions within the process.
	writeMu sync.Mutex
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs auto-migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers, which is what read-then-write
	// sections (alert cooldowns, schedule updates) rely on. It also keeps
	// shared-cache in-memory databases free of table lock errors.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	ctx := context.Background()
	if err := migrate(ctx, drv); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(ctx, drv)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

func (s *Store) EventRepo() EventRepo         { return &eventRepo{s} }
func (s *Store) CourseRepo() CourseRepo       { return &courseRepo{s} }
func (s *Store) SkillRepo() SkillRepo         { return &skillRepo{s} }
func (s *Store) MasteryRepo() MasteryRepo     { return &masteryRepo{s} }
func (s *Store) AlertRepo() AlertRepo         { return &alertRepo{s} }
func (s *Store) ReviewRepo() ReviewRepo       { return &reviewRepo{s} }
func (s *Store) RouteRepo() RouteRepo         { return &routeRepo{s} }
func (s *Store) FormativeRepo() FormativeRepo { return &formativeRepo{s} }

// withTx runs fn inside a transaction. fn must only use tx: the pool has a
// single connection, so touching s.drv inside fn would block forever.
func (s *Store) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// querier is anything that renders to SQL: selectors, inserts, updates.
type querier interface {
	Query() (string, []any)
}

// scanAll runs a select and scans every row into dest (a pointer to a
// slice of structs with sql tags).
func scanAll(ctx context.Context, q dialect.ExecQuerier, sel querier, dest any) error {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	return entsql.ScanSlice(rows, dest)
}

// scanInt runs a select that yields a single integer (usually COUNT).
func scanInt(ctx context.Context, q dialect.ExecQuerier, sel querier) (int, error) {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	return entsql.ScanInt(rows)
}

// exec runs a statement and returns the number of affected rows.
func exec(ctx context.Context, q dialect.ExecQuerier, stmt querier) (int64, error) {
	query, args := stmt.Query()
	var res sql.Result
	if err := q.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. MASTERY_DB environment variable
// 2. $XDG_DATA_HOME/mastery/mastery.db
// 3. ~/.local/share/mastery/mastery.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("MASTERY_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "mastery", "mastery.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
