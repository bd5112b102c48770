// Package symbols persists resolved snapshots of a session in sqlite. Every save is a run
// with its own id; lookups read the newest run of the project.
package symbols

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lazyresolve/internal/core/errors"
)

const sqliteDriverName = "sqlite"

// Record is one resolved descriptor of a run.
type Record struct {
	FqName     string
	Name       string
	Kind       string
	Container  string
	File       string
	Line       int
	Rendered   string
	Supertypes []string
}

type Run struct {
	ID        string
	Project   string
	CreatedAt time.Time
	Records   int
}

type Store struct {
	db         *sql.DB
	projectKey string
	lookupStmt *sql.Stmt

	cacheMu     sync.RWMutex
	lookupCache map[string][]Record
}

// Open opens or creates the database at path. Several projects may share one file; every
// row is keyed by projectKey.
func Open(path, projectKey string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "symbol store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("symbol store path %q is a directory, expected file", cleanPath))
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("create symbol store directory %q", dir))
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("open sqlite symbol store %q", cleanPath))
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("ping sqlite symbol store %q", cleanPath))
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	key := strings.TrimSpace(projectKey)
	if key == "" {
		key = "default"
	}

	lookupStmt, err := db.Prepare(`SELECT
  s.fq_name,
  s.name,
  s.kind,
  s.container,
  s.file_path,
  s.line_number,
  s.rendered,
  s.supertypes
FROM symbols s
WHERE s.run_id = (SELECT id FROM runs WHERE project_key = ? ORDER BY seq DESC LIMIT 1)
  AND s.fq_name = ?
ORDER BY s.file_path, s.line_number, s.kind`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "prepare lookup stmt")
	}

	return &Store{
		db:          db,
		projectKey:  key,
		lookupStmt:  lookupStmt,
		lookupCache: make(map[string][]Record),
	}, nil
}

func (s *Store) clearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.lookupCache = make(map[string][]Record)
}

// SaveSnapshot writes records as a new run and returns it.
func (s *Store) SaveSnapshot(ctx context.Context, records []Record) (Run, error) {
	if s == nil || s.db == nil {
		return Run{}, errors.New(errors.CodeInternal, "store not initialized")
	}
	run := Run{ID: uuid.NewString(), Project: s.projectKey, CreatedAt: time.Now().UTC(), Records: len(records)}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, errors.Wrap(err, errors.CodeInternal, "begin snapshot tx")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, project_key, created_at, records) VALUES (?, ?, ?, ?)`,
		run.ID, run.Project, run.CreatedAt.Format(time.RFC3339Nano), run.Records); err != nil {
		_ = tx.Rollback()
		return Run{}, errors.Wrap(err, errors.CodeInternal, "insert run")
	}
	if err := insertRecords(ctx, tx, run.ID, records); err != nil {
		_ = tx.Rollback()
		return Run{}, err
	}
	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, errors.CodeInternal, "commit snapshot tx")
	}
	s.clearCache()
	return run, nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, runID string, records []Record) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO symbols
  (run_id, fq_name, name, kind, container, file_path, line_number, rendered, supertypes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "prepare symbol insert")
	}
	defer stmt.Close()

	for _, r := range records {
		supers, err := json.Marshal(r.Supertypes)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal, "marshal supertypes")
		}
		if _, err := stmt.ExecContext(ctx, runID, r.FqName, r.Name, r.Kind, r.Container, r.File, r.Line, r.Rendered, string(supers)); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "insert symbol"), errors.CtxSymbol, r.FqName)
		}
	}
	return nil
}

// Lookup returns the records named fq in the newest run. Results are cached until the
// next save or prune.
func (s *Store) Lookup(fq string) []Record {
	if s == nil || s.db == nil || s.lookupStmt == nil {
		return nil
	}
	key := strings.TrimSpace(fq)
	if key == "" {
		return nil
	}

	s.cacheMu.RLock()
	if res, ok := s.lookupCache[key]; ok {
		s.cacheMu.RUnlock()
		return res
	}
	s.cacheMu.RUnlock()

	res := s.lookupRows(s.projectKey, key)

	s.cacheMu.Lock()
	s.lookupCache[key] = res
	s.cacheMu.Unlock()
	return res
}

func (s *Store) lookupRows(args ...any) []Record {
	rows, err := s.lookupStmt.Query(args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec    Record
			supers string
		)
		if err := rows.Scan(&rec.FqName, &rec.Name, &rec.Kind, &rec.Container, &rec.File, &rec.Line, &rec.Rendered, &supers); err != nil {
			continue
		}
		if supers != "" && supers != "null" {
			_ = json.Unmarshal([]byte(supers), &rec.Supertypes)
		}
		out = append(out, rec)
	}
	return out
}

// Runs lists the runs of the project, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, project_key, created_at, records FROM runs WHERE project_key = ? ORDER BY seq DESC`, s.projectKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run     Run
			created string
		)
		if err := rows.Scan(&run.ID, &run.Project, &created, &run.Records); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan run")
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, run)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep runs of the project and deletes the rest with their symbols.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "begin prune tx")
	}
	stale := `SELECT id FROM runs WHERE project_key = ? ORDER BY seq DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE run_id IN (`+stale+`)`, s.projectKey, keep); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, errors.CodeInternal, "delete stale symbols")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, s.projectKey, keep); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, errors.CodeInternal, "delete stale runs")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "commit prune tx")
	}
	s.clearCache()
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.lookupStmt != nil {
		_ = s.lookupStmt.Close()
	}
	return s.db.Close()
}

// migrate creates the schema. user_version tracks the layout.
func migrate(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version >= 1 {
		return nil
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  project_key TEXT NOT NULL,
  created_at TEXT NOT NULL,
  records INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_key, seq);

CREATE TABLE IF NOT EXISTS symbols (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  fq_name TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  container TEXT NOT NULL DEFAULT '',
  file_path TEXT NOT NULL DEFAULT '',
  line_number INTEGER NOT NULL DEFAULT 0,
  rendered TEXT NOT NULL DEFAULT '',
  supertypes TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_symbols_run_fq ON symbols(run_id, fq_name);

PRAGMA user_version = 1;
`)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create v1 schema")
	}
	return nil
}
