package provision

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Registry records which environments this tool has provisioned. It is what
// makes build idempotent: a project whose lock hash matches the recorded one
// is skipped without touching poetry.
type Registry struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Record is one provisioned environment.
type Record struct {
	ProjectPath string
	ProjectName string
	EnvPath     string
	LockHash    string
	KernelName  string // empty when provisioned with --no-kernel
	UpdatedAt   time.Time
}

// OpenRegistry creates or opens the environment registry under stateDir.
func OpenRegistry(stateDir string) (*Registry, error) {
	dbPath := filepath.Join(stateDir, "state.db")

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open registry database: %w", err)
	}

	r := &Registry{db: db, dbPath: dbPath}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry schema: %w", err)
	}
	return r, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Registry) Path() string {
	return r.dbPath
}

func (r *Registry) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS environments (
		project_path TEXT PRIMARY KEY,
		project_name TEXT NOT NULL,
		env_path TEXT NOT NULL,
		lock_hash TEXT NOT NULL,
		kernel_name TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_environments_name ON environments(project_name);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Get returns the record for a project path, or nil when none exists.
func (r *Registry) Get(projectPath string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(
		`SELECT project_path, project_name, env_path, lock_hash, kernel_name, updated_at
		 FROM environments WHERE project_path = ?`, projectPath)

	var rec Record
	err := row.Scan(&rec.ProjectPath, &rec.ProjectName, &rec.EnvPath,
		&rec.LockHash, &rec.KernelName, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query environment record: %w", err)
	}
	return &rec, nil
}

// Put inserts or replaces the record for a project path.
func (r *Registry) Put(rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(
		`INSERT INTO environments (project_path, project_name, env_path, lock_hash, kernel_name, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_path) DO UPDATE SET
			project_name = excluded.project_name,
			env_path = excluded.env_path,
			lock_hash = excluded.lock_hash,
			kernel_name = excluded.kernel_name,
			updated_at = excluded.updated_at`,
		rec.ProjectPath, rec.ProjectName, rec.EnvPath, rec.LockHash, rec.KernelName, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store environment record: %w", err)
	}
	return nil
}

// Delete removes the record for a project path. Missing rows are not an error.
func (r *Registry) Delete(projectPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec(`DELETE FROM environments WHERE project_path = ?`, projectPath); err != nil {
		return fmt.Errorf("delete environment record: %w", err)
	}
	return nil
}

// List returns all records, newest first.
func (r *Registry) List() ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(
		`SELECT project_path, project_name, env_path, lock_hash, kernel_name, updated_at
		 FROM environments ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list environment records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ProjectPath, &rec.ProjectName, &rec.EnvPath,
			&rec.LockHash, &rec.KernelName, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan environment record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
