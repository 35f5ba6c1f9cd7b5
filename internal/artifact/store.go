// Package artifact stores the files produced by the apps and keeps a
// SQLite index of them, so downloads only ever resolve names this
// process created.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/snonux/toolbelt/internal"
	"codeberg.org/snonux/toolbelt/internal/apperr"
)

// Artifact is one indexed output file.
type Artifact struct {
	ID        int64
	App       string
	Name      string
	Path      string
	MIME      string
	Size      int64
	CreatedAt time.Time
}

// Store owns the output directory tree and its index.
type Store struct {
	root string
	db   *sql.DB
}

// OpenDB opens (or creates) a SQLite database at the given path, ensuring
// that the parent directory exists.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	return db, nil
}

// InitSchema creates the artifacts table.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			app TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT NOT NULL,
			mime TEXT NOT NULL,
			size INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE(app, name)
		);
		CREATE INDEX IF NOT EXISTS idx_artifacts_app ON artifacts(app, created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// Open creates a store rooted at root with the index at dbPath.
// An empty dbPath puts the index at <root>/artifacts.db.
func Open(root, dbPath string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if dbPath == "" {
		dbPath = filepath.Join(root, "artifacts.db")
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{root: root, db: db}, nil
}

// Close closes the index.
func (s *Store) Close() error {
	return s.db.Close()
}

// Root returns the output directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns (and creates) the directory for app.
func (s *Store) Dir(app string) (string, error) {
	dir := filepath.Join(s.root, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", app, err)
	}
	return dir, nil
}

// Path returns where a file named name for app lives. The name must
// already be a secure file name.
func (s *Store) Path(app, name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	dir, err := s.Dir(app)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Save writes r to <root>/<app>/<name> and indexes it.
func (s *Store) Save(ctx context.Context, app, name, mime string, r io.Reader) (Artifact, error) {
	path, err := s.Path(app, name)
	if err != nil {
		return Artifact{}, err
	}

	f, err := os.Create(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return Artifact{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to close %s: %w", name, err)
	}

	return s.Register(ctx, app, name, mime)
}

// Register indexes a file that was written directly to Path(app, name).
func (s *Store) Register(ctx context.Context, app, name, mime string) (Artifact, error) {
	path, err := s.Path(app, name)
	if err != nil {
		return Artifact{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (app, name, path, mime, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(app, name) DO UPDATE SET
			path = excluded.path, mime = excluded.mime,
			size = excluded.size, created_at = excluded.created_at`,
		app, name, path, mime, info.Size(), now.Unix())
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to index %s: %w", name, err)
	}
	id, _ := res.LastInsertId()

	return Artifact{
		ID:        id,
		App:       app,
		Name:      name,
		Path:      path,
		MIME:      mime,
		Size:      info.Size(),
		CreatedAt: time.Unix(now.Unix(), 0).UTC(),
	}, nil
}

// Lookup resolves an indexed artifact. Unknown names, and indexed names
// whose file has gone, are not found.
func (s *Store) Lookup(ctx context.Context, app, name string) (Artifact, error) {
	const op = "artifact.lookup"
	if err := checkName(name); err != nil {
		return Artifact{}, err
	}

	var a Artifact
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, app, name, path, mime, size, created_at
		FROM artifacts WHERE app = ? AND name = ?`, app, name).
		Scan(&a.ID, &a.App, &a.Name, &a.Path, &a.MIME, &a.Size, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, apperr.E(op, apperr.KindNotFound, fmt.Errorf("file not found: %s", name))
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to query artifact: %w", err)
	}
	a.CreatedAt = time.Unix(created, 0).UTC()

	if _, err := os.Stat(a.Path); err != nil {
		return Artifact{}, apperr.E(op, apperr.KindNotFound, fmt.Errorf("file not found: %s", name))
	}
	return a, nil
}

// List returns the artifacts of app, newest first.
func (s *Store) List(ctx context.Context, app string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, app, name, path, mime, size, created_at
		FROM artifacts WHERE app = ? ORDER BY created_at DESC, id DESC`, app)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var created int64
		if err := rows.Scan(&a.ID, &a.App, &a.Name, &a.Path, &a.MIME, &a.Size, &created); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// Forget drops all index rows of app; used after the directory is archived.
func (s *Store) Forget(ctx context.Context, app string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE app = ?`, app); err != nil {
		return fmt.Errorf("failed to forget %s artifacts: %w", app, err)
	}
	return nil
}

func checkName(name string) error {
	if name == "" || internal.SecureFilename(name) != name {
		return apperr.Invalid("artifact.name", "invalid file name: %q", name)
	}
	return nil
}
