// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Store provides SQLite persistence for library metadata.
type Store struct {
	db *sql.DB
}

// NewStore initializes a new SQLite store and runs migrations.
// WAL mode and busy_timeout keep page renders from blocking on a scan commit.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS library_roots (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		last_scan_time TEXT,
		last_scan_status TEXT NOT NULL DEFAULT 'never' CHECK(last_scan_status IN ('never', 'running', 'ok', 'degraded', 'failed')),
		last_error TEXT NOT NULL DEFAULT '',
		total_items INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS library_items (
		root_id TEXT NOT NULL,
		rel_path TEXT NOT NULL,
		name TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		mod_time TEXT NOT NULL,
		scan_time TEXT NOT NULL,
		PRIMARY KEY (root_id, rel_path)
	);

	CREATE INDEX IF NOT EXISTS idx_library_items_root ON library_items(root_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertRoot inserts a root or refreshes its path.
func (s *Store) UpsertRoot(ctx context.Context, id, path string) error {
	query := `
	INSERT INTO library_roots (id, path, last_scan_status)
	VALUES (?, ?, 'never')
	ON CONFLICT(id) DO UPDATE SET path = excluded.path
	`
	_, err := s.db.ExecContext(ctx, query, id, path)
	return err
}

// DeleteRootsExcept removes every root (and its items) whose ID is not in keep.
func (s *Store) DeleteRootsExcept(ctx context.Context, keep []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM library_roots`)
	if err != nil {
		return nil, err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if _, ok := keepSet[id]; !ok {
			stale = append(stale, id)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_items WHERE root_id = ?`, id); err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM library_roots WHERE id = ?`, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return stale, nil
}

// ResetRunning marks roots left in "running" by an interrupted process as
// never scanned.
func (s *Store) ResetRunning(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE library_roots SET last_scan_status = 'never' WHERE last_scan_status = 'running'`)
	return err
}

const rootColumns = `id, path, last_scan_time, last_scan_status, last_error, total_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoot(row rowScanner) (Root, error) {
	var r Root
	var lastScan sql.NullString
	if err := row.Scan(&r.ID, &r.Path, &lastScan, &r.LastScanStatus, &r.LastError, &r.TotalItems); err != nil {
		return Root{}, err
	}
	r.Name = filepath.Base(r.Path)
	if lastScan.Valid {
		if t, err := time.Parse(time.RFC3339, lastScan.String); err == nil {
			r.LastScanTime = &t
		}
	}
	return r, nil
}

// GetRoots retrieves all library roots ordered by ID.
func (s *Store) GetRoots(ctx context.Context) ([]Root, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rootColumns+` FROM library_roots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var roots []Root
	for rows.Next() {
		r, err := scanRoot(rows)
		if err != nil {
			return nil, err
		}
		roots = append(roots, r)
	}
	return roots, rows.Err()
}

// GetRoot retrieves a single library root by ID.
func (s *Store) GetRoot(ctx context.Context, id string) (*Root, error) {
	r, err := scanRoot(s.db.QueryRowContext(ctx, `SELECT `+rootColumns+` FROM library_roots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRootScanStatus updates the scan metadata for a root.
func (s *Store) UpdateRootScanStatus(ctx context.Context, id string, status RootStatus, scanTime time.Time, totalItems int, lastError string) error {
	query := `
	UPDATE library_roots
	SET last_scan_status = ?,
	    last_scan_time = ?,
	    last_error = ?,
	    total_items = ?
	WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query, status.String(), scanTime.UTC().Format(time.RFC3339), lastError, totalItems, id)
	return err
}

// MarkRunning flips a root to running without touching its last result.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE library_roots SET last_scan_status = 'running' WHERE id = ?`, id)
	return err
}

// ReplaceItems swaps the full item set of rootID in one transaction.
// Files gone from disk disappear from the index.
func (s *Store) ReplaceItems(ctx context.Context, rootID string, items []Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM library_items WHERE root_id = ?`, rootID); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO library_items (root_id, rel_path, name, size_bytes, mod_time, scan_time)
	VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx,
			rootID,
			item.RelPath,
			item.Name,
			item.SizeBytes,
			item.ModTime.UTC().Format(time.RFC3339),
			item.ScanTime.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert %s: %w", item.RelPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetItems retrieves paginated library items for a root ordered by path.
func (s *Store) GetItems(ctx context.Context, rootID string, limit, offset int) ([]Item, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM library_items WHERE root_id = ?`, rootID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
	SELECT root_id, rel_path, name, size_bytes, mod_time, scan_time
	FROM library_items
	WHERE root_id = ?
	ORDER BY rel_path
	LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, rootID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		var modTime, scanTime string
		if err := rows.Scan(&item.RootID, &item.RelPath, &item.Name, &item.SizeBytes, &modTime, &scanTime); err != nil {
			return nil, 0, err
		}
		item.ModTime, _ = time.Parse(time.RFC3339, modTime)
		item.ScanTime, _ = time.Parse(time.RFC3339, scanTime)
		items = append(items, item)
	}
	return items, total, rows.Err()
}
