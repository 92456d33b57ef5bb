package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/sqlite"
	"vidfetch/internal/config"
)

// Statuses stored for queries and downloads.
const (
	StatusPending = "pending"
	StatusOK      = "ok"
	StatusError   = "error"
)

type DB struct {
	SQL  *sql.DB
	Path string
}

func Open(cfg *config.Config) (*DB, error) {
	if cfg == nil { return nil, errors.New("nil config") }
	if cfg.General.DataRoot == "" { return nil, errors.New("general.data_root required") }
	if err := os.MkdirAll(cfg.General.DataRoot, 0o755); err != nil { return nil, err }
	path := filepath.Join(cfg.General.DataRoot, "history.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout=5000&_pragma=journal_mode(WAL)", path)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil { return nil, err }
	if err := initSchema(sqldb); err != nil { _ = sqldb.Close(); return nil, err }
	return &DB{SQL: sqldb, Path: path}, nil
}

func (db *DB) Close() error {
	if db == nil || db.SQL == nil { return nil }
	return db.SQL.Close()
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			title TEXT,
			duration TEXT,
			formats INTEGER DEFAULT 0,
			status TEXT NOT NULL,
			last_error TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL,
			format_id TEXT NOT NULL,
			label TEXT,
			action TEXT,
			target TEXT,
			bytes INTEGER DEFAULT 0,
			status TEXT NOT NULL,
			last_error TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS downloads_updated ON downloads(updated_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil { return err }
	}
	return nil
}

// QueryRow is one describe request and its outcome.
type QueryRow struct {
	ID        int64
	URL       string
	Title     string
	Duration  string
	Formats   int
	Status    string
	LastError string
	CreatedAt int64
}

// DownloadRow is one download trigger and its outcome.
type DownloadRow struct {
	ID        int64
	URL       string
	FormatID  string
	Label     string
	Action    string // saved | opened | fetched
	Target    string // file path or redirect URL
	Bytes     int64
	Status    string
	LastError string
	CreatedAt int64
	UpdatedAt int64
}

func (db *DB) RecordQuery(row QueryRow) error {
	if db == nil || db.SQL == nil { return errors.New("nil db") }
	_, err := db.SQL.Exec(`INSERT INTO queries(url, title, duration, formats, status, last_error, created_at) VALUES(?,?,?,?,?,?,?)`,
		row.URL, row.Title, row.Duration, row.Formats, row.Status, row.LastError, time.Now().Unix())
	return err
}

// StartDownload inserts a pending row and returns its id.
func (db *DB) StartDownload(url, formatID, label string) (int64, error) {
	if db == nil || db.SQL == nil { return 0, errors.New("nil db") }
	now := time.Now().Unix()
	res, err := db.SQL.Exec(`INSERT INTO downloads(url, format_id, label, status, created_at, updated_at) VALUES(?,?,?,?,?,?)`,
		url, formatID, label, StatusPending, now, now)
	if err != nil { return 0, err }
	return res.LastInsertId()
}

// FinishDownload stores the outcome of a started download.
func (db *DB) FinishDownload(id int64, status, action, target string, bytes int64, lastErr string) error {
	if db == nil || db.SQL == nil { return errors.New("nil db") }
	_, err := db.SQL.Exec(`UPDATE downloads SET status=?, action=?, target=?, bytes=?, last_error=?, updated_at=? WHERE id=?`,
		status, action, target, bytes, lastErr, time.Now().Unix(), id)
	return err
}

// ListQueries returns the most recent queries first. limit <= 0 means all.
func (db *DB) ListQueries(limit int) ([]QueryRow, error) {
	if db == nil || db.SQL == nil { return nil, errors.New("nil db") }
	rows, err := db.SQL.Query(`SELECT id, url, COALESCE(title, ''), COALESCE(duration, ''), COALESCE(formats, 0), status, COALESCE(last_error, ''), created_at
		FROM queries ORDER BY created_at DESC, id DESC LIMIT ?`, sqlLimit(limit))
	if err != nil { return nil, err }
	defer func() { _ = rows.Close() }()
	var out []QueryRow
	for rows.Next() {
		var r QueryRow
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Duration, &r.Formats, &r.Status, &r.LastError, &r.CreatedAt); err != nil { return nil, err }
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListDownloads returns the most recently updated downloads first. limit <= 0 means all.
func (db *DB) ListDownloads(limit int) ([]DownloadRow, error) {
	if db == nil || db.SQL == nil { return nil, errors.New("nil db") }
	rows, err := db.SQL.Query(`SELECT id, url, format_id,
    COALESCE(label, ''),
    COALESCE(action, ''),
    COALESCE(target, ''),
    COALESCE(bytes, 0),
    status,
    COALESCE(last_error, ''),
    created_at,
    updated_at
  FROM downloads
  ORDER BY updated_at DESC, id DESC LIMIT ?`, sqlLimit(limit))
	if err != nil { return nil, err }
	defer func() { _ = rows.Close() }()
	var out []DownloadRow
	for rows.Next() {
		var r DownloadRow
		if err := rows.Scan(&r.ID, &r.URL, &r.FormatID, &r.Label, &r.Action, &r.Target, &r.Bytes, &r.Status, &r.LastError, &r.CreatedAt, &r.UpdatedAt); err != nil { return nil, err }
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clear deletes all history.
func (db *DB) Clear() error {
	if db == nil || db.SQL == nil { return errors.New("nil db") }
	if _, err := db.SQL.Exec(`DELETE FROM queries`); err != nil { return err }
	_, err := db.SQL.Exec(`DELETE FROM downloads`)
	return err
}

func sqlLimit(n int) int {
	if n <= 0 { return -1 }
	return n
}
