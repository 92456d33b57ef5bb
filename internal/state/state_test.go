package state

import (
	"path/filepath"
	"testing"

	"vidfetch/internal/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	cfg := config.Default()
	cfg.General.DataRoot = filepath.Join(t.TempDir(), "data")
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDownloadLifecycle(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartDownload("https://youtu.be/abc123", "18", "360p (mp4)")
	if err != nil {
		t.Fatalf("StartDownload: %v", err)
	}
	rows, err := db.ListDownloads(0)
	if err != nil || len(rows) != 1 || rows[0].Status != StatusPending {
		t.Fatalf("pending row: %+v %v", rows, err)
	}
	if err := db.FinishDownload(id, StatusOK, "opened", "https://cdn.example/video.mp4", 0, ""); err != nil {
		t.Fatalf("FinishDownload: %v", err)
	}
	rows, _ = db.ListDownloads(10)
	r := rows[0]
	if r.Status != StatusOK || r.Action != "opened" || r.Target != "https://cdn.example/video.mp4" || r.FormatID != "18" {
		t.Fatalf("row: %+v", r)
	}
}

func TestQueriesNewestFirstWithLimit(t *testing.T) {
	db := openTestDB(t)
	for _, u := range []string{"a", "b", "c"} {
		if err := db.RecordQuery(QueryRow{URL: u, Status: StatusOK, Formats: 2}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.RecordQuery(QueryRow{URL: "d", Status: StatusError, LastError: "Invalid URL"}); err != nil {
		t.Fatal(err)
	}
	rows, err := db.ListQueries(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].URL != "d" || rows[0].LastError != "Invalid URL" || rows[1].URL != "c" {
		t.Fatalf("rows: %+v", rows)
	}
	if err := db.Clear(); err != nil {
		t.Fatal(err)
	}
	rows, _ = db.ListQueries(0)
	if len(rows) != 0 {
		t.Fatalf("clear left %d rows", len(rows))
	}
}
