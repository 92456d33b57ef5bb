package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidfetch/internal/config"
)

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager
	m.IncInfo("server")
	m.IncDownload("started")
	if err := m.Write(); err != nil {
		t.Fatalf("nil Write: %v", err)
	}
	if New(config.Default()) != nil {
		t.Fatalf("disabled exporter should yield nil manager")
	}
}

func TestWriteTextfile(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.PrometheusTextfile.Enabled = true
	cfg.Metrics.PrometheusTextfile.Path = filepath.Join(t.TempDir(), "prom", "vidfetch.prom")
	m := New(cfg)
	m.IncInfo("")
	m.IncInfo("server")
	m.IncDownload("started")
	m.IncDownload("error")
	m.AddBytes(42)
	if err := m.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := os.ReadFile(cfg.Metrics.PrometheusTextfile.Path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	for _, want := range []string{
		"vidfetch_info_requests_total 2",
		`vidfetch_info_errors_total{kind="server"} 1`,
		`vidfetch_downloads_total{outcome="error"} 1`,
		`vidfetch_downloads_total{outcome="started"} 1`,
		"vidfetch_bytes_saved_total 42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, `outcome="error"`) > strings.Index(out, `outcome="started"`) {
		t.Errorf("labels not sorted:\n%s", out)
	}
}
