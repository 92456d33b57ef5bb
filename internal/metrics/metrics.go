package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"vidfetch/internal/config"
)

// Manager accumulates client counters and writes them as a Prometheus
// textfile. A nil *Manager is valid and records nothing.
type Manager struct {
	path string
	mu   sync.Mutex
	// counters
	infoRequests     int64
	infoErrors       map[string]int64 // by error kind
	downloads        map[string]int64 // by outcome: started | error
	bytesSaved       int64
	lastDownloadSec  float64
}

func New(cfg *config.Config) *Manager {
	if cfg == nil || !cfg.Metrics.PrometheusTextfile.Enabled || cfg.Metrics.PrometheusTextfile.Path == "" {
		return nil
	}
	p := cfg.Metrics.PrometheusTextfile.Path
	_ = os.MkdirAll(filepath.Dir(p), 0o755)
	return &Manager{path: p, infoErrors: map[string]int64{}, downloads: map[string]int64{}}
}

func (m *Manager) IncInfo(errKind string) {
	if m == nil { return }
	m.mu.Lock(); defer m.mu.Unlock()
	m.infoRequests++
	if errKind != "" { m.infoErrors[errKind]++ }
}

func (m *Manager) IncDownload(outcome string) {
	if m == nil { return }
	m.mu.Lock(); m.downloads[outcome]++; m.mu.Unlock()
}

func (m *Manager) AddBytes(n int64) {
	if m == nil { return }
	m.mu.Lock(); m.bytesSaved += n; m.mu.Unlock()
}

func (m *Manager) ObserveDownloadSeconds(sec float64) {
	if m == nil { return }
	m.mu.Lock(); m.lastDownloadSec = sec; m.mu.Unlock()
}

func (m *Manager) Write() error {
	if m == nil { return nil }
	m.mu.Lock(); defer m.mu.Unlock()
	f, err := os.CreateTemp(filepath.Dir(m.path), ".metrics.tmp.*")
	if err != nil { return err }
	defer os.Remove(f.Name())
	fmt.Fprintf(f, "# HELP vidfetch_info_requests_total Video info requests issued.\n")
	fmt.Fprintf(f, "# TYPE vidfetch_info_requests_total counter\n")
	fmt.Fprintf(f, "vidfetch_info_requests_total %d\n", m.infoRequests)

	fmt.Fprintf(f, "# HELP vidfetch_info_errors_total Failed video info requests by kind.\n")
	fmt.Fprintf(f, "# TYPE vidfetch_info_errors_total counter\n")
	for _, k := range sortedKeys(m.infoErrors) {
		fmt.Fprintf(f, "vidfetch_info_errors_total{kind=%q} %d\n", k, m.infoErrors[k])
	}

	fmt.Fprintf(f, "# HELP vidfetch_downloads_total Download triggers by outcome.\n")
	fmt.Fprintf(f, "# TYPE vidfetch_downloads_total counter\n")
	for _, k := range sortedKeys(m.downloads) {
		fmt.Fprintf(f, "vidfetch_downloads_total{outcome=%q} %d\n", k, m.downloads[k])
	}

	fmt.Fprintf(f, "# HELP vidfetch_bytes_saved_total Bytes written to download_root.\n")
	fmt.Fprintf(f, "# TYPE vidfetch_bytes_saved_total counter\n")
	fmt.Fprintf(f, "vidfetch_bytes_saved_total %d\n", m.bytesSaved)

	fmt.Fprintf(f, "# HELP vidfetch_last_download_seconds Duration of the last download trigger in seconds.\n")
	fmt.Fprintf(f, "# TYPE vidfetch_last_download_seconds gauge\n")
	fmt.Fprintf(f, "vidfetch_last_download_seconds %.6f\n", m.lastDownloadSec)

	fmt.Fprintf(f, "# HELP vidfetch_metrics_timestamp_seconds UNIX timestamp when this file was written.\n")
	fmt.Fprintf(f, "# TYPE vidfetch_metrics_timestamp_seconds gauge\n")
	fmt.Fprintf(f, "vidfetch_metrics_timestamp_seconds %d\n", time.Now().Unix())

	if err := f.Close(); err != nil { return err }
	return os.Rename(f.Name(), m.path)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
