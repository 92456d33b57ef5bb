package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"vidfetch/internal/config"
)

// MockResponse represents a canned HTTP response
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// Call is one request the fake backend received.
type Call struct {
	Path      string
	Body      map[string]string
	RequestID string
	UserAgent string
}

// Backend is a fake video service exposing POST /get-video-info and POST /download.
type Backend struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]MockResponse
	calls     []Call
}

// NewBackend starts the fake service and closes it when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{responses: make(map[string]MockResponse)}
	r := mux.NewRouter()
	r.HandleFunc("/get-video-info", b.serve).Methods(http.MethodPost)
	r.HandleFunc("/download", b.serve).Methods(http.MethodPost)
	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	body := map[string]string{}
	_ = json.Unmarshal(raw, &body)

	b.mu.Lock()
	b.calls = append(b.calls, Call{
		Path:      r.URL.Path,
		Body:      body,
		RequestID: r.Header.Get("X-Request-ID"),
		UserAgent: r.Header.Get("User-Agent"),
	})
	resp, ok := b.responses[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintf(w, "No mock response configured for %s", r.URL.Path)
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = fmt.Fprint(w, resp.Body)
}

// AddResponse adds a canned response for a specific path
func (b *Backend) AddResponse(path string, response MockResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[path] = response
}

// AddJSONResponse adds a JSON response for a specific path
func (b *Backend) AddJSONResponse(path string, statusCode int, body string) {
	b.AddResponse(path, MockResponse{
		StatusCode: statusCode,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	})
}

// AddFileResponse serves a binary attachment for a specific path
func (b *Backend) AddFileResponse(path, filename, contentType, payload string) {
	b.AddResponse(path, MockResponse{
		StatusCode: http.StatusOK,
		Body:       payload,
		Headers: map[string]string{
			"Content-Type":        contentType,
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
		},
	})
}

// Calls returns a copy of every request received so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallsTo counts requests to one path.
func (b *Backend) CallsTo(path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Path == path {
			n++
		}
	}
	return n
}

// Config returns a validated config pointing at baseURL with all roots under a temp dir.
func Config(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	tmp := t.TempDir()
	c := config.Default()
	c.Server.BaseURL = baseURL
	c.General.DataRoot = filepath.Join(tmp, "data")
	c.General.DownloadRoot = filepath.Join(tmp, "dl")
	c.Logging.File.Path = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	return c
}

// CreateTestFile creates a test file with given content
func CreateTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	return path
}

// ListFiles returns the base names of the regular files in dir (empty if missing).
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir: %v", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}
