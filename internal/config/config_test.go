package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	tmp := t.TempDir()
	p := writeConfig(t,
		"version: 1",
		"server:",
		"  base_url: https://videos.example.com/api/",
		"general:",
		"  data_root: \""+tmp+"/data\"",
		"  download_root: \""+tmp+"/dl\"",
	)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !c.Network.TLSVerify {
		t.Fatalf("tls_verify should default to true")
	}
	if c.Download.RedirectAction != RedirectOpen {
		t.Fatalf("redirect_action default: %q", c.Download.RedirectAction)
	}
	if c.Feedback() != 2*time.Second {
		t.Fatalf("feedback: %v", c.Feedback())
	}
	got, err := c.Endpoint("/get-video-info")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://videos.example.com/api/get-video-info" {
		t.Fatalf("endpoint: %s", got)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("VIDFETCH_TEST_BASE", "http://10.0.0.5:8080")
	tmp := t.TempDir()
	p := writeConfig(t,
		"version: 1",
		"server:",
		"  base_url: ${VIDFETCH_TEST_BASE}",
		"general:",
		"  data_root: \""+tmp+"\"",
		"  download_root: \""+tmp+"\"",
	)
	c, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.BaseURL != "http://10.0.0.5:8080" {
		t.Fatalf("base_url: %s", c.Server.BaseURL)
	}
}

func TestValidateDetailed(t *testing.T) {
	c := Default()
	c.Server.BaseURL = "ftp://nope"
	c.Download.RedirectAction = "print"
	c.Network.TimeoutSeconds = -1
	errs := c.ValidateDetailed()
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"server.base_url", "download.redirect_action", "network.timeout_seconds"} {
		if !fields[want] {
			t.Errorf("expected validation error for %s; got %v", want, errs)
		}
	}
	if c.Validate() == nil {
		t.Fatalf("Validate should fail")
	}
	if out := FormatValidationErrors(errs); !strings.Contains(out, "Use one of: open, fetch") {
		t.Fatalf("formatted output missing suggestion: %s", out)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	c, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if c.Server.BaseURL == "" || strings.HasPrefix(c.General.DataRoot, "~") {
		t.Fatalf("defaults not expanded: %+v", c.General)
	}
}

func TestRefreshIntervalClamp(t *testing.T) {
	c := Default()
	c.UI.RefreshHz = 50
	if c.RefreshInterval() != 100*time.Millisecond {
		t.Fatalf("clamp: %v", c.RefreshInterval())
	}
}
