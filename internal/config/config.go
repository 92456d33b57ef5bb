package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML schema. Keys omitted from the file keep the values
// from Default().
type Config struct {
	Version  int          `yaml:"version"`
	Server   Server       `yaml:"server"`
	General  General      `yaml:"general"`
	Network  Network      `yaml:"network"`
	Download DownloadConf `yaml:"download"`
	Logging  Logging      `yaml:"logging"`
	Metrics  Metrics      `yaml:"metrics"`
	UI       UIOptions    `yaml:"ui"`
}

type Server struct {
	// BaseURL is the video service root; /get-video-info and /download hang off it.
	BaseURL string `yaml:"base_url"`
}

type General struct {
	DataRoot     string `yaml:"data_root"`     // history database, metrics default
	DownloadRoot string `yaml:"download_root"` // saved media
}

type Network struct {
	// TimeoutSeconds bounds a whole request. 0 waits until the server answers.
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	TLSVerify      bool   `yaml:"tls_verify"`
	UserAgent      string `yaml:"user_agent"`
}

type DownloadConf struct {
	// RedirectAction decides what happens to a {"url": ...} download answer:
	// open (hand it to the system browser) | fetch (stream it to download_root).
	RedirectAction string `yaml:"redirect_action"`
}

type Logging struct {
	Level  string  `yaml:"level"`  // debug|info|warn|error
	Format string  `yaml:"format"` // human|json
	File   LogFile `yaml:"file"`
}

type LogFile struct {
	Path string `yaml:"path"`
}

type Metrics struct {
	PrometheusTextfile PromTextfile `yaml:"prometheus_textfile"`
}

type PromTextfile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type UIOptions struct {
	// FeedbackMS is how long "Started!"/"Error!" stay on a button. 0 means 2000.
	FeedbackMS int `yaml:"feedback_ms"`
	// RefreshHz controls the history pane refresh frequency. If 0, defaults to 1.
	// Values above 10 are clamped to 10 to avoid excessive CPU usage.
	RefreshHz int `yaml:"refresh_hz"`
}

const (
	RedirectOpen  = "open"
	RedirectFetch = "fetch"
)

// DefaultFeedback is the fixed delay before a button reverts to its original label.
const DefaultFeedback = 2 * time.Second

// Default returns a usable configuration that talks to a local service.
func Default() *Config {
	return &Config{
		Version: 1,
		Server:  Server{BaseURL: "http://127.0.0.1:5000"},
		General: General{
			DataRoot:     "~/.local/share/vidfetch",
			DownloadRoot: "~/Downloads/vidfetch",
		},
		Network:  Network{TLSVerify: true},
		Download: DownloadConf{RedirectAction: RedirectOpen},
		Logging: Logging{
			Level:  "info",
			Format: "human",
			File:   LogFile{Path: "~/.local/share/vidfetch/vidfetch.log"},
		},
		UI: UIOptions{FeedbackMS: int(DefaultFeedback / time.Millisecond), RefreshHz: 1},
	}
}

// Load reads, parses, expands, and validates a YAML config file.
func Load(path string) (*Config, error) {
	c, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Read parses and expands a config file without validating it, so
// `config validate` can report every problem at once.
func Read(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	// Expand ${ENV} placeholders before unmarshalling
	b = []byte(os.ExpandEnv(string(b)))
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.expandPaths(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadOrDefault behaves like Load but falls back to Default() when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	c, err := Load(path)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		c = Default()
		if err := c.finish(); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, err
}

func (c *Config) finish() error {
	if err := c.expandPaths(); err != nil {
		return err
	}
	return c.Validate()
}

func (c *Config) expandPaths() error {
	var err error
	if c.General.DataRoot, err = expandTilde(c.General.DataRoot); err != nil {
		return err
	}
	if c.General.DownloadRoot, err = expandTilde(c.General.DownloadRoot); err != nil {
		return err
	}
	if c.Logging.File.Path, err = expandTilde(c.Logging.File.Path); err != nil {
		return err
	}
	if c.Metrics.PrometheusTextfile.Path, err = expandTilde(c.Metrics.PrometheusTextfile.Path); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if errs := c.ValidateDetailed(); len(errs) > 0 {
		return &errs[0]
	}
	return nil
}

// Feedback returns the button revert delay.
func (c *Config) Feedback() time.Duration {
	if c == nil || c.UI.FeedbackMS <= 0 {
		return DefaultFeedback
	}
	return time.Duration(c.UI.FeedbackMS) * time.Millisecond
}

// RefreshInterval converts ui.refresh_hz into a tick period.
func (c *Config) RefreshInterval() time.Duration {
	hz := 1
	if c != nil && c.UI.RefreshHz > 0 {
		hz = c.UI.RefreshHz
	}
	if hz > 10 {
		hz = 10
	}
	return time.Second / time.Duration(hz)
}

// Endpoint joins the service base URL with an endpoint path.
func (c *Config) Endpoint(path string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(c.Server.BaseURL))
	if err != nil {
		return "", fmt.Errorf("server.base_url: %w", err)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return base.String(), nil
}

func expandTilde(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p[0] != '~' {
		return p, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return h, nil
	}
	return filepath.Join(h, p[2:]), nil
}

// DefaultPath resolves --config, then VIDFETCH_CONFIG, then ~/.config/vidfetch/config.yml.
func DefaultPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if env := os.Getenv("VIDFETCH_CONFIG"); env != "" {
		return env
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, ".config", "vidfetch", "config.yml")
	}
	return "config.yml"
}
