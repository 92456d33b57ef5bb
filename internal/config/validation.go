package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a detailed config validation error
type ValidationError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Config validation error in '%s': %s", e.Field, e.Message)
}

// ValidateDetailed performs comprehensive validation with friendly error messages
func (c *Config) ValidateDetailed() []ValidationError {
	var errs []ValidationError

	if c.Version != 1 {
		errs = append(errs, ValidationError{
			Field:      "version",
			Value:      c.Version,
			Message:    fmt.Sprintf("Unsupported version: %d", c.Version),
			Suggestion: "Use version: 1",
		})
	}

	base := strings.TrimSpace(c.Server.BaseURL)
	if base == "" {
		errs = append(errs, ValidationError{
			Field:      "server.base_url",
			Message:    "Required field missing",
			Suggestion: "Point it at the video service:\n  base_url: http://127.0.0.1:5000",
		})
	} else if u, err := url.Parse(base); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:      "server.base_url",
			Value:      c.Server.BaseURL,
			Message:    "Must be an absolute http(s) URL",
			Suggestion: "Example: base_url: https://videos.example.com",
		})
	}

	if c.General.DataRoot == "" {
		errs = append(errs, ValidationError{
			Field:      "general.data_root",
			Message:    "Required field missing",
			Suggestion: "Set to a directory for vidfetch data:\n  data_root: ~/.local/share/vidfetch",
		})
	}

	if c.General.DownloadRoot == "" {
		errs = append(errs, ValidationError{
			Field:      "general.download_root",
			Message:    "Required field missing",
			Suggestion: "Set to a directory for downloads:\n  download_root: ~/Downloads/vidfetch",
		})
	}

	if c.Network.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:      "network.timeout_seconds",
			Value:      c.Network.TimeoutSeconds,
			Message:    "Must be >= 0",
			Suggestion: "Use 0 to wait for the server indefinitely",
		})
	}

	switch strings.ToLower(strings.TrimSpace(c.Download.RedirectAction)) {
	case "", RedirectOpen, RedirectFetch:
	default:
		errs = append(errs, ValidationError{
			Field:      "download.redirect_action",
			Value:      c.Download.RedirectAction,
			Message:    "Invalid redirect action",
			Suggestion: "Use one of: open, fetch",
		})
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:      "logging.level",
			Value:      c.Logging.Level,
			Message:    "Invalid log level",
			Suggestion: "Use one of: debug, info, warn, error",
		})
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "human", "json":
	default:
		errs = append(errs, ValidationError{
			Field:      "logging.format",
			Value:      c.Logging.Format,
			Message:    "Invalid log format",
			Suggestion: "Use one of: human, json",
		})
	}

	if c.Metrics.PrometheusTextfile.Enabled && strings.TrimSpace(c.Metrics.PrometheusTextfile.Path) == "" {
		errs = append(errs, ValidationError{
			Field:      "metrics.prometheus_textfile.path",
			Message:    "Required when the textfile exporter is enabled",
			Suggestion: "Example: path: /var/lib/node_exporter/textfile/vidfetch.prom",
		})
	}

	if c.UI.FeedbackMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.feedback_ms",
			Value:   c.UI.FeedbackMS,
			Message: "Must be >= 0",
		})
	}
	if c.UI.RefreshHz < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.refresh_hz",
			Value:   c.UI.RefreshHz,
			Message: "Must be >= 0",
		})
	}

	return errs
}

// FormatValidationErrors renders every issue with its suggestion for `config validate`.
func FormatValidationErrors(errs []ValidationError) string {
	var sb strings.Builder
	for i, e := range errs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("✗ %s: %s", e.Field, e.Message))
		if e.Value != nil {
			sb.WriteString(fmt.Sprintf(" (got %v)", e.Value))
		}
		if e.Suggestion != "" {
			sb.WriteString("\n  ")
			sb.WriteString(strings.ReplaceAll(e.Suggestion, "\n", "\n  "))
		}
	}
	return sb.String()
}
