package api

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"runtime"
	"time"

	"vidfetch/internal/config"
)

// newHTTPClient builds the client shared by both endpoints. A zero
// network.timeout_seconds leaves the client without an overall timeout, so a
// request waits for the server to answer.
func newHTTPClient(cfg *config.Config) *http.Client {
	client := baseClient(cfg)
	if timeout := time.Duration(cfg.Network.TimeoutSeconds) * time.Second; timeout > 0 {
		client.Timeout = timeout
	}
	return client
}

// NewMediaHTTPClient is the client for fetching redirect targets. It shares
// the dial, TLS and proxy settings of the API client but has no overall
// timeout, since network.timeout_seconds would cut off a long body.
func NewMediaHTTPClient(cfg *config.Config) *http.Client {
	return baseClient(cfg)
}

func baseClient(cfg *config.Config) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !cfg.Network.TLSVerify, //nolint:gosec // opt-in via config
		},
	}
	client := &http.Client{Transport: tr}
	// Keep the User-Agent and request id on redirects.
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("stopped after %d redirects", len(via))
		}
		prev := via[len(via)-1]
		for _, h := range []string{"User-Agent", requestIDHeader} {
			if v := prev.Header.Get(h); v != "" {
				req.Header.Set(h, v)
			}
		}
		return nil
	}
	return client
}

// UserAgent returns the configured User-Agent, or a default
// like "vidfetch/<version> (<goos>/<goarch>)" when not set.
func UserAgent(cfg *config.Config) string {
	if cfg != nil && cfg.Network.UserAgent != "" {
		return cfg.Network.UserAgent
	}
	return fmt.Sprintf("vidfetch/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

// Version is stamped by cmd/vidfetch at startup.
var Version = "dev"
