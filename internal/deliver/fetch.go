package deliver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidfetch/internal/lockfile"
	"vidfetch/internal/logging"
	"vidfetch/internal/system"
)

// Fetcher streams a redirect target to disk. It resumes from an existing
// .part file when the server honours Range, and writes a .sha256 sidecar.
type Fetcher struct {
	client *http.Client
	log    *logging.Logger
	ua     string

	// Progress, if set, is called with bytes on disk and the expected total (-1 if unknown).
	Progress func(have, total int64)
}

func NewFetcher(client *http.Client, log *logging.Logger, ua string) *Fetcher {
	if client == nil { client = http.DefaultClient }
	return &Fetcher{client: client, log: log, ua: ua}
}

// Fetch downloads url to destPath and returns the final path and its SHA-256.
// It holds destPath.lock for the duration.
func (f *Fetcher) Fetch(ctx context.Context, url, destPath string) (string, string, error) {
	if destPath == "" { return "", "", errors.New("destination required") }
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil { return "", "", err }

	lk, err := lockfile.Acquire(destPath + ".lock")
	if err != nil { return "", "", err }
	defer func() { _ = lk.Release() }()
	return f.fetch(ctx, url, destPath)
}

// fetch does the transfer; the caller holds the destination lock.
func (f *Fetcher) fetch(ctx context.Context, url, destPath string) (string, string, error) {
	if url == "" { return "", "", errors.New("url required") }
	if destPath == "" { return "", "", errors.New("destination required") }
	part := destPath + ".part"

	var hasher hash.Hash = sha256.New()
	var start int64
	if fi, err := os.Stat(part); err == nil {
		start = fi.Size()
		f.log.Infof("resuming: %s (have %d bytes)", part, start)
		// Prime hasher with existing bytes
		pf, err := os.Open(part)
		if err != nil { return "", "", err }
		if _, err := io.Copy(hasher, pf); err != nil { _ = pf.Close(); return "", "", err }
		_ = pf.Close()
	}

	out, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil { return "", "", err }
	defer out.Close()
	if _, err := out.Seek(start, io.SeekStart); err != nil { return "", "", err }

	resp, err := f.get(ctx, url, start)
	if err != nil { return "", "", err }
	defer func() { resp.Body.Close() }()

	complete := false
	if start > 0 && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		if rangeTotal(resp.Header.Get("Content-Range")) == start {
			// The previous run got every byte but stopped before the rename.
			complete = true
		} else {
			f.log.Warnf("partial file does not match the remote size; restarting from beginning")
			resp.Body.Close()
			again, err := f.get(ctx, url, 0)
			if err != nil { return "", "", err }
			resp = again
			start = -1
		}
	}
	if start != 0 && resp.StatusCode == http.StatusOK {
		// Server ignored Range; restart from 0
		if start > 0 { f.log.Warnf("server ignored Range; restarting from beginning") }
		if _, err := out.Seek(0, io.SeekStart); err != nil { return "", "", err }
		if err := out.Truncate(0); err != nil { return "", "", err }
		hasher = sha256.New()
		start = 0
	}
	if !complete {
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			return "", "", fmt.Errorf("unexpected status: %s", resp.Status)
		}
		total := int64(-1)
		if resp.ContentLength >= 0 {
			total = start + resp.ContentLength
			if err := system.EnsureSpace(filepath.Dir(destPath), resp.ContentLength); err != nil { return "", "", err }
		}
		w := io.MultiWriter(out, hasher, &progressWriter{have: start, total: total, fn: f.Progress})
		if _, err := io.Copy(w, ctxReader{ctx: ctx, r: resp.Body}); err != nil {
			return "", "", err
		}
	}
	if err := out.Close(); err != nil { return "", "", err }

	sum := hex.EncodeToString(hasher.Sum(nil))
	if err := os.Rename(part, destPath); err != nil { return "", "", err }
	if err := os.WriteFile(destPath+".sha256", []byte(sum+"  "+filepath.Base(destPath)+"\n"), 0o644); err != nil {
		return "", "", err
	}
	return destPath, sum, nil
}

// get requests url, from byte offset start when start > 0.
func (f *Fetcher) get(ctx context.Context, url string, start int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil { return nil, err }
	if f.ua != "" { req.Header.Set("User-Agent", f.ua) }
	if start > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}
	return f.client.Do(req)
}

// rangeTotal parses the size out of a "bytes */<size>" Content-Range, or -1.
func rangeTotal(v string) int64 {
	i := strings.LastIndex(v, "/")
	if i < 0 { return -1 }
	n, err := strconv.ParseInt(strings.TrimSpace(v[i+1:]), 10, 64)
	if err != nil { return -1 }
	return n
}

type progressWriter struct {
	have, total int64
	fn          func(int64, int64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.have += int64(len(b))
	if p.fn != nil { p.fn(p.have, p.total) }
	return len(b), nil
}

// nameFromURL returns the last path segment of u, without a query.
func nameFromURL(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 { u = u[:i] }
	if i := strings.LastIndex(u, "/"); i >= 0 && i < len(u)-1 {
		return u[i+1:]
	}
	return ""
}
