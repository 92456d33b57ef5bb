// Package deliver turns a /download answer into something the user has: a
// saved file for a media stream, or an opened (or fetched) redirect URL.
package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"vidfetch/internal/api"
	"vidfetch/internal/config"
	"vidfetch/internal/lockfile"
	"vidfetch/internal/logging"
	"vidfetch/internal/system"
)

// Actions reported in Outcome.
const (
	ActionSaved   = "saved"
	ActionOpened  = "opened"
	ActionFetched = "fetched"
)

// Outcome describes what happened to a successful download answer.
type Outcome struct {
	Action string
	Path   string // saved or fetched file
	URL    string // redirect target
	Bytes  int64
	SHA256 string
}

type Deliverer struct {
	root     string
	redirect string
	opener   Opener
	fetcher  *Fetcher
	log      *logging.Logger

	// mu makes choosing a free name and promoting into it one step, so
	// concurrent saves of the same filename get distinct paths.
	mu sync.Mutex
	// promote moves the staged body into place; os.Rename unless replaced.
	promote func(src, dst string) error
	// released observes staging cleanup.
	released func(path string)
}

func New(cfg *config.Config, log *logging.Logger, opener Opener, fetcher *Fetcher) *Deliverer {
	if opener == nil {
		opener = SystemOpener{}
	}
	action := strings.ToLower(strings.TrimSpace(cfg.Download.RedirectAction))
	if action == "" {
		action = config.RedirectOpen
	}
	return &Deliverer{
		root:     cfg.General.DownloadRoot,
		redirect: action,
		opener:   opener,
		fetcher:  fetcher,
		log:      log,
		promote:  os.Rename,
	}
}

// Deliver consumes res. A stream body is always closed.
func (d *Deliverer) Deliver(ctx context.Context, res *api.DownloadResult) (Outcome, error) {
	if res == nil {
		return Outcome{}, errors.New("nil download result")
	}
	if res.IsRedirect() {
		return d.redirectTo(ctx, res.Redirect)
	}
	return d.SaveStream(ctx, res)
}

func (d *Deliverer) redirectTo(ctx context.Context, rd *api.Redirect) (Outcome, error) {
	if d.redirect == config.RedirectFetch && d.fetcher != nil {
		dest, lk, err := d.reserve(fetchName(rd))
		if err != nil {
			return Outcome{}, fmt.Errorf("fetch %s: %w", logging.SanitizeURL(rd.URL), err)
		}
		path, sum, err := d.fetcher.fetch(ctx, rd.URL, dest)
		_ = lk.Release()
		if err != nil {
			return Outcome{}, fmt.Errorf("fetch %s: %w", logging.SanitizeURL(rd.URL), err)
		}
		var n int64
		if fi, err := os.Stat(path); err == nil {
			n = fi.Size()
		}
		d.log.Infof("fetched %s -> %s", logging.SanitizeURL(rd.URL), path)
		return Outcome{Action: ActionFetched, Path: path, URL: rd.URL, Bytes: n, SHA256: sum}, nil
	}
	if err := d.opener.Open(rd.URL); err != nil {
		return Outcome{}, fmt.Errorf("open %s: %w", logging.SanitizeURL(rd.URL), err)
	}
	d.log.Infof("opened %s", logging.SanitizeURL(rd.URL))
	return Outcome{Action: ActionOpened, URL: rd.URL}, nil
}

// fetchName is "<title> [<format_id>].<ext>". The format id keeps the
// partial files of different formats of one video apart.
func fetchName(rd *api.Redirect) string {
	ext := strings.TrimPrefix(rd.Ext, ".")
	name := SafeName(rd.Title)
	if name != "" {
		if id := SafeName(rd.FormatID); id != "" {
			name += " [" + id + "]"
		}
		if ext != "" {
			name += "." + ext
		}
	}
	if name == "" {
		name = SafeName(nameFromURL(rd.URL))
	}
	if name == "" {
		name = fallbackName("", ext)
	}
	return name
}

// reserve picks the first of name, "name (1)", ... that has no finished file
// and whose lock it can take. A leftover .part under a free lock is resumed.
func (d *Deliverer) reserve(name string) (string, *lockfile.LockFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return "", nil, err
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < maxNameTries; i++ {
		cand := name
		if i > 0 {
			cand = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		dest := filepath.Join(d.root, cand)
		if _, err := os.Lstat(dest); err == nil {
			continue
		}
		lk, err := lockfile.Acquire(dest + ".lock")
		if errors.Is(err, lockfile.ErrHeld) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		return dest, lk, nil
	}
	return "", nil, fmt.Errorf("no free name for %s", name)
}

const maxNameTries = 1000

// SaveStream writes the body to a staging file, then promotes it into the
// download root under the server-supplied filename. The staging file is
// released exactly once whether the copy, the promote, or neither fails,
// and also if promote panics.
func (d *Deliverer) SaveStream(ctx context.Context, res *api.DownloadResult) (Outcome, error) {
	defer func() { _ = res.Close() }()
	if res.Body == nil {
		return Outcome{}, errors.New("download answer has no body")
	}
	st, err := newStaged(d.root, d.released)
	if err != nil {
		return Outcome{}, err
	}
	defer st.release()
	if err := system.EnsureSpace(d.root, res.Size); err != nil {
		return Outcome{}, err
	}

	n, err := io.Copy(st.f, ctxReader{ctx: ctx, r: res.Body})
	if err != nil {
		return Outcome{}, fmt.Errorf("read media: %w", err)
	}
	if res.Size >= 0 && n != res.Size {
		return Outcome{}, fmt.Errorf("read media: got %d of %d bytes", n, res.Size)
	}
	if err := st.f.Close(); err != nil {
		return Outcome{}, err
	}
	name := SafeName(res.Filename)
	if name == "" {
		name = fallbackName(res.ContentType, "")
	}
	dst, err := d.place(st.path, name)
	if err != nil {
		return Outcome{}, fmt.Errorf("save %s: %w", dst, err)
	}
	d.log.Infof("saved %s (%d bytes)", dst, n)
	return Outcome{Action: ActionSaved, Path: dst, Bytes: n}, nil
}

func (d *Deliverer) place(src, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dst := uniquePath(d.root, name)
	return dst, d.promote(src, dst)
}
