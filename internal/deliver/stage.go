package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// staged is a temporary file that holds a streamed body until it is promoted
// to its final name. release removes it exactly once on every path.
type staged struct {
	path string
	f    *os.File

	once     sync.Once
	released func(path string)
}

func newStaged(dir string, released func(string)) (*staged, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, ".vidfetch-*.part")
	if err != nil {
		return nil, err
	}
	return &staged{path: f.Name(), f: f, released: released}, nil
}

func (s *staged) release() {
	s.once.Do(func() {
		_ = s.f.Close()
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return
		}
		if s.released != nil {
			s.released(s.path)
		}
	})
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// uniquePath returns dir/name, or dir/"base (n).ext" when that already exists.
func uniquePath(dir, name string) string {
	p := filepath.Join(dir, name)
	if _, err := os.Lstat(p); errors.Is(err, os.ErrNotExist) {
		return p
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		p = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
		if _, err := os.Lstat(p); errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
}

// SafeName strips path separators and characters most filesystems reject.
func SafeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if len(name) > 200 {
		name = name[:200]
	}
	return name
}

// fallbackName is "video" plus an extension derived from the content type,
// or from the given ext hint.
func fallbackName(contentType, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
				ext = strings.TrimPrefix(exts[0], ".")
			}
		}
	}
	if ext == "" {
		return "video"
	}
	return "video." + ext
}
