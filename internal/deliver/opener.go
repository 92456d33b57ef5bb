package deliver

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Opener hands a URL to a new browsing context.
type Opener interface {
	Open(rawURL string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(string) error

func (f OpenerFunc) Open(rawURL string) error { return f(rawURL) }

// SystemOpener launches the platform URL handler.
type SystemOpener struct{}

func (SystemOpener) Open(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", u.Scheme)
	}
	s := u.String()
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", s).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", s).Start()
	default:
		if _, err := exec.LookPath("xdg-open"); err == nil {
			return exec.Command("xdg-open", s).Start()
		}
	}
	return fmt.Errorf("cannot open browser on %s", runtime.GOOS)
}
