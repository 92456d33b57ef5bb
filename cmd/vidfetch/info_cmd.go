package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"

	"vidfetch/internal/api"
	clierr "vidfetch/internal/errors"
	"vidfetch/internal/logging"
)

func handleInfo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	cf := commonFlags(fs)
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("usage: vidfetch info <url> [--json]")
	}
	c, err := loadConfig(*cf.cfgPath)
	if err != nil {
		return err
	}
	log := logging.NewWriter(*cf.logLevel, *cf.jsonOut, stderr)
	a, err := newApp(c, log, opener)
	if err != nil {
		return err
	}
	defer a.Close()

	md, err := a.svc.FetchVideoInfo(ctx, pos[0])
	if err != nil {
		return userError(err)
	}
	if *cf.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	}
	printMetadata(md)
	return nil
}

func printMetadata(md *api.VideoMetadata) {
	fmt.Fprintln(stdout, md.Title)
	fmt.Fprintf(stdout, "Duration: %s\n\n", md.Duration)
	w := 0
	for _, f := range md.Formats {
		if n := len(f.FormatID); n > w {
			w = n
		}
	}
	for _, f := range md.Formats {
		line := fmt.Sprintf("  %-*s  %s", w, f.FormatID, f.Label())
		if d := f.Details(); d != "" {
			line += "  " + d
		}
		fmt.Fprintln(stdout, line)
	}
}

// shownError prints the user-facing text for err and keeps err for errors.As.
type shownError struct{ err error }

func (e shownError) Error() string {
	var ce *clierr.ClientError
	if errors.As(e.err, &ce) {
		return ce.Friendly()
	}
	return clierr.UserMessage(e.err)
}

func (e shownError) Unwrap() error { return e.err }

func userError(err error) error {
	if err == nil {
		return nil
	}
	return shownError{err: err}
}
