package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"vidfetch/internal/config"
	"vidfetch/internal/deliver"
	"vidfetch/internal/feedback"
	"vidfetch/internal/logging"
)

// formatList collects repeated -f flags.
type formatList []string

func (f *formatList) String() string { return strings.Join(*f, ",") }

func (f *formatList) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*f = append(*f, p)
		}
	}
	return nil
}

func handleDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	cf := commonFlags(fs)
	var formats formatList
	fs.Var(&formats, "f", "format_id to download (repeatable, or comma separated)")
	redirect := fs.String("redirect", "", "override download.redirect_action: open|fetch")
	quiet := fs.Bool("quiet", false, "suppress progress and info logs (errors only)")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 || len(formats) == 0 {
		return errors.New("usage: vidfetch download <url> -f <format_id> [-f <format_id> ...]")
	}
	c, err := loadConfig(*cf.cfgPath)
	if err != nil {
		return err
	}
	if *redirect != "" {
		c.Download.RedirectAction = strings.ToLower(*redirect)
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if *quiet && !*cf.jsonOut {
		*cf.logLevel = "error"
	}
	log := logging.NewWriter(*cf.logLevel, *cf.jsonOut, stderr)
	a, err := newApp(c, log, opener)
	if err != nil {
		return err
	}
	defer a.Close()

	url := strings.TrimSpace(pos[0])
	md, err := a.svc.FetchVideoInfo(ctx, url)
	if err != nil {
		return userError(err)
	}
	reg := feedback.NewRegistry(url, md.Formats)
	var rows []*feedback.Row
	for _, id := range formats {
		row, ok := reg.Get(id)
		if !ok {
			return fmt.Errorf("format %q is not offered for this video; see `vidfetch info %s`", id, url)
		}
		rows = append(rows, row)
	}

	var bar *progressPrinter
	if len(rows) == 1 && !*quiet && c.Download.RedirectAction == config.RedirectFetch {
		bar = newProgressPrinter(stderr)
		a.fetcher.Progress = bar.Update
	}

	fmt.Fprintln(stdout, md.Title)
	var mu sync.Mutex
	say := func(format string, v ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(stdout, format, v...)
	}
	// Triggers are independent: one failing does not cancel the others.
	var g errgroup.Group
	for _, row := range rows {
		row := row
		label := row.Format.Label()
		row.Button.OnChange = func(s feedback.State, ap feedback.Appearance) {
			if s != feedback.Idle {
				say("  %-16s %s\n", label, ap.Label)
			}
		}
		g.Go(func() error {
			out, err := a.svc.TriggerDownload(ctx, row, c.Feedback(), nil)
			if bar != nil {
				bar.Done()
			}
			if err != nil {
				log.Errorf("download %s: %v", label, err)
				return fmt.Errorf("%s: %w", label, userError(err))
			}
			say("  %-16s %s\n", label, outcomeLine(out))
			return nil
		})
	}
	return g.Wait()
}

func outcomeLine(out deliver.Outcome) string {
	switch out.Action {
	case deliver.ActionOpened:
		return "opened " + logging.SanitizeURL(out.URL)
	case deliver.ActionSaved, deliver.ActionFetched:
		return fmt.Sprintf("saved %s (%s)", out.Path, humanize.Bytes(uint64(out.Bytes)))
	}
	return out.Action
}
