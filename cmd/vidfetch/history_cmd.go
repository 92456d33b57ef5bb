package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"vidfetch/internal/logging"
	"vidfetch/internal/state"
)

func handleHistory(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	cf := commonFlags(fs)
	limit := fs.Int("limit", 20, "maximum rows to show")
	queries := fs.Bool("queries", false, "show info lookups instead of downloads")
	wipe := fs.Bool("clear", false, "delete all recorded history")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := loadConfig(*cf.cfgPath)
	if err != nil {
		return err
	}
	log := logging.NewWriter(*cf.logLevel, *cf.jsonOut, stderr)
	st, err := state.Open(c)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if *wipe {
		if err := st.Clear(); err != nil {
			return err
		}
		log.Infof("history: cleared")
		return nil
	}
	if *queries {
		rows, err := st.ListQueries(*limit)
		if err != nil {
			return err
		}
		if *cf.jsonOut {
			return writeJSON(rows)
		}
		if len(rows) == 0 {
			fmt.Fprintln(stdout, "no lookups recorded")
		}
		for _, r := range rows {
			detail := fmt.Sprintf("%s (%s, %d formats)", r.Title, r.Duration, r.Formats)
			if r.Status == state.StatusError {
				detail = r.LastError
			}
			fmt.Fprintf(stdout, "%-16s %-6s %s  %s\n", ago(r.CreatedAt), r.Status, logging.SanitizeURL(r.URL), detail)
		}
		return nil
	}
	rows, err := st.ListDownloads(*limit)
	if err != nil {
		return err
	}
	if *cf.jsonOut {
		return writeJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "no downloads recorded")
	}
	for _, r := range rows {
		detail := r.Target
		if r.Bytes > 0 {
			detail += " " + humanize.Bytes(uint64(r.Bytes))
		}
		if r.Status == state.StatusError {
			detail = r.LastError
		}
		fmt.Fprintf(stdout, "%-16s %-7s %-14s %-8s %s\n", ago(r.CreatedAt), r.Status, r.Label, r.Action, detail)
	}
	return nil
}

func ago(unix int64) string { return humanize.Time(time.Unix(unix, 0)) }

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
