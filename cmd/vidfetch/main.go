package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"vidfetch/internal/api"
	"vidfetch/internal/config"
	"vidfetch/internal/deliver"
	"vidfetch/internal/flow"
	"vidfetch/internal/logging"
	"vidfetch/internal/metrics"
	"vidfetch/internal/state"
)

var version = "dev"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	// A .env next to the binary's working directory may carry VIDFETCH_CONFIG
	// and ${VARS} referenced from the YAML.
	_ = godotenv.Load()
	api.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command provided")
	}
	cmd := args[0]
	switch cmd {
	case "info":
		return handleInfo(ctx, args[1:])
	case "download":
		return handleDownload(ctx, args[1:])
	case "tui":
		return handleTUI(ctx, args[1:])
	case "history":
		return handleHistory(ctx, args[1:])
	case "config":
		return handleConfig(ctx, args[1:])
	case "version":
		fmt.Fprintln(stdout, version)
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprintln(stdout, strings.TrimSpace(`vidfetch - client for a video download service

Usage:
  vidfetch <command> [flags]

Commands:
  info <url>                    Show title, duration and formats
  download <url> -f ID [-f ID]  Download one or more formats
  tui                           Open the interactive dashboard
  history                       Show recent downloads (or --queries)
  config validate               Validate a YAML config file
  config print                  Print the loaded config as JSON
  config wizard                 Interactive TUI to generate a YAML config
  version                       Print version
  help                          Show this help

Flags:
  --config PATH     Path to YAML config file (or VIDFETCH_CONFIG env var; default: ~/.config/vidfetch/config.yml)
  --log-level L     Log level: debug|info|warn|error (per command)
  --json            JSON output and JSON logs (per command)
`))
}

// common holds the flags every subcommand accepts.
type common struct {
	cfgPath  *string
	logLevel *string
	jsonOut  *bool
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		cfgPath:  fs.String("config", "", "Path to YAML config file"),
		logLevel: fs.String("log-level", "info", "log level"),
		jsonOut:  fs.Bool("json", false, "json output"),
	}
}

// parseInterleaved lets flags follow positional arguments
// ("download URL -f 18"), which flag.Parse alone stops at.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return pos, nil
		}
		pos = append(pos, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// loadConfig reads the config, falling back to defaults when no file exists.
func loadConfig(path string) (*config.Config, error) {
	p := config.DefaultPath(path)
	c, err := config.LoadOrDefault(p)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", p, err)
	}
	return c, nil
}

// app is the wired service plus what must be closed with it.
type app struct {
	svc     *flow.Service
	fetcher *deliver.Fetcher
	st      *state.DB
}

func (a *app) Close() {
	if a.st != nil {
		_ = a.st.Close()
	}
}

func newApp(c *config.Config, log *logging.Logger, opener deliver.Opener) (*app, error) {
	client, err := api.New(c, log)
	if err != nil {
		return nil, err
	}
	st, err := state.Open(c)
	if err != nil {
		// History is a convenience; the flows still work without it.
		log.Warnf("history disabled: %v", err)
		st = nil
	}
	fetcher := deliver.NewFetcher(api.NewMediaHTTPClient(c), log, api.UserAgent(c))
	d := deliver.New(c, log, opener, fetcher)
	svc := flow.New(client, d, st, metrics.New(c), log)
	return &app{svc: svc, fetcher: fetcher, st: st}, nil
}

// opener is replaced in tests so nothing launches a browser.
var opener deliver.Opener = deliver.SystemOpener{}
