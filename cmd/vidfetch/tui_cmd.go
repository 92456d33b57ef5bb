package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"vidfetch/internal/config"
	"vidfetch/internal/logging"
	ui "vidfetch/internal/tui"
	cw "vidfetch/internal/tui/configwizard"
)

func handleTUI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	cf := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := config.DefaultPath(*cf.cfgPath)
	// No config yet: offer the wizard first, like a fresh install would want.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := runWizard(config.Default(), path); err != nil {
			return err
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	log, closer, err := logging.NewFile(*cf.logLevel, *cf.jsonOut, c.Logging.File.Path)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	log.Infof("tui: start version=%s base=%s", version, logging.SanitizeURL(c.Server.BaseURL))

	a, err := newApp(c, log, opener)
	if err != nil {
		return err
	}
	defer a.Close()

	m := ui.New(ctx, c, a.svc, log, version)
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err = p.Run()
	return err
}

// runWizard shows the config wizard and writes the result to path. An empty
// path prints the YAML instead.
func runWizard(defaults *config.Config, path string) error {
	w := cw.New(defaults)
	m, err := tea.NewProgram(w).Run()
	if err != nil {
		return err
	}
	wiz, ok := m.(*cw.Wizard)
	if !ok {
		return errors.New("unexpected model type from wizard")
	}
	cfg := wiz.Config()
	if cfg == nil {
		return errors.New("config wizard was cancelled")
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = stdout.Write(b)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote config to %s\n", path)
	return nil
}
