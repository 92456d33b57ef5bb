package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"

	"vidfetch/internal/config"
	"vidfetch/internal/logging"
)

func handleConfig(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("config subcommand required: validate | print | wizard")
	}
	sub := args[0]
	switch sub {
	case "validate":
		return configOp("config validate", args[1:], config.Read, func(c *config.Config, log *logging.Logger) error {
			if errs := c.ValidateDetailed(); len(errs) > 0 {
				return errors.New(config.FormatValidationErrors(errs))
			}
			log.Infof("config: valid")
			return nil
		})
	case "print":
		return configOp("config print", args[1:], config.Load, func(c *config.Config, log *logging.Logger) error {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		})
	case "wizard":
		return handleConfigWizard(ctx, args[1:])
	default:
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}

// configOp loads the config strictly: a missing file is an error here.
func configOp(name string, args []string, load func(string) (*config.Config, error), fn func(*config.Config, *logging.Logger) error) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cf := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	log := logging.NewWriter(*cf.logLevel, *cf.jsonOut, stderr)
	path := config.DefaultPath(*cf.cfgPath)
	c, err := load(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return fn(c, log)
}

func handleConfigWizard(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config wizard", flag.ContinueOnError)
	out := fs.String("out", "", "write YAML to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return runWizard(config.Default(), *out)
}
