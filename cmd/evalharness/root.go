package main

import (
	"fmt"
	"io"

	"github.com/hupe1980/evalharness/config"
	"github.com/hupe1980/evalharness/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "evalharness",
		Short: "Evaluate and retry LLM answers with a judge model",
		Long: `evalharness runs a prompt against a primary model, lets a judge model rate
the answer from 1 to 4 and retries with the judge's feedback until the rating
reaches the success threshold or the retry budget is spent.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML or TOML config (default: mock providers)")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env when present)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(newAskCmd(opts), newChatCmd(opts), newConfigCmd(opts))
	return cmd
}

func (o *rootOptions) load(logOut io.Writer) error {
	if err := config.LoadEnv(o.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	o.cfg = cfg
	o.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Logging.Format,
		Output:    logOut,
		Component: "evalharness",
	})
	return nil
}
