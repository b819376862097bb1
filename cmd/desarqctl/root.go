package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"desarquivamento/internal/app"
	"desarquivamento/internal/platform/config"
	"desarquivamento/internal/platform/logger"
)

type rootOptions struct {
	envFile string
	debug   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "desarqctl",
		Short:         "Operate the archive retrieval service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "env file loaded before reading the environment")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log at debug level")

	cmd.AddCommand(
		newImportCommand(opts),
		newScanCommand(opts),
		newCleanupCommand(opts),
		newTemplateCommand(),
		newTokenCommand(opts),
	)
	return cmd
}

// load reads and validates configuration and builds a logger on stderr.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.Log.Level
	if o.debug {
		level = "debug"
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), level, "text"), nil
}

// application wires the app with a throwaway metrics registry.
func (o *rootOptions) application(cmd *cobra.Command) (*app.App, config.Config, error) {
	cfg, log, err := o.load(cmd)
	if err != nil {
		return nil, cfg, err
	}
	a, err := app.New(cmd.Context(), cfg, log, prometheus.NewRegistry())
	return a, cfg, err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
