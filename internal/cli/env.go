package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sparkscan/internal/config"
	"sparkscan/internal/library"
	"sparkscan/internal/logging"
)

// env is what every command runs with: validated config, a logger and the
// opened library store.
type env struct {
	cfg   config.Config
	log   *logging.Logger
	store library.Store
}

func withEnv(opts *options, run func(cmd *cobra.Command, args []string, e *env) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(opts.configFile)
		if err != nil {
			return err
		}
		if opts.logLevel != "" {
			cfg.Logging.Level = opts.logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", opts.configFile, err)
		}

		log, err := logging.New(cfg.Logging.Mode, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer log.Sync()
		log = log.With("command", cmd.CommandPath())

		store, err := library.Open(cmd.Context(), cfg.Store, log)
		if err != nil {
			log.Error("open library failed", "driver", cfg.Store.Driver, "error", err)
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("close library failed", "error", err)
			}
		}()

		return run(cmd, args, &env{cfg: cfg, log: log, store: store})
	}
}
