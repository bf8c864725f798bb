// Package cli wires the sparkscan commands.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sparkscan/internal/config"
	"sparkscan/internal/version"
)

type options struct {
	configFile string
	logLevel   string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "sparkscan",
		Short:        "Extract character builds and sparks from screenshots",
		Long:         "Scans folders of game screenshots into character records, reconciles them with the library and holds divergent re-scans for manual resolution.",
		SilenceUsage: true,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.GitCommit, version.BuildTime),
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultPath, "Config file path")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level from the config file")

	root.AddCommand(
		newScanCmd(opts),
		newWatchCmd(opts),
		newConflictsCmd(opts),
		newResolveCmd(opts),
		newLibraryCmd(opts),
		newGUICmd(opts),
	)
	return root
}

// Execute runs the root command. main only needs to call this once.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	return NewRootCmd().ExecuteContext(ctx)
}
