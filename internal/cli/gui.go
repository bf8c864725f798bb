package cli

import (
	"context"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	sparkapp "sparkscan/internal/app"
	"sparkscan/internal/spark"
	"sparkscan/ui/prefs"
	"sparkscan/ui/resolver"
)

func newGUICmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the conflict resolution window",
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			state := sparkapp.NewState(e.store, spark.Naming(e.cfg.Sparks.Naming), e.log)
			if err := state.Load(cmd.Context()); err != nil {
				return err
			}

			a := fyneapp.NewWithID("io.sparkscan.resolver")
			a.Settings().SetTheme(&sparkapp.Theme{})
			win := resolver.New(a, state, prefs.Load(), e.log)

			// pick up conflicts written by a concurrent scan or watch
			files := []string{e.cfg.Store.RecordsFile, e.cfg.Store.Conflicts}
			if e.cfg.Store.Driver == "sqlite" {
				files = []string{e.cfg.Store.DSN}
			}
			watcher := sparkapp.NewFileWatcher(2*time.Second, files...)
			watcher.OnChange(func() {
				if err := state.Load(context.Background()); err != nil {
					e.log.Warn("reload library failed", "error", err)
				}
			})
			state.On(sparkapp.EventLibrarySaved, func(interface{}) { watcher.ResetBaseline() })
			watcher.Start()
			defer watcher.Stop()

			win.ShowAndRun()
			return nil
		}),
	}
}
