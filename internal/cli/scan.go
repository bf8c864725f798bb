package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"sparkscan/internal/library"
	"sparkscan/internal/ocr"
	"sparkscan/internal/portrait"
	"sparkscan/internal/scan"
	"sparkscan/internal/vocab"
)

func newScanCmd(opts *options) *cobra.Command {
	var (
		workers int
		move    bool
	)
	cmd := &cobra.Command{
		Use:   "scan [folder...]",
		Short: "Scan screenshot folders into the library",
		Long:  "Scans the given folders, or every folder under paths.input_dir, and reconciles the results with the library.",
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			if workers > 0 {
				e.cfg.Workers = workers
			}
			folders := args
			if len(folders) == 0 {
				var err error
				folders, err = scan.Folders(e.cfg.Paths.InputDir)
				if err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p, err := newPass(e)
			if err != nil {
				return err
			}
			defer p.Close()
			return p.run(ctx, cmd.OutOrStdout(), folders, move)
		}),
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel workers (default from config)")
	cmd.Flags().BoolVar(&move, "move", false, "Move successfully scanned folders to paths.processed_dir")
	return cmd
}

func newWatchCmd(opts *options) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan new folders as they appear in paths.input_dir",
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			p, err := newPass(e)
			if err != nil {
				return err
			}
			defer p.Close()
			w := scan.NewWatcher(e.cfg.Paths.InputDir, debounce, e.log)
			return w.Run(ctx, func(folder string) {
				if err := p.run(ctx, cmd.OutOrStdout(), []string{folder}, true); err != nil {
					e.log.Error("scan pass failed", "folder", folder, "error", err)
				}
			})
		}),
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 3*time.Second, "Quiet period before a new folder is scanned")
	return cmd
}

// pass scans folders and reconciles the records with the library. The
// store is read once and written once.
type pass struct {
	e         *env
	processor *scan.Processor
	portraits *portrait.Library
}

func newPass(e *env) (*pass, error) {
	v, err := vocab.Load(e.cfg.Paths.Vocabulary, e.cfg.Paths.Corrections)
	if err != nil {
		return nil, err
	}
	roster, err := vocab.LoadRoster(e.cfg.Paths.Roster)
	if err != nil {
		return nil, err
	}
	portraits, err := portrait.Load(e.cfg.Paths.Portraits, e.cfg.Portrait, e.log)
	if err != nil {
		return nil, err
	}
	p, err := scan.NewProcessor(e.cfg, v, roster, portraits, e.log)
	if err != nil {
		portraits.Close()
		return nil, err
	}
	e.log.Info("vocabulary loaded", "sparks", v.Size(), "rules", len(v.Rules), "characters", len(roster.Characters))
	return &pass{e: e, processor: p, portraits: portraits}, nil
}

func (p *pass) Close() error {
	return p.portraits.Close()
}

func (p *pass) newReader() (ocr.Reader, error) {
	o := p.e.cfg.OCR
	return ocr.NewEngine(ocr.Options{Languages: o.Languages, TessdataPrefix: o.TessdataPrefix, MinHeight: o.MinHeight})
}

func (p *pass) run(ctx context.Context, out io.Writer, folders []string, move bool) error {
	report, runErr := p.processor.Run(ctx, folders, p.e.cfg.Workers, p.newReader)
	if report == nil {
		return runErr
	}

	// finished folders are kept even after an interrupt
	storeCtx := context.WithoutCancel(ctx)
	snap, err := p.e.store.Load(storeCtx)
	if err != nil {
		return err
	}
	res := library.Reconcile(snap, report.Records(), time.Now())
	if err := p.e.store.Save(storeCtx, res.Snapshot); err != nil {
		return err
	}

	for _, o := range report.Outcomes {
		fmt.Fprintf(out, "%-8s %s", o.Status, o.Folder)
		if o.Reason != "" {
			fmt.Fprintf(out, " (%s)", firstLine(o.Reason))
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "run %s: %d inserted, %d unchanged, %d new conflicts, %d held, %d skipped, %d failed\n",
		report.RunID, len(res.Inserted), len(res.Unchanged), len(res.Conflicts), len(res.Held),
		report.Count(scan.Skipped), report.Count(scan.Failed))

	if move {
		for _, o := range report.Outcomes {
			if o.Status != scan.Success {
				continue
			}
			if _, err := scan.MoveProcessed(o.Folder, p.e.cfg.Paths.ProcessedDir); err != nil {
				p.e.log.Warn("move processed folder failed", "folder", o.Folder, "error", err)
			}
		}
	}
	return runErr
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
