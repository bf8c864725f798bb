package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sparkscan/internal/library"
	"sparkscan/internal/record"
	"sparkscan/internal/spark"
)

func newLibraryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect the record library",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSCORE\tRANK\tGP1\tGP2\tSPARKS\tUPDATED")
			for _, r := range snap.Records {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
					r.EntryID, r.Name, r.Score, record.ScoreRank(r.Score), r.GP1, r.GP2,
					r.Sparks.Len(), r.LastUpdated.Format(time.DateTime))
			}
			return tw.Flush()
		}),
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export stored records as CSV",
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			naming := spark.Naming(e.cfg.Sparks.Naming)
			if out == "" || out == "-" {
				if err := library.ExportCSV(cmd.OutOrStdout(), snap.Records, naming); err != nil {
					return fmt.Errorf("export csv: %w", err)
				}
				return nil
			}
			if err := exportFile(out, snap.Records, naming); err != nil {
				return err
			}
			e.log.Info("library exported", "records", len(snap.Records), "out", out)
			return nil
		}),
	}
	export.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")

	show := &cobra.Command{
		Use:   "show <hash>",
		Short: "Show one stored record",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			r, ok := snap.Find(args[0])
			if !ok {
				return fmt.Errorf("no record with hash %s", args[0])
			}
			return printRecord(cmd.OutOrStdout(), r, spark.Naming(e.cfg.Sparks.Naming))
		}),
	}

	cmd.AddCommand(list, show, export)
	return cmd
}

func exportFile(path string, records []record.Record, naming spark.Naming) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := library.ExportCSV(f, records, naming); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

func printRecord(w io.Writer, r record.Record, naming spark.Naming) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", r.EntryID)
	fmt.Fprintf(tw, "HASH\t%s\n", r.EntryHash)
	fmt.Fprintf(tw, "NAME\t%s\n", r.Name)
	fmt.Fprintf(tw, "SCORE\t%d (%s)\n", r.Score, record.ScoreRank(r.Score))
	for _, s := range []struct {
		label string
		value int
	}{
		{"SPEED", r.Speed}, {"STAMINA", r.Stamina}, {"POWER", r.Power},
		{"GUTS", r.Guts}, {"WIT", r.Wit},
	} {
		fmt.Fprintf(tw, "%s\t%d (%s)\n", s.label, s.value, record.StatGrade(s.value))
	}
	fmt.Fprintf(tw, "GP1\t%s\n", r.GP1)
	fmt.Fprintf(tw, "GP2\t%s\n", r.GP2)
	for _, o := range spark.Origins {
		for _, sp := range r.Sparks.Of(o) {
			fmt.Fprintf(tw, "%s\t%s %s %d\n", o.Label(naming), sp.Color, sp.Name, sp.Count)
		}
	}
	fmt.Fprintf(tw, "UPDATED\t%s\n", r.LastUpdated.Format(time.DateTime))
	return tw.Flush()
}
