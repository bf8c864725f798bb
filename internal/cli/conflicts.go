package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sparkscan/internal/library"
	"sparkscan/internal/record"
)

func newConflictsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Inspect pending conflicts",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List pending conflicts and their divergent fields",
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HASH\tENTRY\tNAME\tFIELDS")
			for _, c := range snap.Pending {
				fields := make([]string, 0)
				for _, f := range c.Fields() {
					fields = append(fields, string(f))
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Hash, c.Existing.EntryID, c.Existing.Name, strings.Join(fields, ","))
			}
			return tw.Flush()
		}),
	}
	show := &cobra.Command{
		Use:   "show <hash>",
		Short: "Show both sides of one conflict",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			c, ok := snap.Conflict(args[0])
			if !ok {
				return fmt.Errorf("%w %s", library.ErrConflictNotFound, args[0])
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tEXISTING\tNEW")
			for _, f := range c.Fields() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f, record.Format(c.Existing.Value(f)), record.Format(c.New.Value(f)))
			}
			return tw.Flush()
		}),
	}
	cmd.AddCommand(list, show)
	return cmd
}

func newResolveCmd(opts *options) *cobra.Command {
	var (
		take   []string
		allNew bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <hash>",
		Short: "Resolve a pending conflict",
		Long:  "Resolves a conflict by keeping the stored value of every field except those named with --take. Sparks are chosen per origin with sparks.parent, sparks.gp1 and sparks.gp2.",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(opts, func(cmd *cobra.Command, args []string, e *env) error {
			choices, err := parseChoices(take, allNew)
			if err != nil {
				return err
			}
			snap, err := e.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			next, merged, err := library.Resolve(snap, args[0], choices, time.Now())
			if err != nil {
				return err
			}
			if err := e.store.Save(cmd.Context(), next); err != nil {
				return err
			}
			e.log.Info("conflict resolved", "hash", args[0], "entry_id", merged.EntryID)
			fmt.Fprintf(cmd.OutOrStdout(), "resolved %s: entry %d (%s)\n", args[0], merged.EntryID, merged.Name)
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&take, "take", nil, "Fields to take from the new scan (comma separated)")
	cmd.Flags().BoolVar(&allNew, "all-new", false, "Take every field from the new scan")
	return cmd
}

func parseChoices(take []string, allNew bool) (library.Choices, error) {
	if allNew {
		if len(take) > 0 {
			return nil, fmt.Errorf("--take and --all-new are mutually exclusive")
		}
		return library.TakeAllNew(), nil
	}
	choices := library.Choices{}
	for _, name := range take {
		f, err := record.ParseField(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		choices[f] = library.TakeNew
	}
	return choices, nil
}
