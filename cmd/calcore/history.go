package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and roll back event history",
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryChangelogCmd(),
		newHistoryDiffCmd(),
		newHistoryRollbackCmd(),
	)

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <event-id>",
		Short: "List the versions of an event, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				snaps, err := d.History.ListHistory(cmd.Context(), d.Principal, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), snaps, func(w io.Writer) { printSnapshots(w, snaps) })
			})
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <event-id> <version>",
		Short: "Show one version of an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				snap, err := d.History.GetHistoryVersion(cmd.Context(), d.Principal, args[0], args[1])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), snap, func(w io.Writer) { printSnapshot(w, snap) })
			})
		},
	}
}

func newHistoryChangelogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "changelog <event-id>",
		Short: "Show what changed in each version of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				entries, err := d.History.GetChangelog(cmd.Context(), d.Principal, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), entries, func(w io.Writer) { printChangelog(w, entries) })
			})
		},
	}
}

func newHistoryDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <event-id> <version-1> <version-2>",
		Short: "Compare two versions of an event",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				diff, err := d.History.GetDiff(cmd.Context(), d.Principal, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), diff, func(w io.Writer) { printDiff(w, diff) })
			})
		},
	}
}

func newHistoryRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <event-id> <version>",
		Short: "Restore the fields of an earlier version",
		Long:  "Copies the fields of the given version onto the event. The rollback is recorded as a new version.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				event, err := d.History.RollbackEvent(cmd.Context(), d.Principal, args[0], args[1])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), event, func(w io.Writer) {
					fmt.Fprintf(w, "Rolled back to version %s:\n", args[1])
					printEvent(w, event)
				})
			})
		},
	}
}
