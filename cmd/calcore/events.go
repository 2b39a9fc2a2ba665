package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ersonp/calcore/internal/application/handlers"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event"},
		Short:   "Create, list and change events",
	}

	cmd.AddCommand(
		newEventsCreateCmd(),
		newEventsListCmd(),
		newEventsGetCmd(),
		newEventsUpdateCmd(),
		newEventsDeleteCmd(),
		newEventsImportCmd(),
		newEventsExportCmd(),
	)

	return cmd
}

func addEventFieldFlags(cmd *cobra.Command, in *handlers.EventInput) {
	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "Event title")
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "Event description")
	cmd.Flags().StringVar(&in.StartTime, "start", "", "Start time (RFC 3339)")
	cmd.Flags().StringVar(&in.EndTime, "end", "", "End time (RFC 3339)")
	cmd.Flags().StringVarP(&in.Location, "location", "l", "", "Event location")
	cmd.Flags().BoolVar(&in.IsRecurring, "recurring", false, "Mark the event as recurring")
	cmd.Flags().StringVar(&in.RecurrencePattern, "pattern", "", "Recurrence pattern (daily, weekly, monthly, yearly)")
}

func newEventsCreateCmd() *cobra.Command {
	var in handlers.EventInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				event, err := d.Events.CreateEvent(cmd.Context(), d.Principal, in)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), event, func(w io.Writer) {
					fmt.Fprintln(w, "Created event:")
					printEvent(w, event)
				})
			})
		},
	}

	addEventFieldFlags(cmd, &in)

	return cmd
}

func newEventsListCmd() *cobra.Command {
	var in handlers.ListEventsInput

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the events you participate in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				page, err := d.Events.ListEvents(cmd.Context(), d.Principal, in)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), page, func(w io.Writer) { printPage(w, page) })
			})
		},
	}

	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "Filter by title (case-insensitive substring)")
	cmd.Flags().IntVarP(&in.Page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&in.PageSize, "page-size", "n", DefaultPageSize, "Events per page")

	return cmd
}

func newEventsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <event-id>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				event, err := d.Events.GetEvent(cmd.Context(), d.Principal, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), event, func(w io.Writer) { printEvent(w, event) })
			})
		},
	}
}

func newEventsUpdateCmd() *cobra.Command {
	var (
		fields handlers.EventInput
		reason string
	)

	cmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Change fields of an event you own",
		Long:  "Changes only the fields whose flags are given. Every update is recorded in the event history.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := updateInputFromFlags(cmd, fields)
			in.Reason = reason

			return withDeps(cmd.Context(), func(d *Deps) error {
				event, err := d.Events.UpdateEvent(cmd.Context(), d.Principal, args[0], in)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), event, func(w io.Writer) {
					fmt.Fprintln(w, "Updated event:")
					printEvent(w, event)
				})
			})
		},
	}

	addEventFieldFlags(cmd, &fields)
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded in the history")

	return cmd
}

// updateInputFromFlags keeps only the field flags set on the command line.
func updateInputFromFlags(cmd *cobra.Command, fields handlers.EventInput) handlers.EventUpdateInput {
	var in handlers.EventUpdateInput
	changed := cmd.Flags().Changed

	if changed("title") {
		in.Title = &fields.Title
	}
	if changed("description") {
		in.Description = &fields.Description
	}
	if changed("start") {
		in.StartTime = &fields.StartTime
	}
	if changed("end") {
		in.EndTime = &fields.EndTime
	}
	if changed("location") {
		in.Location = &fields.Location
	}
	if changed("recurring") {
		in.IsRecurring = &fields.IsRecurring
	}
	if changed("pattern") {
		in.RecurrencePattern = &fields.RecurrencePattern
	}
	return in
}

func newEventsDeleteCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event you own",
		Long:  "Deletes an event and all of its permissions. The event history is kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Events.DeleteEvent(cmd.Context(), d.Principal, args[0], reason); err != nil {
					return err
				}
				result := map[string]string{"deleted": args[0]}
				return render(cmd.OutOrStdout(), result, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted event %s\n", args[0])
				})
			})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded in the history")

	return cmd
}

func newEventsImportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create events from JSON or CSV",
		Long: "Creates every valid event of a file in one batch, owned by you. " +
			"Invalid records are reported by line; overlaps are not checked.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validImportFormats, format) {
				return apperrors.Validation("format", fmt.Sprintf("invalid format %q, valid formats: %v", format, validImportFormats))
			}
			return runImport(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "auto", "File format (json, csv, auto)")

	return cmd
}

func runImport(cmd *cobra.Command, filePath, format string) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		result, err := d.Events.ImportEvents(cmd.Context(), d.Principal, filePath, handlers.ImportOptions{Format: format})
		if result == nil {
			return err
		}

		if rerr := render(cmd.OutOrStdout(), result, func(w io.Writer) { printImportResult(w, result) }); rerr != nil {
			return rerr
		}
		return err
	})
}

func printImportResult(w io.Writer, result *handlers.ImportResult) {
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "Validation errors (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			if e.Field != "" {
				fmt.Fprintf(w, "  line %d: %s: %s\n", e.LineNum, e.Field, e.Message)
			} else {
				fmt.Fprintf(w, "  line %d: %s\n", e.LineNum, e.Message)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Imported: %d events", len(result.Created))
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, ", %d errors", len(result.Errors))
	}
	fmt.Fprintln(w)
}

func newEventsExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <event-id>",
		Short: "Export an event as iCalendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				return exportEvent(cmd, d, args[0], output)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func exportEvent(cmd *cobra.Command, d *Deps, eventID, output string) (err error) {
	if output == "" {
		return d.Events.ExportEvent(cmd.Context(), d.Principal, eventID, cmd.OutOrStdout())
	}

	f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	if err := d.Events.ExportEvent(cmd.Context(), d.Principal, eventID, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported event %s to %s\n", eventID, output)
	return nil
}
