package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/calcore/internal/application/handlers"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
)

func newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "share <event-id> <user>:<role>...",
		Short:   "Share an event you own",
		Long:    "Grants each user a role (owner, editor, viewer) on the event. Existing roles are replaced.",
		Example: "  calcore share 5f0c... bob:editor carol:viewer",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grants, err := parseGrants(args[1:])
			if err != nil {
				return err
			}

			return withDeps(cmd.Context(), func(d *Deps) error {
				perms, err := d.Permissions.ShareEvent(cmd.Context(), d.Principal, args[0], grants)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), perms, func(w io.Writer) { printPermissions(w, perms) })
			})
		},
	}
}

// parseGrants parses user:role arguments.
func parseGrants(args []string) ([]handlers.GrantInput, error) {
	grants := make([]handlers.GrantInput, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, ":")
		if i <= 0 || i == len(arg)-1 {
			return nil, apperrors.Validation("users", fmt.Sprintf("invalid grant %q (want user:role)", arg))
		}
		grants = append(grants, handlers.GrantInput{UserID: arg[:i], Role: arg[i+1:]})
	}
	return grants, nil
}

func newPermissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"perms"},
		Short:   "Show and change who can access an event",
	}

	cmd.AddCommand(
		newPermissionsListCmd(),
		newPermissionsSetCmd(),
		newPermissionsRemoveCmd(),
	)

	return cmd
}

func newPermissionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <event-id>",
		Short: "List the participants of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				perms, err := d.Permissions.ListPermissions(cmd.Context(), d.Principal, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), perms, func(w io.Writer) { printPermissions(w, perms) })
			})
		},
	}
}

func newPermissionsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <event-id> <user> <role>",
		Short: "Change the role of a participant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Permissions.UpdatePermission(cmd.Context(), d.Principal, args[0], args[1], args[2]); err != nil {
					return err
				}
				result := map[string]string{"event_id": args[0], "user_id": args[1], "role": strings.ToUpper(args[2])}
				return render(cmd.OutOrStdout(), result, func(w io.Writer) {
					fmt.Fprintf(w, "%s is now %s\n", args[1], strings.ToUpper(args[2]))
				})
			})
		},
	}
}

func newPermissionsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <event-id> <user>",
		Aliases: []string{"rm"},
		Short:   "Remove a participant from an event",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.Permissions.RemovePermission(cmd.Context(), d.Principal, args[0], args[1]); err != nil {
					return err
				}
				result := map[string]string{"event_id": args[0], "removed": args[1]}
				return render(cmd.OutOrStdout(), result, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %s from %s\n", args[1], args[0])
				})
			})
		},
	}
}
