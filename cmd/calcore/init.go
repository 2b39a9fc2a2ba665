package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/calcore/internal/application/handlers"
	"github.com/ersonp/calcore/internal/domain/ports"
	"github.com/ersonp/calcore/internal/infrastructure/config"
	"github.com/ersonp/calcore/internal/infrastructure/relationaldb/sqlite"
)

func newInitCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new calcore project",
		Long:  "Creates a .calcore directory with default configuration and the SQLite event store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, user)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "Default user to act as")

	return cmd
}

func runInit(cmd *cobra.Command, user string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	handler := handlers.NewInitHandler(openSQLite)
	result, err := handler.Handle(cmd.Context(), cwd, user)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), result, func(w io.Writer) {
		fmt.Fprintf(w, "Created %s\n", result.ConfigPath)
		fmt.Fprintf(w, "Created event store: %s\n", result.DatabasePath)
		if result.User != "" {
			fmt.Fprintf(w, "Acting as: %s\n", result.User)
		}
		fmt.Fprintln(w, "calcore initialized successfully!")
	})
}

func openSQLite(cfg config.SQLiteConfig) (ports.EventStore, error) {
	return sqlite.NewRepository(cfg)
}
