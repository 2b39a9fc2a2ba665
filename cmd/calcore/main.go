// Package main provides the entry point for the calcore CLI application.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	apperrors "github.com/ersonp/calcore/internal/domain/errors"
)

var (
	version    = "0.1.0-dev"
	globalUser string
	globalJSON bool
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		cancel()
		os.Exit(apperrors.CodeOf(err).ExitCode())
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "calcore",
		Short:         "Shared calendar events with roles, conflict checks and full history",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&globalUser, "as", "", "User to act as (default: user from config or CALCORE_USER)")
	rootCmd.PersistentFlags().BoolVar(&globalJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newInitCmd(),
		newEventsCmd(),
		newShareCmd(),
		newPermissionsCmd(),
		newHistoryCmd(),
	)

	return rootCmd
}

// printError writes err to w, as a JSON object when --json is set.
func printError(w io.Writer, err error) {
	if !globalJSON {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}

	out := struct {
		Code     apperrors.Code    `json:"code"`
		Message  string            `json:"message"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}{Code: apperrors.CodeOf(err), Message: err.Error()}
	if appErr, ok := apperrors.AsError(err); ok {
		out.Metadata = appErr.Metadata
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"error": out})
}
