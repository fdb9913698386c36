// Package cli implements ritctl, the operator command line: schema
// migrations and chronology audits against the production database.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pkordes/ritlog/internal/service"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string
	Format      string // "json" | "text"

	// OpenAuditor connects the audit command to its data. Tests replace it.
	OpenAuditor func(ctx context.Context, dsn string) (Auditor, func(), error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Auditor re-checks a vehicle's stored history.
type Auditor interface {
	Audit(ctx context.Context, vehicleID uuid.UUID) ([]service.Finding, error)
}

// NewRootCommand creates the root command for ritctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{OpenAuditor: openAuditor}

	cmd := &cobra.Command{
		Use:   "ritctl",
		Short: "ritlog operations tool",
		// main prints the error once.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

func requireDatabaseURL(opts *RootOptions) error {
	if opts.DatabaseURL == "" {
		return fmt.Errorf("database URL required: set --database-url or DATABASE_URL")
	}
	return nil
}
