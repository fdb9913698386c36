package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/ritlog/migrations"
)

// NewMigrateCommand creates the migrate command with up, down and status.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.AddCommand(
		newMigrateSubcommand(opts, "up", "Apply all pending migrations", migrateUp),
		newMigrateSubcommand(opts, "down", "Roll back the most recent migration", migrateDown),
		newMigrateSubcommand(opts, "status", "List migrations and whether they are applied", migrateStatus),
	)
	return cmd
}

type migrateFunc func(ctx context.Context, p *goose.Provider, opts *RootOptions, w io.Writer) error

func newMigrateSubcommand(opts *RootOptions, use, short string, fn migrateFunc) *cobra.Command {
	return &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireDatabaseURL(opts); err != nil {
				return err
			}
			db, err := migrations.Open(opts.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			provider, err := migrations.NewProvider(db)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			return fn(cmd.Context(), provider, opts, cmd.OutOrStdout())
		},
	}
}

// migrationLine is the JSON shape of one applied or listed migration.
type migrationLine struct {
	Version   int64      `json:"version"`
	Path      string     `json:"path"`
	State     string     `json:"state,omitempty"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Duration  string     `json:"duration,omitempty"`
}

func migrateUp(ctx context.Context, p *goose.Provider, opts *RootOptions, w io.Writer) error {
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	lines := make([]migrationLine, 0, len(results))
	for _, r := range results {
		lines = append(lines, resultLine(r))
	}
	return writeMigrations(w, opts.Format, lines, "no pending migrations")
}

func migrateDown(ctx context.Context, p *goose.Provider, opts *RootOptions, w io.Writer) error {
	result, err := p.Down(ctx)
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return writeMigrations(w, opts.Format, []migrationLine{resultLine(result)}, "")
}

func migrateStatus(ctx context.Context, p *goose.Provider, opts *RootOptions, w io.Writer) error {
	statuses, err := p.Status(ctx)
	if err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	lines := make([]migrationLine, 0, len(statuses))
	for _, s := range statuses {
		line := migrationLine{Version: s.Source.Version, Path: s.Source.Path, State: string(s.State)}
		if !s.AppliedAt.IsZero() {
			at := s.AppliedAt
			line.AppliedAt = &at
		}
		lines = append(lines, line)
	}
	return writeMigrations(w, opts.Format, lines, "no migrations")
}

func resultLine(r *goose.MigrationResult) migrationLine {
	return migrationLine{
		Version:  r.Source.Version,
		Path:     r.Source.Path,
		State:    r.Direction,
		Duration: r.Duration.Round(time.Millisecond).String(),
	}
}

func writeMigrations(w io.Writer, format string, lines []migrationLine, empty string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(lines)
	}
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, l := range lines {
		applied := ""
		if l.AppliedAt != nil {
			applied = l.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s%s\n", l.Version, l.Path, l.State, applied, l.Duration)
	}
	return tw.Flush()
}
