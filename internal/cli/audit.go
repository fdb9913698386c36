package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pkordes/ritlog/internal/odometer"
	"github.com/pkordes/ritlog/internal/repo"
	"github.com/pkordes/ritlog/internal/service"
)

// ErrFindings is returned by the audit command when the history has
// violations, so scripts can tell a dirty history from a failed run.
var ErrFindings = errors.New("audit found chronology violations")

// AuditFinding is the JSON shape of one finding.
type AuditFinding struct {
	TripID     uuid.UUID      `json:"trip_id"`
	Timestamp  time.Time      `json:"timestamp"`
	StartKm    float64        `json:"start_odometer_km"`
	EndKm      *float64       `json:"end_odometer_km,omitempty"`
	Calculated bool           `json:"calculated"`
	Problems   []AuditProblem `json:"problems"`
}

// AuditProblem is one violation of a finding.
type AuditProblem struct {
	Against string        `json:"against"` // "trips" | "meterstand"
	Kind    odometer.Kind `json:"kind"`
	Message string        `json:"message"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(opts *RootOptions) *cobra.Command {
	var vehicle string
	cmd := &cobra.Command{
		Use:   "audit --vehicle <uuid>",
		Short: "Re-check a vehicle's trip history for chronology violations",
		Long: `Re-run the odometer chronology rules over every stored trip of a vehicle
and list each violation, instead of stopping at the first one.

Exits non-zero when violations are found.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vehicleID, err := uuid.Parse(vehicle)
			if err != nil {
				return fmt.Errorf("invalid --vehicle %q: %w", vehicle, err)
			}
			if err := requireDatabaseURL(opts); err != nil {
				return err
			}
			auditor, closeFn, err := opts.OpenAuditor(cmd.Context(), opts.DatabaseURL)
			if err != nil {
				return err
			}
			defer closeFn()

			findings, err := auditor.Audit(cmd.Context(), vehicleID)
			if err != nil {
				return err
			}
			if err := writeFindings(cmd.OutOrStdout(), opts.Format, findings); err != nil {
				return err
			}
			if len(findings) > 0 {
				return ErrFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "vehicle ID")
	_ = cmd.MarkFlagRequired("vehicle")
	return cmd
}

func openAuditor(ctx context.Context, dsn string) (Auditor, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return service.NewAuditService(repo.NewTripRepo(pool), repo.NewReadingRepo(pool)), pool.Close, nil
}

func toAuditFindings(findings []service.Finding) []AuditFinding {
	out := make([]AuditFinding, 0, len(findings))
	for _, f := range findings {
		af := AuditFinding{
			TripID:     f.Trip.ID,
			Timestamp:  f.Trip.Timestamp,
			StartKm:    f.Trip.StartOdometerKm,
			EndKm:      f.Trip.EndOdometerKm,
			Calculated: f.Trip.OdometerCalculated,
		}
		for _, ce := range f.Trips {
			af.Problems = append(af.Problems, AuditProblem{Against: "trips", Kind: ce.Kind, Message: ce.Message()})
		}
		for _, ce := range f.Meterstand {
			af.Problems = append(af.Problems, AuditProblem{Against: "meterstand", Kind: ce.Kind, Message: ce.Message()})
		}
		out = append(out, af)
	}
	return out
}

func writeFindings(w io.Writer, format string, findings []service.Finding) error {
	out := toAuditFindings(findings)
	if format == "json" {
		return json.NewEncoder(w).Encode(out)
	}
	if len(out) == 0 {
		_, err := fmt.Fprintln(w, "no chronology violations")
		return err
	}
	for _, f := range out {
		fmt.Fprintf(w, "trip %s at %s (start %s km)\n", f.TripID, f.Timestamp.UTC().Format(time.RFC3339), odometer.FormatKm(f.StartKm))
		for _, p := range f.Problems {
			fmt.Fprintf(w, "  - [%s] %s\n", p.Against, p.Message)
		}
	}
	_, err := fmt.Fprintf(w, "%d trip(s) with violations\n", len(out))
	return err
}
