package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/ritlog/internal/domain"
)

// reportCSVHeaders defines the column names written as the first row of a CSV report.
var reportCSVHeaders = []string{
	"date", "time", "purpose", "start_address", "end_address",
	"start_odometer_km", "end_odometer_km", "distance_km", "calculated", "notes",
}

// ReportRow is one trip line of a report.
type ReportRow struct {
	TripID          uuid.UUID      `json:"trip_id"`
	Date            string         `json:"date"`
	Time            string         `json:"time"`
	Purpose         domain.Purpose `json:"purpose"`
	StartAddress    string         `json:"start_address,omitempty"`
	EndAddress      string         `json:"end_address,omitempty"`
	StartOdometerKm float64        `json:"start_odometer_km"`
	EndOdometerKm   *float64       `json:"end_odometer_km,omitempty"`
	DistanceKm      *float64       `json:"distance_km,omitempty"`
	Calculated      bool           `json:"calculated"`
	Notes           string         `json:"notes,omitempty"`
}

// ReportTotals is the summary block of a report.
type ReportTotals struct {
	BusinessKm           float64 `json:"business_km"`
	PrivateKm            float64 `json:"private_km"`
	CommuteKm            float64 `json:"commute_km"`
	TotalKm              float64 `json:"total_km"`
	Trips                int     `json:"trips"`
	IncompleteTrips      int     `json:"incomplete_trips"`
	CalculatedTrips      int     `json:"calculated_trips"`
	PrivateLimitExceeded bool    `json:"private_limit_exceeded"`
}

// Report is the body of GET /vehicles/{id}/report.
type Report struct {
	Vehicle Vehicle            `json:"vehicle"`
	From    openapi_types.Date `json:"from"`
	To      openapi_types.Date `json:"to"`
	Rows    []ReportRow        `json:"rows"`
	Totals  ReportTotals       `json:"totals"`
}

// GetReport handles GET /vehicles/{vehicleID}/report?from=&to=&format=.
// from and to are inclusive calendar dates in the report time zone.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathUUID(r, "vehicleID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var (
		from, to openapi_types.Date
		format   *string
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "from", q, &from); err != nil {
		badRequest(w, "from must be a date (YYYY-MM-DD)")
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "to", q, &to); err != nil {
		badRequest(w, "to must be a date (YYYY-MM-DD)")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "format", q, &format); err != nil {
		badRequest(w, "invalid format")
		return
	}
	wantCSV := format != nil && *format == "csv"
	if format != nil && !wantCSV && *format != "json" {
		badRequest(w, "format must be csv or json")
		return
	}

	loc := s.reports.Location()
	start := startOfDay(from.Time, loc)
	end := startOfDay(to.Time, loc).AddDate(0, 0, 1)

	report, err := s.reports.Generate(r.Context(), vehicleID, userID(r), start, end)
	if err != nil {
		serviceError(w, r, err, "vehicle not found")
		return
	}

	if wantCSV {
		body := reportCSV(report.Rows)
		filename := fmt.Sprintf("ritlog-%s-%s-%s.csv", report.Vehicle.LicensePlate, from.String(), to.String())
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(report, from, to))
}

// startOfDay returns midnight of d's calendar date in loc.
func startOfDay(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// reportCSV encodes report rows as CSV, header first.
// Missing odometer and distance values become empty cells.
func reportCSV(rows []domain.ReportRow) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// bytes.Buffer.Write never returns an error.
	_ = w.Write(reportCSVHeaders)
	for _, row := range rows {
		_ = w.Write([]string{
			row.Date,
			row.Time,
			string(row.Purpose),
			row.StartAddress,
			row.EndAddress,
			formatKm(&row.StartOdometerKm),
			formatKm(row.EndOdometerKm),
			formatKm(row.DistanceKm),
			strconv.FormatBool(row.Calculated),
			row.Notes,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func formatKm(km *float64) string {
	if km == nil {
		return ""
	}
	return strconv.FormatFloat(*km, 'f', -1, 64)
}

func reportToResponse(rep domain.Report, from, to openapi_types.Date) Report {
	rows := make([]ReportRow, len(rep.Rows))
	for i, row := range rep.Rows {
		rows[i] = ReportRow{
			TripID:          row.TripID,
			Date:            row.Date,
			Time:            row.Time,
			Purpose:         row.Purpose,
			StartAddress:    row.StartAddress,
			EndAddress:      row.EndAddress,
			StartOdometerKm: row.StartOdometerKm,
			EndOdometerKm:   row.EndOdometerKm,
			DistanceKm:      row.DistanceKm,
			Calculated:      row.Calculated,
			Notes:           row.Notes,
		}
	}
	t := rep.Totals
	return Report{
		Vehicle: vehicleToResponse(rep.Vehicle),
		From:    from,
		To:      to,
		Rows:    rows,
		Totals: ReportTotals{
			BusinessKm:           t.BusinessKm,
			PrivateKm:            t.PrivateKm,
			CommuteKm:            t.CommuteKm,
			TotalKm:              t.TotalKm,
			Trips:                t.Trips,
			IncompleteTrips:      t.IncompleteTrips,
			CalculatedTrips:      t.CalculatedTrips,
			PrivateLimitExceeded: t.PrivateLimitExceeded,
		},
	}
}
