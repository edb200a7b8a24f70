package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/michalkw/traffic-status-service/internal/db"
	"github.com/michalkw/traffic-status-service/internal/traffic"
)

// Repository handles database operations over the append-only report store
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertTrafficReport appends a traffic report row and fills in its ID
func (r *Repository) InsertTrafficReport(ctx context.Context, report *db.TrafficReport) error {
	query := `
		INSERT INTO traffic_reports (street, direction, status, fingerprint, speed_kmh, reported_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		string(report.Street),
		string(report.Direction),
		string(report.Status),
		report.Fingerprint,
		report.SpeedKmh,
		report.ReportedAt,
	).Scan(&report.ID)

	if err != nil {
		return fmt.Errorf("failed to insert traffic report: %w", err)
	}

	return nil
}

// InsertIncidentReport appends an incident report row and fills in its ID
func (r *Repository) InsertIncidentReport(ctx context.Context, report *db.IncidentReport) error {
	query := `
		INSERT INTO incident_reports (street, direction, incident_type, fingerprint, reported_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		string(report.Street),
		string(report.Direction),
		string(report.IncidentType),
		report.Fingerprint,
		report.ReportedAt,
	).Scan(&report.ID)

	if err != nil {
		return fmt.Errorf("failed to insert incident report: %w", err)
	}

	return nil
}

// HasRecentDuplicate reports whether an identical traffic report (same
// fingerprint, street, direction and status) was written at or after since.
func (r *Repository) HasRecentDuplicate(
	ctx context.Context,
	fingerprint string,
	street traffic.Street,
	direction traffic.Direction,
	status traffic.Status,
	since time.Time,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM traffic_reports
			WHERE fingerprint = $1 AND street = $2 AND direction = $3
			  AND status = $4 AND reported_at >= $5
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query,
		fingerprint,
		string(street),
		string(direction),
		string(status),
		since,
	).Scan(&exists)

	if err != nil {
		return false, fmt.Errorf("failed to check for duplicate report: %w", err)
	}

	return exists, nil
}

// ReportsBetween returns all traffic reports for a street and direction with
// reported_at in the half-open window [from, to), ordered by reported_at.
func (r *Repository) ReportsBetween(
	ctx context.Context,
	street traffic.Street,
	direction traffic.Direction,
	from, to time.Time,
) ([]db.TrafficReport, error) {
	query := `
		SELECT id, street, direction, status, fingerprint, speed_kmh, reported_at
		FROM traffic_reports
		WHERE street = $1 AND direction = $2
		  AND reported_at >= $3 AND reported_at < $4
		ORDER BY reported_at
	`

	rows, err := r.pool.Query(ctx, query, string(street), string(direction), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []db.TrafficReport
	for rows.Next() {
		var report db.TrafficReport
		if err := rows.Scan(
			&report.ID,
			&report.Street,
			&report.Direction,
			&report.Status,
			&report.Fingerprint,
			&report.SpeedKmh,
			&report.ReportedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return reports, nil
}
