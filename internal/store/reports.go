package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sitewerk/sitesync/internal/record"
)

// UpsertReport inserts or updates a report, preserving the record's
// lastUpdated exactly as given. This is the adoption path used by the
// merge engine: a remote winner keeps its remote timestamp.
func (s *Store) UpsertReport(r *record.Report) error {
	return s.UpsertReportContext(context.Background(), r)
}

// UpsertReportContext inserts or updates a report with context support.
func (s *Store) UpsertReportContext(ctx context.Context, r *record.Report) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}

	distJSON, err := json.Marshal(r.Distribution)
	if err != nil {
		return fmt.Errorf("failed to marshal distribution list: %w", err)
	}
	devJSON, err := json.Marshal(r.Deviations)
	if err != nil {
		return fmt.Errorf("failed to marshal deviations: %w", err)
	}

	query := `
	INSERT INTO reports (
		id, project_name, project_number, report_number,
		visit_date, visit_time, location, author, inspector,
		distribution, deviations, status, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		project_name = excluded.project_name,
		project_number = excluded.project_number,
		report_number = excluded.report_number,
		visit_date = excluded.visit_date,
		visit_time = excluded.visit_time,
		location = excluded.location,
		author = excluded.author,
		inspector = excluded.inspector,
		distribution = excluded.distribution,
		deviations = excluded.deviations,
		status = excluded.status,
		updated_at = excluded.updated_at
	`

	_, err = s.conn.ExecContext(ctx, query,
		r.ID,
		r.ProjectName,
		r.ProjectNumber,
		r.ReportNumber,
		r.VisitDate,
		r.VisitTime,
		r.Location,
		r.Author,
		r.Inspector,
		string(distJSON),
		string(devJSON),
		string(r.Status),
		r.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert report %s: %w", r.ID, err)
	}
	return nil
}

// SaveReport refreshes the report's lastUpdated and upserts it. This is
// the local mutation path: every edit from the application goes through
// here so the timestamp always reflects the write.
func (s *Store) SaveReport(r *record.Report) error {
	return s.SaveReportContext(context.Background(), r)
}

// SaveReportContext refreshes lastUpdated and upserts with context support.
func (s *Store) SaveReportContext(ctx context.Context, r *record.Report) error {
	r.Touch()
	return s.UpsertReportContext(ctx, r)
}

// GetReport retrieves a single report by id.
// Returns ErrNotFound if no report has that id.
func (s *Store) GetReport(id string) (*record.Report, error) {
	return s.GetReportContext(context.Background(), id)
}

// GetReportContext retrieves a report by id with context support.
func (s *Store) GetReportContext(ctx context.Context, id string) (*record.Report, error) {
	row := s.conn.QueryRowContext(ctx, `
	SELECT id, project_name, project_number, report_number,
	       visit_date, visit_time, location, author, inspector,
	       distribution, deviations, status, updated_at
	FROM reports WHERE id = ?`, id)

	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}
	return r, nil
}

// ListReports returns every report in the store, most recently updated
// first. An empty store yields an empty slice, not an error.
func (s *Store) ListReports() ([]*record.Report, error) {
	return s.ListReportsContext(context.Background())
}

// ListReportsContext returns every report with context support.
func (s *Store) ListReportsContext(ctx context.Context) ([]*record.Report, error) {
	rows, err := s.conn.QueryContext(ctx, `
	SELECT id, project_name, project_number, report_number,
	       visit_date, visit_time, location, author, inspector,
	       distribution, deviations, status, updated_at
	FROM reports ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*record.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}
	return reports, nil
}

// DeleteReport removes the report if present. Deleting an absent id is
// a no-op success. The remote copy, if any, is untouched.
func (s *Store) DeleteReport(id string) error {
	return s.DeleteReportContext(context.Background(), id)
}

// DeleteReportContext removes a report with context support.
func (s *Store) DeleteReportContext(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	return nil
}

// ReportCount returns the number of reports in the store.
func (s *Store) ReportCount() (int, error) {
	return s.ReportCountContext(context.Background())
}

// ReportCountContext returns the report count with context support.
func (s *Store) ReportCountContext(ctx context.Context) (int, error) {
	var count int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (*record.Report, error) {
	var r record.Report
	var projectNumber, reportNumber, visitDate, visitTime sql.NullString
	var location, author, inspector, distJSON, devJSON sql.NullString
	var status string

	err := sc.Scan(
		&r.ID,
		&r.ProjectName,
		&projectNumber,
		&reportNumber,
		&visitDate,
		&visitTime,
		&location,
		&author,
		&inspector,
		&distJSON,
		&devJSON,
		&status,
		&r.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	r.ProjectNumber = projectNumber.String
	r.ReportNumber = reportNumber.String
	r.VisitDate = visitDate.String
	r.VisitTime = visitTime.String
	r.Location = location.String
	r.Author = author.String
	r.Inspector = inspector.String
	r.Status = record.ReportStatus(status)

	if distJSON.Valid && distJSON.String != "" && distJSON.String != "null" {
		if err := json.Unmarshal([]byte(distJSON.String), &r.Distribution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal distribution list: %w", err)
		}
	}
	if devJSON.Valid && devJSON.String != "" && devJSON.String != "null" {
		if err := json.Unmarshal([]byte(devJSON.String), &r.Deviations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal deviations: %w", err)
		}
	}

	return &r, nil
}
