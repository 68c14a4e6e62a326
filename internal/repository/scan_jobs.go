package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/models"
)

const scanJobColumns = `id, scan_type, status, media_file_id, target_path, total_files,
	processed_files, issues_found, created_at, started_at, completed_at, error_message`

func scanScanJob(row interface{ Scan(...any) error }) (*models.ScanJob, error) {
	j := &models.ScanJob{}
	err := row.Scan(&j.ID, &j.ScanType, &j.Status, &j.MediaFileID, &j.TargetPath,
		&j.TotalFiles, &j.ProcessedFiles, &j.IssuesFound,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Session) CreateScanJob(j *models.ScanJob) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = models.ScanPending
	}
	query := `INSERT INTO scan_jobs (id, scan_type, status, media_file_id, target_path)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	return s.conn.QueryRowContext(s.ctx, query, j.ID, j.ScanType, j.Status,
		j.MediaFileID, j.TargetPath).Scan(&j.CreatedAt)
}

// ScanJobByID re-reads the persisted job row. Cancellation checks go through
// this so external status flips are observed.
func (s *Session) ScanJobByID(id uuid.UUID) (*models.ScanJob, error) {
	row := s.conn.QueryRowContext(s.ctx,
		`SELECT `+scanJobColumns+` FROM scan_jobs WHERE id = $1`, id)
	j, err := scanScanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func (s *Session) UpdateScanJob(j *models.ScanJob) error {
	_, err := s.conn.ExecContext(s.ctx,
		`UPDATE scan_jobs SET status = $1, target_path = $2, total_files = $3,
			processed_files = $4, issues_found = $5, started_at = $6,
			completed_at = $7, error_message = $8
		 WHERE id = $9`,
		j.Status, j.TargetPath, j.TotalFiles, j.ProcessedFiles, j.IssuesFound,
		j.StartedAt, j.CompletedAt, j.ErrorMessage, j.ID)
	return err
}

// UpdateScanJobProgress writes the counters without touching status, so a
// cancellation committed by another connection while a file was being
// processed is never reverted by the worker's progress write.
func (s *Session) UpdateScanJobProgress(j *models.ScanJob) error {
	_, err := s.conn.ExecContext(s.ctx,
		`UPDATE scan_jobs SET target_path = $1, total_files = $2,
			processed_files = $3, issues_found = $4
		 WHERE id = $5`,
		j.TargetPath, j.TotalFiles, j.ProcessedFiles, j.IssuesFound, j.ID)
	return err
}

// CancelScanJob flips a pending or running job to cancelled. Returns false
// when the job is unknown or already terminal.
func (s *Session) CancelScanJob(id uuid.UUID) (bool, error) {
	res, err := s.conn.ExecContext(s.ctx,
		`UPDATE scan_jobs SET status = $1 WHERE id = $2 AND status IN ($3, $4)`,
		models.ScanCancelled, id, models.ScanPending, models.ScanRunning)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Session) RecentScanJobs(limit int) ([]*models.ScanJob, error) {
	rows, err := s.conn.QueryContext(s.ctx,
		`SELECT `+scanJobColumns+` FROM scan_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ScanJob
	for rows.Next() {
		j, err := scanScanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
