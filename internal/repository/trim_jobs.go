package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/models"
)

const trimJobColumns = `id, media_file_id, issue_id, status, remove_start, remove_end,
	original_duration, backup_path, created_at, started_at, completed_at, error_message`

func scanTrimJob(row interface{ Scan(...any) error }) (*models.TrimJob, error) {
	j := &models.TrimJob{}
	err := row.Scan(&j.ID, &j.MediaFileID, &j.IssueID, &j.Status, &j.RemoveStart,
		&j.RemoveEnd, &j.OriginalDuration, &j.BackupPath,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.ErrorMessage)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Session) CreateTrimJob(j *models.TrimJob) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = models.TrimPending
	}
	query := `INSERT INTO trim_jobs (id, media_file_id, issue_id, status, remove_start,
		remove_end, original_duration)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`
	return s.conn.QueryRowContext(s.ctx, query, j.ID, j.MediaFileID, j.IssueID,
		j.Status, j.RemoveStart, j.RemoveEnd, j.OriginalDuration).Scan(&j.CreatedAt)
}

func (s *Session) TrimJobByID(id uuid.UUID) (*models.TrimJob, error) {
	row := s.conn.QueryRowContext(s.ctx,
		`SELECT `+trimJobColumns+` FROM trim_jobs WHERE id = $1`, id)
	j, err := scanTrimJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

func (s *Session) UpdateTrimJob(j *models.TrimJob) error {
	_, err := s.conn.ExecContext(s.ctx,
		`UPDATE trim_jobs SET status = $1, backup_path = $2, started_at = $3,
			completed_at = $4, error_message = $5
		 WHERE id = $6`,
		j.Status, j.BackupPath, j.StartedAt, j.CompletedAt, j.ErrorMessage, j.ID)
	return err
}

func (s *Session) TrimJobsForMedia(mediaFileID uuid.UUID, limit int) ([]*models.TrimJob, error) {
	rows, err := s.conn.QueryContext(s.ctx,
		`SELECT `+trimJobColumns+` FROM trim_jobs
		 WHERE media_file_id = $1 ORDER BY created_at DESC LIMIT $2`, mediaFileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.TrimJob
	for rows.Next() {
		j, err := scanTrimJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
