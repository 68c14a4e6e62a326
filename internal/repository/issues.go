package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/models"
)

const issueColumns = `id, media_file_id, issue_type, start_seconds, end_seconds, confidence,
	description, thumbnail_path, detection_data, resolved, resolved_at, resolution_method, created_at`

func scanIssue(row interface{ Scan(...any) error }) (*models.Issue, error) {
	i := &models.Issue{}
	err := row.Scan(&i.ID, &i.MediaFileID, &i.IssueType, &i.StartSeconds, &i.EndSeconds,
		&i.Confidence, &i.Description, &i.ThumbnailPath, &i.DetectionData,
		&i.Resolved, &i.ResolvedAt, &i.ResolutionMethod, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Session) CreateIssue(i *models.Issue) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	query := `INSERT INTO media_issues (id, media_file_id, issue_type, start_seconds, end_seconds,
		confidence, description, thumbnail_path, detection_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`
	return s.conn.QueryRowContext(s.ctx, query, i.ID, i.MediaFileID, i.IssueType,
		i.StartSeconds, i.EndSeconds, i.Confidence, i.Description,
		i.ThumbnailPath, i.DetectionData).Scan(&i.CreatedAt)
}

func (s *Session) IssueByID(id uuid.UUID) (*models.Issue, error) {
	row := s.conn.QueryRowContext(s.ctx,
		`SELECT `+issueColumns+` FROM media_issues WHERE id = $1`, id)
	i, err := scanIssue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return i, err
}

func (s *Session) IssuesForMedia(mediaFileID uuid.UUID) ([]*models.Issue, error) {
	rows, err := s.conn.QueryContext(s.ctx,
		`SELECT `+issueColumns+` FROM media_issues
		 WHERE media_file_id = $1 ORDER BY start_seconds`, mediaFileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []*models.Issue
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// DeleteUnresolvedIssues clears prior detections for a file so a re-scan
// starts from a clean slate. Resolved (user-actioned) issues are preserved.
func (s *Session) DeleteUnresolvedIssues(mediaFileID uuid.UUID) error {
	_, err := s.conn.ExecContext(s.ctx,
		`DELETE FROM media_issues WHERE media_file_id = $1 AND resolved = FALSE`, mediaFileID)
	return err
}

func (s *Session) ResolveIssue(id uuid.UUID, method string) error {
	res, err := s.conn.ExecContext(s.ctx,
		`UPDATE media_issues SET resolved = TRUE, resolved_at = $1, resolution_method = $2
		 WHERE id = $3`, time.Now().UTC(), method, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("issue %s not found", id)
	}
	return nil
}
