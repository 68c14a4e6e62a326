package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/models"
)

const mediaColumns = `id, path, title, media_type, series_title, season_number, episode_number,
	duration_seconds, file_size_bytes, resolution, codec, container, last_scanned, added_at`

func scanMedia(row interface{ Scan(...any) error }) (*models.MediaFile, error) {
	m := &models.MediaFile{}
	err := row.Scan(&m.ID, &m.Path, &m.Title, &m.MediaType, &m.SeriesTitle,
		&m.SeasonNumber, &m.EpisodeNumber, &m.DurationSecs, &m.FileSizeBytes,
		&m.Resolution, &m.Codec, &m.Container, &m.LastScanned, &m.AddedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// MediaByPath returns the media record for a path, or nil if none exists.
func (s *Session) MediaByPath(path string) (*models.MediaFile, error) {
	row := s.conn.QueryRowContext(s.ctx,
		`SELECT `+mediaColumns+` FROM media_files WHERE path = $1`, path)
	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Session) MediaByID(id uuid.UUID) (*models.MediaFile, error) {
	row := s.conn.QueryRowContext(s.ctx,
		`SELECT `+mediaColumns+` FROM media_files WHERE id = $1`, id)
	m, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Session) CreateMedia(m *models.MediaFile) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `INSERT INTO media_files (id, path, title, media_type, series_title, season_number,
		episode_number, duration_seconds, file_size_bytes, resolution, codec, container)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING added_at`
	return s.conn.QueryRowContext(s.ctx, query, m.ID, m.Path, m.Title, m.MediaType,
		m.SeriesTitle, m.SeasonNumber, m.EpisodeNumber, m.DurationSecs,
		m.FileSizeBytes, m.Resolution, m.Codec, m.Container).Scan(&m.AddedAt)
}

// UpdateMediaProbe persists probe-derived facts after a backfill.
func (s *Session) UpdateMediaProbe(m *models.MediaFile) error {
	_, err := s.conn.ExecContext(s.ctx,
		`UPDATE media_files SET duration_seconds = $1, file_size_bytes = $2,
			resolution = $3, codec = $4, container = $5
		 WHERE id = $6`,
		m.DurationSecs, m.FileSizeBytes, m.Resolution, m.Codec, m.Container, m.ID)
	return err
}

func (s *Session) UpdateMediaDuration(id uuid.UUID, seconds float64) error {
	_, err := s.conn.ExecContext(s.ctx,
		`UPDATE media_files SET duration_seconds = $1 WHERE id = $2`, seconds, id)
	return err
}

func (s *Session) TouchLastScanned(id uuid.UUID, at time.Time) error {
	_, err := s.conn.ExecContext(s.ctx,
		`UPDATE media_files SET last_scanned = $1 WHERE id = $2`, at, id)
	return err
}
