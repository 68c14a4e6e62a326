package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
)

type IssueType string

const (
	IssueBumper      IssueType = "bumper"
	IssueChannelLogo IssueType = "channel_logo"
	IssueCommercial  IssueType = "commercial"
)

type ScanStatus string

const (
	ScanPending   ScanStatus = "pending"
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
	ScanCancelled ScanStatus = "cancelled"
)

type ScanType string

const (
	ScanFullLibrary ScanType = "full_library"
	ScanDirectory   ScanType = "directory"
	ScanSingleFile  ScanType = "single_file"
	ScanBumperOnly  ScanType = "bumper_only"
	ScanLogoOnly    ScanType = "logo_only"
)

type TrimStatus string

const (
	TrimPending   TrimStatus = "pending"
	TrimRunning   TrimStatus = "running"
	TrimCompleted TrimStatus = "completed"
	TrimFailed    TrimStatus = "failed"
)

// Resolution methods recorded on a resolved issue.
const (
	ResolutionRemoved = "removed"
	ResolutionIgnored = "ignored"
)

// ──────────────────── Media Files ────────────────────

type MediaFile struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Path          string     `json:"path" db:"path"`
	Title         string     `json:"title" db:"title"`
	MediaType     MediaType  `json:"media_type" db:"media_type"`
	SeriesTitle   *string    `json:"series_title,omitempty" db:"series_title"`
	SeasonNumber  *int       `json:"season_number,omitempty" db:"season_number"`
	EpisodeNumber *int       `json:"episode_number,omitempty" db:"episode_number"`
	DurationSecs  *float64   `json:"duration_seconds,omitempty" db:"duration_seconds"`
	FileSizeBytes *int64     `json:"file_size_bytes,omitempty" db:"file_size_bytes"`
	Resolution    *string    `json:"resolution,omitempty" db:"resolution"`
	Codec         *string    `json:"codec,omitempty" db:"codec"`
	Container     *string    `json:"container,omitempty" db:"container"`
	LastScanned   *time.Time `json:"last_scanned,omitempty" db:"last_scanned"`
	AddedAt       time.Time  `json:"added_at" db:"added_at"`
}

// ──────────────────── Issues ────────────────────

// Issue is one detected defect in a media file: a bumper span or a
// burned-in channel logo. Resolved issues survive re-scans.
type Issue struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	MediaFileID      uuid.UUID  `json:"media_file_id" db:"media_file_id"`
	IssueType        IssueType  `json:"issue_type" db:"issue_type"`
	StartSeconds     float64    `json:"start_seconds" db:"start_seconds"`
	EndSeconds       float64    `json:"end_seconds" db:"end_seconds"`
	Confidence       float64    `json:"confidence" db:"confidence"`
	Description      *string    `json:"description,omitempty" db:"description"`
	ThumbnailPath    *string    `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	DetectionData    *string    `json:"detection_data,omitempty" db:"detection_data"`
	Resolved         bool       `json:"resolved" db:"resolved"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolutionMethod *string    `json:"resolution_method,omitempty" db:"resolution_method"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

func (i *Issue) Duration() float64 {
	return i.EndSeconds - i.StartSeconds
}

// ──────────────────── Scan Jobs ────────────────────

type ScanJob struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ScanType       ScanType   `json:"scan_type" db:"scan_type"`
	Status         ScanStatus `json:"status" db:"status"`
	MediaFileID    *uuid.UUID `json:"media_file_id,omitempty" db:"media_file_id"`
	TargetPath     *string    `json:"target_path,omitempty" db:"target_path"`
	TotalFiles     int        `json:"total_files" db:"total_files"`
	ProcessedFiles int        `json:"processed_files" db:"processed_files"`
	IssuesFound    int        `json:"issues_found" db:"issues_found"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage   *string    `json:"error_message,omitempty" db:"error_message"`
}

func (j *ScanJob) ProgressPct() float64 {
	if j.TotalFiles == 0 {
		return 0
	}
	return float64(j.ProcessedFiles) / float64(j.TotalFiles) * 100
}

// ──────────────────── Trim Jobs ────────────────────

type TrimJob struct {
	ID          uuid.UUID `json:"id" db:"id"`
	MediaFileID uuid.UUID `json:"media_file_id" db:"media_file_id"`
	// Optional: when the trim was started from an issue, resolve it on success.
	IssueID     *uuid.UUID `json:"issue_id,omitempty" db:"issue_id"`
	Status      TrimStatus `json:"status" db:"status"`
	RemoveStart float64    `json:"remove_start" db:"remove_start"`
	RemoveEnd   float64    `json:"remove_end" db:"remove_end"`
	// Duration snapshot taken at job creation so the removal math stays
	// correct even if the media row is re-probed later.
	OriginalDuration *float64   `json:"original_duration,omitempty" db:"original_duration"`
	BackupPath       *string    `json:"backup_path,omitempty" db:"backup_path"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ErrorMessage     *string    `json:"error_message,omitempty" db:"error_message"`
}

func (j *TrimJob) RemoveDuration() float64 {
	return j.RemoveEnd - j.RemoveStart
}
