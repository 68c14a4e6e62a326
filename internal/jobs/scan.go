package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/models"
)

// ErrFileMissing fails the whole job rather than skipping the file: a file
// that vanished mid-scan usually means the mount dropped, and silently
// skipping would wipe detection state for everything after it.
var ErrFileMissing = errors.New("file missing from disk")

var supportedExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".mov":  true,
	".ts":   true,
	".m2ts": true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
}

func (o *Orchestrator) runScanJob(id uuid.UUID) {
	sess, err := o.sessions(context.Background())
	if err != nil {
		o.log.Errorw("scan worker could not open a session", "job_id", id, "error", err)
		return
	}
	defer sess.Close()

	job, err := sess.ScanJobByID(id)
	if err != nil || job == nil {
		o.log.Errorw("scan worker could not load job", "job_id", id, "error", err)
		return
	}
	if job.Status != models.ScanPending {
		o.log.Infow("scan job no longer pending, not starting", "job_id", id, "status", job.Status)
		return
	}

	now := time.Now().UTC()
	job.Status = models.ScanRunning
	job.StartedAt = &now
	if err := sess.UpdateScanJob(job); err != nil {
		o.log.Errorw("scan job could not transition to running", "job_id", id, "error", err)
		return
	}
	o.log.Infow("scan job started", "job_id", id, "type", job.ScanType)

	var runErr error
	if job.ScanType == models.ScanSingleFile || job.MediaFileID != nil {
		runErr = o.scanSingle(sess, job)
	} else {
		runErr = o.scanTarget(sess, job)
	}

	// Re-read for a cancellation that landed during the run.
	if latest, err := sess.ScanJobByID(id); err == nil && latest != nil {
		latest.TotalFiles = job.TotalFiles
		latest.ProcessedFiles = job.ProcessedFiles
		latest.IssuesFound = job.IssuesFound
		job = latest
	}

	done := time.Now().UTC()
	job.CompletedAt = &done
	switch {
	case runErr != nil:
		msg := truncate(runErr.Error(), 1000)
		job.Status = models.ScanFailed
		job.ErrorMessage = &msg
	case job.Status == models.ScanCancelled:
		// keep the cancelled status, progress counters stand
	default:
		job.Status = models.ScanCompleted
	}
	if err := sess.UpdateScanJob(job); err != nil {
		o.log.Errorw("scan job final update failed", "job_id", id, "error", err)
		return
	}
	o.log.Infow("scan job finished", "job_id", id, "status", job.Status,
		"files", job.ProcessedFiles, "issues", job.IssuesFound)
}

// scanTarget handles full-library, directory and the detector-restricted
// kinds. The target may be a directory or a single supported file.
func (o *Orchestrator) scanTarget(sess Session, job *models.ScanJob) error {
	target := o.cfg.MediaRoot
	if job.TargetPath != nil && *job.TargetPath != "" {
		target = *job.TargetPath
	} else {
		job.TargetPath = &target
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("scan target %s: %w", target, err)
	}

	var files []string
	if info.IsDir() {
		files, err = enumerateVideos(target)
		if err != nil {
			return fmt.Errorf("enumerate %s: %w", target, err)
		}
	} else {
		files = []string{target}
	}

	// The total is fixed once, before processing starts, so progress is
	// monotonic even if files appear during the scan.
	job.TotalFiles = len(files)
	if err := sess.UpdateScanJobProgress(job); err != nil {
		return err
	}
	o.log.Infow("scan enumerated", "job_id", job.ID, "files", len(files), "target", target)

	for i, path := range files {
		if o.jobCancelled(sess, job.ID) {
			job.Status = models.ScanCancelled
			o.log.Infow("scan job cancelled mid-run", "job_id", job.ID, "processed", i)
			return nil
		}
		if err := o.processFile(sess, job, path); err != nil {
			if errors.Is(err, ErrFileMissing) {
				return err
			}
			o.log.Warnw("file scan failed, continuing", "path", path, "error", err)
		}
		job.ProcessedFiles = i + 1
		if err := sess.UpdateScanJobProgress(job); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) scanSingle(sess Session, job *models.ScanJob) error {
	var path string
	switch {
	case job.MediaFileID != nil:
		media, err := sess.MediaByID(*job.MediaFileID)
		if err != nil {
			return err
		}
		if media == nil {
			return fmt.Errorf("media file %s not found", *job.MediaFileID)
		}
		path = media.Path
		if job.TargetPath == nil {
			job.TargetPath = &media.Path
		}
	case job.TargetPath != nil && *job.TargetPath != "":
		path = *job.TargetPath
	default:
		return fmt.Errorf("single file scan has no target")
	}

	job.TotalFiles = 1
	if err := sess.UpdateScanJobProgress(job); err != nil {
		return err
	}
	if err := o.processFile(sess, job, path); err != nil {
		return err
	}
	job.ProcessedFiles = 1
	return sess.UpdateScanJobProgress(job)
}

// processFile is one file's full pipeline: ensure the media row exists and
// is probed, clear stale unresolved issues, run the detectors, record what
// they found.
func (o *Orchestrator) processFile(sess Session, job *models.ScanJob, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	media, err := sess.MediaByPath(path)
	if err != nil {
		return err
	}
	if media == nil {
		media, err = o.createMediaRecord(sess, path)
		if err != nil {
			return err
		}
	}

	if media.DurationSecs == nil || media.Codec == nil {
		o.backfillMediaInfo(sess, media)
	}

	// Fresh scan, fresh unresolved issues. Resolved ones are history and
	// stay put.
	if err := sess.DeleteUnresolvedIssues(media.ID); err != nil {
		return err
	}

	caps := CapabilitiesFor(job.ScanType)
	found := 0
	if caps.RunBumpers {
		n, err := o.recordBumperIssues(sess, media, path)
		if err != nil {
			return err
		}
		found += n
	}
	if caps.RunLogos && o.cfg.Logo.Enabled {
		n, err := o.recordLogoIssues(sess, media, path)
		if err != nil {
			return err
		}
		found += n
	}
	job.IssuesFound += found

	return sess.TouchLastScanned(media.ID, time.Now().UTC())
}

func (o *Orchestrator) recordBumperIssues(sess Session, media *models.MediaFile, path string) (int, error) {
	count := 0
	for _, c := range o.bumper.Analyze(path) {
		desc := fmt.Sprintf("%s bumper - %.1fs (confidence %.0f%%)",
			titleCase(c.Position), c.Duration(), c.Confidence*100)
		issue := &models.Issue{
			ID:           uuid.New(),
			MediaFileID:  media.ID,
			IssueType:    models.IssueBumper,
			StartSeconds: c.Start,
			EndSeconds:   c.End,
			Confidence:   c.Confidence,
			Description:  &desc,
		}
		if thumb := o.captureThumbnail(path, media.ID, c.Position, (c.Start+c.End)/2); thumb != "" {
			issue.ThumbnailPath = &thumb
		}
		detail := models.DetectionDetail{Kind: models.IssueBumper, Bumper: &c.Signals}
		if encoded, err := detail.Encode(); err == nil {
			issue.DetectionData = &encoded
		}
		if err := sess.CreateIssue(issue); err != nil {
			return count, err
		}
		count++
		o.log.Infow("bumper recorded", "path", path, "position", c.Position,
			"span", fmt.Sprintf("%.1f-%.1f", c.Start, c.End), "confidence", c.Confidence)
	}
	return count, nil
}

func (o *Orchestrator) recordLogoIssues(sess Session, media *models.MediaFile, path string) (int, error) {
	count := 0
	for _, c := range o.logo.Analyze(path) {
		end := 0.0
		if media.DurationSecs != nil {
			end = *media.DurationSecs
		}
		desc := fmt.Sprintf("Channel logo in %s corner (%dx%dpx, persistence %.0f%%)",
			c.Position, c.Width, c.Height, c.Persistence*100)
		issue := &models.Issue{
			ID:           uuid.New(),
			MediaFileID:  media.ID,
			IssueType:    models.IssueChannelLogo,
			StartSeconds: 0,
			EndSeconds:   end,
			Confidence:   c.Confidence,
			Description:  &desc,
		}
		detail := models.DetectionDetail{Kind: models.IssueChannelLogo, Logo: &models.LogoRegion{
			Position:    c.Position,
			X:           c.X,
			Y:           c.Y,
			Width:       c.Width,
			Height:      c.Height,
			Persistence: c.Persistence,
		}}
		if encoded, err := detail.Encode(); err == nil {
			issue.DetectionData = &encoded
		}
		if err := sess.CreateIssue(issue); err != nil {
			return count, err
		}
		count++
		o.log.Infow("channel logo recorded", "path", path, "corner", c.Position,
			"size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	return count, nil
}

func (o *Orchestrator) captureThumbnail(path string, mediaID uuid.UUID, position string, timestamp float64) string {
	if o.thumbnail == nil {
		return ""
	}
	dir := filepath.Join(o.cfg.ThumbnailsDir, mediaID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	out := filepath.Join(dir, fmt.Sprintf("bumper_%s.jpg", position))
	if !o.thumbnail(path, timestamp, out, 320) {
		return ""
	}
	return out
}

// jobCancelled re-reads the job row so cancellations from other processes
// are seen, not just in-memory state.
func (o *Orchestrator) jobCancelled(sess Session, id uuid.UUID) bool {
	j, err := sess.ScanJobByID(id)
	if err != nil || j == nil {
		return false
	}
	return j.Status == models.ScanCancelled
}

// enumerateVideos walks the tree in lexical order, skipping hidden
// directories, and returns every supported video file. The ordering is
// stable so repeated scans of the same tree visit files identically.
func enumerateVideos(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
