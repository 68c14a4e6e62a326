package jobs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/models"
)

const (
	backupSuffix = ".bak"
	tmpSuffix    = ".rectifierr_tmp"
)

func (o *Orchestrator) runTrimJob(id uuid.UUID) {
	sess, err := o.sessions(context.Background())
	if err != nil {
		o.log.Errorw("trim worker could not open a session", "job_id", id, "error", err)
		return
	}
	defer sess.Close()

	job, err := sess.TrimJobByID(id)
	if err != nil || job == nil {
		o.log.Errorw("trim worker could not load job", "job_id", id, "error", err)
		return
	}

	now := time.Now().UTC()
	job.Status = models.TrimRunning
	job.StartedAt = &now
	if err := sess.UpdateTrimJob(job); err != nil {
		o.log.Errorw("trim job could not transition to running", "job_id", id, "error", err)
		return
	}

	if err := o.executeTrim(sess, job); err != nil {
		done := time.Now().UTC()
		msg := truncate(err.Error(), 1000)
		job.Status = models.TrimFailed
		job.ErrorMessage = &msg
		job.CompletedAt = &done
		if uerr := sess.UpdateTrimJob(job); uerr != nil {
			o.log.Errorw("trim job failure update failed", "job_id", id, "error", uerr)
		}
		o.log.Errorw("trim job failed, original file untouched", "job_id", id, "error", err)
		return
	}

	done := time.Now().UTC()
	job.CompletedAt = &done
	job.Status = models.TrimCompleted
	if err := sess.UpdateTrimJob(job); err != nil {
		o.log.Errorw("trim job completion update failed", "job_id", id, "error", err)
		return
	}
	o.log.Infow("trim job completed", "job_id", id,
		"removed_seconds", job.RemoveDuration())
}

// executeTrim is the destructive part of the pipeline, ordered so every
// failure before the final rename leaves the original file untouched and a
// backup exists before any write to the original's path.
func (o *Orchestrator) executeTrim(sess Session, job *models.TrimJob) error {
	media, err := sess.MediaByID(job.MediaFileID)
	if err != nil {
		return err
	}
	if media == nil {
		return fmt.Errorf("media file %s not found", job.MediaFileID)
	}
	path := media.Path
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("source file: %w", err)
	}

	total := 0.0
	switch {
	case job.OriginalDuration != nil:
		total = *job.OriginalDuration
	case media.DurationSecs != nil:
		total = *media.DurationSecs
	}
	if total <= 0 {
		return fmt.Errorf("media duration unknown for %s", path)
	}

	// The backup path is persisted before the cut so a crash between the
	// copy and the rename still leaves a recorded way back.
	backup := path + backupSuffix
	if err := copyFile(path, backup); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	job.BackupPath = &backup
	if err := sess.UpdateTrimJob(job); err != nil {
		return fmt.Errorf("record backup path: %w", err)
	}

	tmp := path + tmpSuffix
	defer os.Remove(tmp)

	if err := o.removeSegment(path, tmp, job.RemoveStart, job.RemoveEnd, total); err != nil {
		return fmt.Errorf("segment removal: %w", err)
	}
	info, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("segment removal produced no output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("segment removal produced an empty file")
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace original: %w", err)
	}

	newDuration := total - job.RemoveDuration()
	if newDuration < 0 {
		newDuration = 0
	}
	if err := sess.UpdateMediaDuration(media.ID, newDuration); err != nil {
		return fmt.Errorf("update duration: %w", err)
	}

	if job.IssueID != nil {
		if err := sess.ResolveIssue(*job.IssueID, models.ResolutionRemoved); err != nil {
			o.log.Warnw("trim succeeded but linked issue not resolved",
				"issue_id", *job.IssueID, "error", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
