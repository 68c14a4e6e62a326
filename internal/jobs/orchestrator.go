// Package jobs owns the scan and trim lifecycles: job rows in the database,
// background workers that drive the detectors and the trimmer, duplicate
// dispatch protection, and cooperative cancellation.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/benw5483/rectifierr/internal/config"
	"github.com/benw5483/rectifierr/internal/detection"
	"github.com/benw5483/rectifierr/internal/ffmpeg"
	"github.com/benw5483/rectifierr/internal/models"
)

// Session is the slice of the repository a job worker needs. Each worker
// acquires its own session so concurrent jobs never share a connection.
type Session interface {
	MediaByPath(path string) (*models.MediaFile, error)
	MediaByID(id uuid.UUID) (*models.MediaFile, error)
	CreateMedia(m *models.MediaFile) error
	UpdateMediaProbe(m *models.MediaFile) error
	UpdateMediaDuration(id uuid.UUID, seconds float64) error
	TouchLastScanned(id uuid.UUID, at time.Time) error

	CreateIssue(i *models.Issue) error
	DeleteUnresolvedIssues(mediaFileID uuid.UUID) error
	ResolveIssue(id uuid.UUID, method string) error

	CreateScanJob(j *models.ScanJob) error
	ScanJobByID(id uuid.UUID) (*models.ScanJob, error)
	UpdateScanJob(j *models.ScanJob) error
	UpdateScanJobProgress(j *models.ScanJob) error
	CancelScanJob(id uuid.UUID) (bool, error)
	RecentScanJobs(limit int) ([]*models.ScanJob, error)

	CreateTrimJob(j *models.TrimJob) error
	TrimJobByID(id uuid.UUID) (*models.TrimJob, error)
	UpdateTrimJob(j *models.TrimJob) error

	Close() error
}

// SessionFactory hands each worker a fresh database session.
type SessionFactory func(ctx context.Context) (Session, error)

// BumperAnalyzer and LogoAnalyzer are what the orchestrator needs from the
// detection package.
type BumperAnalyzer interface {
	Analyze(path string) []detection.BumperCandidate
}

type LogoAnalyzer interface {
	Analyze(path string) []detection.LogoCandidate
}

// Orchestrator creates jobs, dispatches workers and answers status queries.
type Orchestrator struct {
	sessions SessionFactory
	cfg      *config.Config
	log      *zap.SugaredLogger

	bumper BumperAnalyzer
	logo   LogoAnalyzer

	// Media and file plumbing, swappable in tests.
	probe         func(path string) (*ffmpeg.ProbeResult, error)
	thumbnail     func(path string, timestamp float64, outputPath string, width int) bool
	removeSegment func(inputPath, outputPath string, removeStart, removeEnd, totalDuration float64) error

	reg *registry
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func NewOrchestrator(sessions SessionFactory, cfg *config.Config, bumper BumperAnalyzer, logo LogoAnalyzer, prober *ffmpeg.FFprobe, ff *ffmpeg.FFmpeg, log *zap.SugaredLogger) *Orchestrator {
	maxConcurrent := cfg.Scan.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		sessions:      sessions,
		cfg:           cfg,
		log:           log,
		bumper:        bumper,
		logo:          logo,
		probe:         prober.Probe,
		thumbnail:     ff.ExtractThumbnail,
		removeSegment: ff.RemoveSegment,
		reg:           newRegistry(),
		sem:           semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// ──────────────────── Scan jobs ────────────────────

// CreateScanJob records a new pending job. Dispatch is a separate step so
// callers can return the job id before any work starts.
func (o *Orchestrator) CreateScanJob(ctx context.Context, kind models.ScanType, targetPath *string, mediaFileID *uuid.UUID) (*models.ScanJob, error) {
	sess, err := o.sessions(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	job := &models.ScanJob{
		ID:          uuid.New(),
		ScanType:    kind,
		Status:      models.ScanPending,
		TargetPath:  targetPath,
		MediaFileID: mediaFileID,
	}
	if err := sess.CreateScanJob(job); err != nil {
		return nil, fmt.Errorf("create scan job: %w", err)
	}
	o.log.Infow("scan job created", "job_id", job.ID, "type", kind)
	return job, nil
}

// StartJobAsync dispatches a worker for the job unless one is already
// running it. The worker waits on the concurrency semaphore, so more jobs
// can be queued than run at once.
func (o *Orchestrator) StartJobAsync(id uuid.UUID) {
	if !o.reg.tryAcquire(id) {
		o.log.Debugw("scan job already dispatched", "job_id", id)
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.reg.release(id)
		if err := o.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer o.sem.Release(1)
		o.runScanJob(id)
	}()
}

// CancelJob flips a pending or running job to cancelled. A running worker
// notices at its next file boundary; a pending job that was never
// dispatched simply never starts.
func (o *Orchestrator) CancelJob(ctx context.Context, id uuid.UUID) (bool, error) {
	sess, err := o.sessions(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Close()
	ok, err := sess.CancelScanJob(id)
	if err != nil {
		return false, err
	}
	if ok {
		o.log.Infow("scan job cancelled", "job_id", id)
	}
	return ok, nil
}

func (o *Orchestrator) ScanJobSnapshot(ctx context.Context, id uuid.UUID) (*models.ScanJob, error) {
	sess, err := o.sessions(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return sess.ScanJobByID(id)
}

func (o *Orchestrator) RecentJobs(ctx context.Context, limit int) ([]*models.ScanJob, error) {
	sess, err := o.sessions(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return sess.RecentScanJobs(limit)
}

// RunScheduledScan is the scheduler's entry point: create a full-library
// scan and kick it off.
func (o *Orchestrator) RunScheduledScan() {
	job, err := o.CreateScanJob(context.Background(), models.ScanFullLibrary, nil, nil)
	if err != nil {
		o.log.Errorw("scheduled scan failed to start", "error", err)
		return
	}
	o.StartJobAsync(job.ID)
}

// ──────────────────── Trim jobs ────────────────────

// StartTrim validates a removal request, records the job and dispatches its
// worker. Trim jobs dispatch exactly once at creation, so they need no
// registry entry.
func (o *Orchestrator) StartTrim(ctx context.Context, mediaFileID uuid.UUID, removeStart, removeEnd float64, issueID *uuid.UUID) (*models.TrimJob, error) {
	sess, err := o.sessions(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	media, err := sess.MediaByID(mediaFileID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTrim(media, removeStart, removeEnd); err != nil {
		return nil, err
	}

	job := &models.TrimJob{
		ID:               uuid.New(),
		MediaFileID:      mediaFileID,
		IssueID:          issueID,
		Status:           models.TrimPending,
		RemoveStart:      removeStart,
		RemoveEnd:        removeEnd,
		OriginalDuration: media.DurationSecs,
	}
	if err := sess.CreateTrimJob(job); err != nil {
		return nil, fmt.Errorf("create trim job: %w", err)
	}
	o.log.Infow("trim job created", "job_id", job.ID, "media_id", mediaFileID,
		"remove_start", removeStart, "remove_end", removeEnd)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runTrimJob(job.ID)
	}()
	return job, nil
}

func (o *Orchestrator) TrimJobSnapshot(ctx context.Context, id uuid.UUID) (*models.TrimJob, error) {
	sess, err := o.sessions(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return sess.TrimJobByID(id)
}

// Wait blocks until all dispatched workers have finished. Used on shutdown
// and by the one-shot CLI path.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// ActiveScans reports how many scan workers currently hold a registry slot.
func (o *Orchestrator) ActiveScans() int {
	return o.reg.count()
}
