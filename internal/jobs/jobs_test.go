package jobs

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/benw5483/rectifierr/internal/config"
	"github.com/benw5483/rectifierr/internal/detection"
	"github.com/benw5483/rectifierr/internal/ffmpeg"
	"github.com/benw5483/rectifierr/internal/logger"
	"github.com/benw5483/rectifierr/internal/models"
)

// fakeStore is an in-memory stand-in for the database. Sessions hand out
// copies so workers never share row pointers, mirroring how real sessions
// scan fresh structs per query.
type fakeStore struct {
	mu          sync.Mutex
	media       map[uuid.UUID]*models.MediaFile
	mediaByPath map[string]uuid.UUID
	issues      map[uuid.UUID]*models.Issue
	scanJobs    map[uuid.UUID]*models.ScanJob
	trimJobs    map[uuid.UUID]*models.TrimJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		media:       make(map[uuid.UUID]*models.MediaFile),
		mediaByPath: make(map[string]uuid.UUID),
		issues:      make(map[uuid.UUID]*models.Issue),
		scanJobs:    make(map[uuid.UUID]*models.ScanJob),
		trimJobs:    make(map[uuid.UUID]*models.TrimJob),
	}
}

func (s *fakeStore) session() Session { return &fakeSession{store: s} }

func (s *fakeStore) factory() SessionFactory {
	return func(context.Context) (Session, error) { return s.session(), nil }
}

// Direct accessors for test assertions and setup.

func (s *fakeStore) putMedia(m *models.MediaFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.media[m.ID] = &cp
	s.mediaByPath[m.Path] = m.ID
}

func (s *fakeStore) putIssue(i *models.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *i
	s.issues[i.ID] = &cp
}

func (s *fakeStore) issueByID(id uuid.UUID) *models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.issues[id]; ok {
		cp := *i
		return &cp
	}
	return nil
}

func (s *fakeStore) issuesForMedia(mediaID uuid.UUID) []*models.Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Issue
	for _, i := range s.issues {
		if i.MediaFileID == mediaID {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].StartSeconds < out[b].StartSeconds })
	return out
}

func (s *fakeStore) scanJob(id uuid.UUID) *models.ScanJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.scanJobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (s *fakeStore) trimJob(id uuid.UUID) *models.TrimJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.trimJobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (s *fakeStore) mediaByID(id uuid.UUID) *models.MediaFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.media[id]; ok {
		cp := *m
		return &cp
	}
	return nil
}

type fakeSession struct{ store *fakeStore }

func (f *fakeSession) Close() error { return nil }

func (f *fakeSession) MediaByPath(path string) (*models.MediaFile, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	id, ok := f.store.mediaByPath[path]
	if !ok {
		return nil, nil
	}
	cp := *f.store.media[id]
	return &cp, nil
}

func (f *fakeSession) MediaByID(id uuid.UUID) (*models.MediaFile, error) {
	return f.store.mediaByID(id), nil
}

func (f *fakeSession) CreateMedia(m *models.MediaFile) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.AddedAt = time.Now().UTC()
	cp := *m
	f.store.media[m.ID] = &cp
	f.store.mediaByPath[m.Path] = m.ID
	return nil
}

func (f *fakeSession) UpdateMediaProbe(m *models.MediaFile) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if existing, ok := f.store.media[m.ID]; ok {
		existing.DurationSecs = m.DurationSecs
		existing.FileSizeBytes = m.FileSizeBytes
		existing.Resolution = m.Resolution
		existing.Codec = m.Codec
		existing.Container = m.Container
	}
	return nil
}

func (f *fakeSession) UpdateMediaDuration(id uuid.UUID, seconds float64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if m, ok := f.store.media[id]; ok {
		m.DurationSecs = &seconds
	}
	return nil
}

func (f *fakeSession) TouchLastScanned(id uuid.UUID, at time.Time) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if m, ok := f.store.media[id]; ok {
		m.LastScanned = &at
	}
	return nil
}

func (f *fakeSession) CreateIssue(i *models.Issue) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.CreatedAt = time.Now().UTC()
	cp := *i
	f.store.issues[i.ID] = &cp
	return nil
}

func (f *fakeSession) DeleteUnresolvedIssues(mediaFileID uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for id, i := range f.store.issues {
		if i.MediaFileID == mediaFileID && !i.Resolved {
			delete(f.store.issues, id)
		}
	}
	return nil
}

func (f *fakeSession) ResolveIssue(id uuid.UUID, method string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	i, ok := f.store.issues[id]
	if !ok {
		return fmt.Errorf("issue %s not found", id)
	}
	now := time.Now().UTC()
	i.Resolved = true
	i.ResolvedAt = &now
	i.ResolutionMethod = &method
	return nil
}

func (f *fakeSession) CreateScanJob(j *models.ScanJob) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.CreatedAt = time.Now().UTC()
	cp := *j
	f.store.scanJobs[j.ID] = &cp
	return nil
}

func (f *fakeSession) ScanJobByID(id uuid.UUID) (*models.ScanJob, error) {
	return f.store.scanJob(id), nil
}

func (f *fakeSession) UpdateScanJob(j *models.ScanJob) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *j
	f.store.scanJobs[j.ID] = &cp
	return nil
}

func (f *fakeSession) UpdateScanJobProgress(j *models.ScanJob) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	existing, ok := f.store.scanJobs[j.ID]
	if !ok {
		return nil
	}
	existing.TargetPath = j.TargetPath
	existing.TotalFiles = j.TotalFiles
	existing.ProcessedFiles = j.ProcessedFiles
	existing.IssuesFound = j.IssuesFound
	return nil
}

func (f *fakeSession) CancelScanJob(id uuid.UUID) (bool, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	j, ok := f.store.scanJobs[id]
	if !ok {
		return false, nil
	}
	if j.Status != models.ScanPending && j.Status != models.ScanRunning {
		return false, nil
	}
	j.Status = models.ScanCancelled
	return true, nil
}

func (f *fakeSession) RecentScanJobs(limit int) ([]*models.ScanJob, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []*models.ScanJob
	for _, j := range f.store.scanJobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSession) CreateTrimJob(j *models.TrimJob) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.CreatedAt = time.Now().UTC()
	cp := *j
	f.store.trimJobs[j.ID] = &cp
	return nil
}

func (f *fakeSession) TrimJobByID(id uuid.UUID) (*models.TrimJob, error) {
	return f.store.trimJob(id), nil
}

func (f *fakeSession) UpdateTrimJob(j *models.TrimJob) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	cp := *j
	f.store.trimJobs[j.ID] = &cp
	return nil
}

// ──────────────────── Test orchestrator wiring ────────────────────

type stubBumper struct {
	mu    sync.Mutex
	calls []string
	// onAnalyze, when set, runs before returning candidates.
	onAnalyze  func(path string)
	candidates []detection.BumperCandidate
}

func (s *stubBumper) Analyze(path string) []detection.BumperCandidate {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.mu.Unlock()
	if s.onAnalyze != nil {
		s.onAnalyze(path)
	}
	return s.candidates
}

func (s *stubBumper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubLogo struct {
	candidates []detection.LogoCandidate
}

func (s *stubLogo) Analyze(string) []detection.LogoCandidate { return s.candidates }

func testConfig(mediaRoot, thumbDir string) *config.Config {
	return &config.Config{
		MediaRoot:     mediaRoot,
		ThumbnailsDir: thumbDir,
		Logo:          config.LogoConfig{Enabled: true},
		Scan:          config.ScanConfig{MaxConcurrent: 2},
	}
}

func testProbe(duration float64) func(string) (*ffmpeg.ProbeResult, error) {
	return func(string) (*ffmpeg.ProbeResult, error) {
		return &ffmpeg.ProbeResult{
			Format: ffmpeg.FormatInfo{
				Duration: fmt.Sprintf("%g", duration),
				Size:     "1048576",
			},
			Streams: []ffmpeg.StreamInfo{
				{CodecType: "video", CodecName: "h264", Width: 1280, Height: 720},
			},
		}, nil
	}
}

func newTestOrchestrator(store *fakeStore, cfg *config.Config, bumper BumperAnalyzer, logo LogoAnalyzer) *Orchestrator {
	return &Orchestrator{
		sessions: store.factory(),
		cfg:      cfg,
		log:      logger.Nop(),
		bumper:   bumper,
		logo:     logo,
		probe:    testProbe(600),
		removeSegment: func(_, out string, _, _, _ float64) error {
			return os.WriteFile(out, []byte("trimmed output"), 0o644)
		},
		reg: newRegistry(),
		sem: semaphore.NewWeighted(int64(cfg.Scan.MaxConcurrent)),
	}
}

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

func bumperCandidate(start, end, confidence float64, position string) detection.BumperCandidate {
	return detection.BumperCandidate{
		Start:      start,
		End:        end,
		Confidence: confidence,
		Position:   position,
		Signals: models.BumperSignals{
			CutTime:     end,
			CutWeight:   2.25,
			SignalTypes: []string{"black", "scene"},
		},
	}
}
