package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benw5483/rectifierr/internal/models"
)

func seedTrimMedia(t *testing.T, store *fakeStore, duration float64) (*models.MediaFile, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	if err := os.WriteFile(path, []byte("original movie bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	media := &models.MediaFile{
		ID:           mustUUID("44444444-4444-4444-4444-444444444444"),
		Path:         path,
		Title:        "Movie",
		MediaType:    models.MediaTypeMovie,
		DurationSecs: &duration,
	}
	store.putMedia(media)
	return media, path
}

func TestTrim_SuccessReplacesFileAndResolvesIssue(t *testing.T) {
	store := newFakeStore()
	media, path := seedTrimMedia(t, store, 600)

	issue := &models.Issue{
		ID:          mustUUID("55555555-5555-5555-5555-555555555555"),
		MediaFileID: media.ID,
		IssueType:   models.IssueBumper,
		EndSeconds:  8,
	}
	store.putIssue(issue)

	o := newTestOrchestrator(store, testConfig(t.TempDir(), t.TempDir()), &stubBumper{}, &stubLogo{})

	job, err := o.StartTrim(context.Background(), media.ID, 0, 8, &issue.ID)
	if err != nil {
		t.Fatal(err)
	}
	o.Wait()

	final := store.trimJob(job.ID)
	if final.Status != models.TrimCompleted {
		t.Fatalf("job status = %s, want completed (error: %v)", final.Status, final.ErrorMessage)
	}
	if final.StartedAt == nil || final.CompletedAt == nil {
		t.Error("lifecycle timestamps missing")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "trimmed output" {
		t.Errorf("file content = %q, want the trimmed output", got)
	}

	if final.BackupPath == nil {
		t.Fatal("backup path not recorded")
	}
	backup, err := os.ReadFile(*final.BackupPath)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(backup) != "original movie bytes" {
		t.Errorf("backup content = %q, want the original bytes", backup)
	}

	if _, err := os.Stat(path + tmpSuffix); !os.IsNotExist(err) {
		t.Error("temp output left behind")
	}

	m := store.mediaByID(media.ID)
	if m.DurationSecs == nil || *m.DurationSecs != 592 {
		t.Errorf("duration = %v, want 592 after removing 8s", m.DurationSecs)
	}

	resolved := store.issueByID(issue.ID)
	if !resolved.Resolved || resolved.ResolutionMethod == nil || *resolved.ResolutionMethod != models.ResolutionRemoved {
		t.Errorf("linked issue not resolved as removed: %+v", resolved)
	}
}

func TestTrim_FailureLeavesOriginalUntouched(t *testing.T) {
	store := newFakeStore()
	media, path := seedTrimMedia(t, store, 600)

	o := newTestOrchestrator(store, testConfig(t.TempDir(), t.TempDir()), &stubBumper{}, &stubLogo{})
	o.removeSegment = func(string, string, float64, float64, float64) error {
		return errors.New("ffmpeg exit status 1: invalid stream")
	}

	job, err := o.StartTrim(context.Background(), media.ID, 10, 20, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.Wait()

	final := store.trimJob(job.ID)
	if final.Status != models.TrimFailed {
		t.Fatalf("job status = %s, want failed", final.Status)
	}
	if final.ErrorMessage == nil || !strings.Contains(*final.ErrorMessage, "invalid stream") {
		t.Errorf("error message = %v", final.ErrorMessage)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "original movie bytes" {
		t.Errorf("original was modified on failure: %q", got)
	}
	if final.BackupPath == nil {
		t.Error("backup path should be recorded even on failure")
	}
	if m := store.mediaByID(media.ID); *m.DurationSecs != 600 {
		t.Errorf("duration changed to %v on failure", *m.DurationSecs)
	}
	if _, err := os.Stat(path + tmpSuffix); !os.IsNotExist(err) {
		t.Error("temp output left behind after failure")
	}
}

func TestTrim_EmptyOutputRejected(t *testing.T) {
	store := newFakeStore()
	media, path := seedTrimMedia(t, store, 600)

	o := newTestOrchestrator(store, testConfig(t.TempDir(), t.TempDir()), &stubBumper{}, &stubLogo{})
	o.removeSegment = func(_, out string, _, _, _ float64) error {
		return os.WriteFile(out, nil, 0o644)
	}

	job, err := o.StartTrim(context.Background(), media.ID, 0, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.Wait()

	final := store.trimJob(job.ID)
	if final.Status != models.TrimFailed {
		t.Fatalf("job status = %s, want failed for empty output", final.Status)
	}
	if got, _ := os.ReadFile(path); string(got) != "original movie bytes" {
		t.Errorf("original was replaced with empty output: %q", got)
	}
}

func TestTrim_LongErrorsTruncated(t *testing.T) {
	store := newFakeStore()
	media, _ := seedTrimMedia(t, store, 600)

	o := newTestOrchestrator(store, testConfig(t.TempDir(), t.TempDir()), &stubBumper{}, &stubLogo{})
	o.removeSegment = func(string, string, float64, float64, float64) error {
		return errors.New(strings.Repeat("x", 5000))
	}

	job, err := o.StartTrim(context.Background(), media.ID, 0, 8, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.Wait()

	final := store.trimJob(job.ID)
	if final.ErrorMessage == nil {
		t.Fatal("no error message recorded")
	}
	if len(*final.ErrorMessage) != 1000 {
		t.Errorf("error message length = %d, want capped at 1000", len(*final.ErrorMessage))
	}
}

func TestStartTrim_ValidationRejectsBeforeAnyWork(t *testing.T) {
	store := newFakeStore()
	media, path := seedTrimMedia(t, store, 600)

	o := newTestOrchestrator(store, testConfig(t.TempDir(), t.TempDir()), &stubBumper{}, &stubLogo{})

	if _, err := o.StartTrim(context.Background(), media.ID, 20, 10, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want a validation error", err)
	}
	if _, err := os.Stat(path + backupSuffix); !os.IsNotExist(err) {
		t.Error("a backup was created for a rejected request")
	}
	if len(store.trimJobs) != 0 {
		t.Errorf("%d trim jobs stored for a rejected request", len(store.trimJobs))
	}
}

func TestValidateTrim(t *testing.T) {
	dur := 600.0
	media := &models.MediaFile{DurationSecs: &dur}

	tests := []struct {
		name    string
		media   *models.MediaFile
		start   float64
		end     float64
		wantErr string
	}{
		{"valid head trim", media, 0, 8, ""},
		{"valid tail trim", media, 592, 600, ""},
		{"end slightly past metadata duration", media, 590, 600.8, ""},
		{"missing media", nil, 0, 8, "not found"},
		{"unknown duration", &models.MediaFile{}, 0, 8, "duration unknown"},
		{"negative start", media, -1, 8, "non-negative"},
		{"start after end", media, 10, 5, "before end"},
		{"below minimum span", media, 10, 10.2, "minimum"},
		{"end past duration", media, 0, 700, "past the file duration"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTrim(tc.media, tc.start, tc.end)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v does not wrap the validation sentinel", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 1000); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("ab", 800)
	if got := truncate(long, 1000); len(got) != 1000 || !strings.HasPrefix(long, got) {
		t.Errorf("truncate kept %d bytes", len(got))
	}
}
