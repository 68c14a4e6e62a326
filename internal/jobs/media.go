package jobs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/benw5483/rectifierr/internal/ffmpeg"
	"github.com/benw5483/rectifierr/internal/models"
)

var (
	episodePattern   = regexp.MustCompile(`(?i)s(\d{1,2})[ ._-]?e(\d{1,3})`)
	seasonDirPattern = regexp.MustCompile(`(?i)^season[ ._-]*\d+$`)
)

// createMediaRecord probes a newly seen file and inserts its media row.
// A file ffprobe cannot read does not get a row.
func (o *Orchestrator) createMediaRecord(sess Session, path string) (*models.MediaFile, error) {
	info, err := o.probe(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create media record for %s: %w", path, err)
	}

	media := guessMedia(path)
	media.ID = uuid.New()
	media.Path = path
	applyProbe(media, info, path)

	if err := sess.CreateMedia(media); err != nil {
		return nil, err
	}
	o.log.Infow("media record created", "path", path, "type", media.MediaType, "title", media.Title)
	return media, nil
}

// backfillMediaInfo re-probes rows with missing technical metadata. Probe
// failures are logged and the stale row kept; detection still runs.
func (o *Orchestrator) backfillMediaInfo(sess Session, media *models.MediaFile) {
	info, err := o.probe(media.Path)
	if err != nil {
		o.log.Warnw("metadata backfill probe failed", "path", media.Path, "error", err)
		return
	}
	applyProbe(media, info, media.Path)
	if err := sess.UpdateMediaProbe(media); err != nil {
		o.log.Warnw("metadata backfill update failed", "path", media.Path, "error", err)
	}
}

func applyProbe(media *models.MediaFile, info *ffmpeg.ProbeResult, path string) {
	if d := info.DurationSeconds(); d > 0 {
		media.DurationSecs = &d
	}
	if size := info.FileSize(); size > 0 {
		media.FileSizeBytes = &size
	}
	if res := info.Resolution(); res != "" {
		media.Resolution = &res
	}
	if codec := info.VideoCodec(); codec != "" {
		media.Codec = &codec
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext != "" {
		media.Container = &ext
	}
}

// guessMedia infers title and type from the file path. SxxEyy in the name
// makes it an episode whose series title comes from the directory tree,
// anything else is treated as a movie.
func guessMedia(path string) *models.MediaFile {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if m := episodePattern.FindStringSubmatchIndex(stem); m != nil {
		season, _ := strconv.Atoi(stem[m[2]:m[3]])
		episode, _ := strconv.Atoi(stem[m[4]:m[5]])
		series := seriesTitleFromPath(path)

		title := cleanTitle(stem[m[1]:])
		if title == "" {
			title = fmt.Sprintf("Episode %d", episode)
		}
		return &models.MediaFile{
			Title:         title,
			MediaType:     models.MediaTypeEpisode,
			SeriesTitle:   &series,
			SeasonNumber:  &season,
			EpisodeNumber: &episode,
		}
	}

	return &models.MediaFile{
		Title:     cleanTitle(stem),
		MediaType: models.MediaTypeMovie,
	}
}

// seriesTitleFromPath prefers the directory above a "Season NN" folder,
// otherwise the file's immediate parent.
func seriesTitleFromPath(path string) string {
	parent := filepath.Base(filepath.Dir(path))
	if seasonDirPattern.MatchString(parent) {
		return cleanTitle(filepath.Base(filepath.Dir(filepath.Dir(path))))
	}
	return cleanTitle(parent)
}

func cleanTitle(s string) string {
	s = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
