package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Per-call ceiling for the detection filters. A window that takes longer
// than this yields no signal rather than stalling the whole scan.
const filterTimeout = 180 * time.Second

// FFmpeg wraps the transcoding binary for the detection filters and the
// trim/concat operations.
type FFmpeg struct {
	Path string
	log  *zap.SugaredLogger
}

func New(path string, log *zap.SugaredLogger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path, log: log}
}

// Interval is a closed time range reported by blackdetect/silencedetect.
// Times are absolute (window-relative time plus window start).
type Interval struct {
	Start    float64
	End      float64
	Duration float64
}

// SceneEvent is a point event from the scene-change filter.
type SceneEvent struct {
	Time  float64
	Score float64
}

// windowArgs builds the -ss/-t prefix for a scan window. duration <= 0
// means "to end of file".
func windowArgs(start, duration float64) []string {
	var args []string
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	return args
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func (f *FFmpeg) run(args []string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, f.Path, args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// DetectBlackFrames finds black-frame intervals inside a window. Failures
// degrade to an empty result; one missing signal never aborts a scan.
func (f *FFmpeg) DetectBlackFrames(path string, start, duration, threshold, minDuration float64) []Interval {
	args := append([]string{"-hide_banner"}, windowArgs(start, duration)...)
	args = append(args,
		"-i", path,
		"-vf", fmt.Sprintf("blackdetect=d=%s:pix_th=%s", formatSeconds(minDuration), formatSeconds(threshold)),
		"-an", "-f", "null", "-",
	)
	out, err := f.run(args, filterTimeout)
	if err != nil {
		f.log.Warnf("black frame detection failed for %s: %v", path, err)
		return nil
	}
	return parseBlackDetect(out, start)
}

// DetectScenes finds scene-change events inside a window.
func (f *FFmpeg) DetectScenes(path string, start, duration, threshold float64) []SceneEvent {
	args := append([]string{"-hide_banner"}, windowArgs(start, duration)...)
	args = append(args,
		"-i", path,
		"-vf", fmt.Sprintf("select='gt(scene,%s)',metadata=print:file=-", formatSeconds(threshold)),
		"-an", "-f", "null", "-",
	)
	out, err := f.run(args, filterTimeout)
	if err != nil {
		f.log.Warnf("scene detection failed for %s: %v", path, err)
		return nil
	}
	return parseSceneMetadata(out, start)
}

// DetectSilence finds audio-silence intervals inside a window. Only
// intervals at or above minDuration are reported by the filter itself.
func (f *FFmpeg) DetectSilence(path string, start, duration, noiseDB, minDuration float64) []Interval {
	args := append([]string{"-hide_banner"}, windowArgs(start, duration)...)
	args = append(args,
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=n=%sdB:d=%s", formatSeconds(noiseDB), formatSeconds(minDuration)),
		"-vn", "-f", "null", "-",
	)
	out, err := f.run(args, filterTimeout)
	if err != nil {
		f.log.Warnf("silence detection failed for %s: %v", path, err)
		return nil
	}
	return parseSilenceDetect(out, start)
}

// ──────────────────── Output parsers ────────────────────

var (
	blackStartRe = regexp.MustCompile(`black_start:(\d+\.?\d*)`)
	blackEndRe   = regexp.MustCompile(`black_end:(\d+\.?\d*)`)
	blackDurRe   = regexp.MustCompile(`black_duration:(\d+\.?\d*)`)
)

func parseBlackDetect(output string, offset float64) []Interval {
	var events []Interval
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "black_start") {
			continue
		}
		sm := blackStartRe.FindStringSubmatch(line)
		em := blackEndRe.FindStringSubmatch(line)
		if len(sm) < 2 || len(em) < 2 {
			continue
		}
		start, _ := strconv.ParseFloat(sm[1], 64)
		end, _ := strconv.ParseFloat(em[1], 64)
		dur := end - start
		if dm := blackDurRe.FindStringSubmatch(line); len(dm) >= 2 {
			dur, _ = strconv.ParseFloat(dm[1], 64)
		}
		events = append(events, Interval{Start: start + offset, End: end + offset, Duration: dur})
	}
	return events
}

var (
	ptsTimeRe    = regexp.MustCompile(`pts_time:(\d+\.?\d*)`)
	sceneScoreRe = regexp.MustCompile(`lavfi\.scene_score=(\d+\.?\d*)`)
)

// parseSceneMetadata walks the metadata=print frame blocks. Each block opens
// with a "frame:... pts_time:..." line followed by a scene_score line.
func parseSceneMetadata(output string, offset float64) []SceneEvent {
	var events []SceneEvent
	var current *SceneEvent
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "frame:") {
			if current != nil {
				events = append(events, *current)
			}
			current = nil
			if m := ptsTimeRe.FindStringSubmatch(line); len(m) >= 2 {
				ts, err := strconv.ParseFloat(m[1], 64)
				if err == nil {
					current = &SceneEvent{Time: ts + offset}
				}
			}
		} else if current != nil {
			if m := sceneScoreRe.FindStringSubmatch(line); len(m) >= 2 {
				current.Score, _ = strconv.ParseFloat(m[1], 64)
			}
		}
	}
	if current != nil {
		events = append(events, *current)
	}
	return events
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(\d+\.?\d*)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(\d+\.?\d*)`)
	silenceDurRe   = regexp.MustCompile(`silence_duration:\s*(\d+\.?\d*)`)
)

func parseSilenceDetect(output string, offset float64) []Interval {
	var events []Interval
	var pendingStart float64
	startSet := false

	for _, line := range strings.Split(output, "\n") {
		if sm := silenceStartRe.FindStringSubmatch(line); len(sm) >= 2 {
			pendingStart, _ = strconv.ParseFloat(sm[1], 64)
			startSet = true
			continue
		}
		if em := silenceEndRe.FindStringSubmatch(line); len(em) >= 2 && startSet {
			end, _ := strconv.ParseFloat(em[1], 64)
			dur := end - pendingStart
			if dm := silenceDurRe.FindStringSubmatch(line); len(dm) >= 2 {
				dur, _ = strconv.ParseFloat(dm[1], 64)
			}
			events = append(events, Interval{Start: pendingStart + offset, End: end + offset, Duration: dur})
			startSet = false
		}
	}
	return events
}
