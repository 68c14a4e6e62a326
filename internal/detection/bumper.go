// Package detection holds the two heuristic detectors: bumper spans at the
// head and tail of a file, and burned-in channel logos in the corners.
//
// Bumper detection looks for structural cues near the file edges rather
// than matching known bumpers. Black-frame transitions, hard scene cuts and
// audio dropouts tend to cluster at the boundary between a bumper and the
// content, so clustered events are scored as cut-point candidates.
package detection

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/benw5483/rectifierr/internal/config"
	"github.com/benw5483/rectifierr/internal/ffmpeg"
	"github.com/benw5483/rectifierr/internal/models"
)

const (
	PositionStart = "start"
	PositionEnd   = "end"

	// Files shorter than this cannot plausibly contain a separable bumper.
	minAnalyzableDuration = 90.0

	// Signal weights. A black interval contributes BOTH its boundaries as
	// separate weighted events; the cluster thresholds below were tuned
	// against that doubled influence, so keep them in lockstep.
	weightBlack   = 0.85
	weightScene   = 0.55
	weightSilence = 0.30

	// Events within this many seconds of a cluster's anchor merge into it.
	clusterGap = 1.5

	// Clusters below this weight with only one signal kind are noise.
	minClusterWeight = 0.75
)

// BumperCandidate is a scored cut-region hypothesis for one file edge.
type BumperCandidate struct {
	Start      float64
	End        float64
	Confidence float64
	Position   string
	Signals    models.BumperSignals
}

func (c BumperCandidate) Duration() float64 {
	return c.End - c.Start
}

// BumperDetector drives the three signal extractors over the head and tail
// windows of a file and clusters their events into cut-point candidates.
type BumperDetector struct {
	cfg config.BumperConfig
	log *zap.SugaredLogger

	// Extraction hooks, swappable in tests.
	probe       func(path string) (*ffmpeg.ProbeResult, error)
	blackFrames func(path string, start, duration, threshold, minDuration float64) []ffmpeg.Interval
	scenes      func(path string, start, duration, threshold float64) []ffmpeg.SceneEvent
	silence     func(path string, start, duration, noiseDB, minDuration float64) []ffmpeg.Interval
}

func NewBumperDetector(cfg config.BumperConfig, prober *ffmpeg.FFprobe, ff *ffmpeg.FFmpeg, log *zap.SugaredLogger) *BumperDetector {
	return &BumperDetector{
		cfg:         cfg,
		log:         log,
		probe:       prober.Probe,
		blackFrames: ff.DetectBlackFrames,
		scenes:      ff.DetectScenes,
		silence:     ff.DetectSilence,
	}
}

// Analyze runs the full bumper analysis on one file. At most one candidate
// is returned per file edge, sorted by confidence descending.
func (d *BumperDetector) Analyze(path string) []BumperCandidate {
	info, err := d.probe(path)
	if err != nil {
		d.log.Warnf("cannot analyze %s: no media info: %v", path, err)
		return nil
	}
	total := info.DurationSeconds()
	if total < minAnalyzableDuration {
		d.log.Debugf("skipping %s: too short (%.0fs)", path, total)
		return nil
	}

	// Never scan more than a third of the file per edge.
	window := math.Min(d.cfg.ScanSeconds, total/3)

	var results []BumperCandidate
	results = append(results, d.analyzeWindow(path, 0, window, PositionStart, total)...)
	results = append(results, d.analyzeWindow(path, total-window, window, PositionEnd, total)...)

	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	d.log.Infof("bumper scan complete: %d candidate(s) in %s", len(results), path)
	return results
}

func (d *BumperDetector) analyzeWindow(path string, winStart, winDuration float64, position string, total float64) []BumperCandidate {
	d.log.Debugf("  [%s] scanning %.1fs to %.1fs", position, winStart, winStart+winDuration)

	black := d.blackFrames(path, winStart, winDuration, d.cfg.BlackThreshold, d.cfg.BlackMinDuration)
	scenes := d.scenes(path, winStart, winDuration, d.cfg.SceneThreshold)
	silence := d.silence(path, winStart, winDuration, d.cfg.SilenceThresholdDB, d.cfg.SilenceMinDuration)

	clusters := clusterEvents(buildEvents(black, scenes, silence, d.cfg.SilenceMinDuration))
	if len(clusters) == 0 {
		return nil
	}

	var candidates []BumperCandidate
	for _, cl := range clusters {
		var start, end float64
		if position == PositionStart {
			start, end = winStart, cl.time
		} else {
			start, end = cl.time, total
		}

		dur := end - start
		if dur < d.cfg.MinDuration || dur > d.cfg.MaxDuration {
			continue
		}
		confidence := scoreCandidate(dur, cl.weight, cl.kinds)
		if confidence < d.cfg.MinConfidence {
			continue
		}

		candidates = append(candidates, BumperCandidate{
			Start:      start,
			End:        end,
			Confidence: confidence,
			Position:   position,
			Signals: models.BumperSignals{
				CutTime:       round3(cl.time),
				CutWeight:     round3(cl.weight),
				SignalTypes:   kindList(cl.kinds),
				BlackFrames:   len(black),
				SceneChanges:  len(scenes),
				SilenceEvents: len(silence),
			},
		})
	}

	// Single best candidate per window.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > 1 {
		candidates = candidates[:1]
	}
	return candidates
}

// ──────────────────── Event clustering ────────────────────

type signalEvent struct {
	time   float64
	weight float64
	kind   string
}

type cluster struct {
	time   float64 // anchor: time of the first event in the cluster
	weight float64
	kinds  map[string]bool
}

func buildEvents(black []ffmpeg.Interval, scenes []ffmpeg.SceneEvent, silence []ffmpeg.Interval, silenceMin float64) []signalEvent {
	var events []signalEvent
	for _, bf := range black {
		// Both boundaries of a black interval are potential cut points.
		events = append(events, signalEvent{bf.Start, weightBlack, "black"})
		events = append(events, signalEvent{bf.End, weightBlack, "black"})
	}
	for _, sc := range scenes {
		events = append(events, signalEvent{sc.Time, weightScene, "scene"})
	}
	for _, si := range silence {
		if si.Duration >= silenceMin {
			events = append(events, signalEvent{si.Start, weightSilence, "silence"})
			events = append(events, signalEvent{si.End, weightSilence, "silence"})
		}
	}
	return events
}

// clusterEvents sweeps the events in time order and merges any event within
// clusterGap of the current cluster's anchor. The input order is irrelevant:
// ties are broken deterministically so shuffled input yields identical
// clusters.
func clusterEvents(events []signalEvent) []cluster {
	if len(events) == 0 {
		return nil
	}
	sorted := make([]signalEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].time != sorted[j].time {
			return sorted[i].time < sorted[j].time
		}
		if sorted[i].kind != sorted[j].kind {
			return sorted[i].kind < sorted[j].kind
		}
		return sorted[i].weight < sorted[j].weight
	})

	var clusters []cluster
	current := cluster{time: sorted[0].time, weight: sorted[0].weight, kinds: map[string]bool{sorted[0].kind: true}}
	for _, ev := range sorted[1:] {
		if ev.time-current.time <= clusterGap {
			current.weight += ev.weight
			current.kinds[ev.kind] = true
		} else {
			clusters = append(clusters, current)
			current = cluster{time: ev.time, weight: ev.weight, kinds: map[string]bool{ev.kind: true}}
		}
	}
	clusters = append(clusters, current)

	// Only keep clusters with meaningful evidence.
	kept := clusters[:0]
	for _, cl := range clusters {
		if cl.weight >= minClusterWeight || len(cl.kinds) >= 2 {
			kept = append(kept, cl)
		}
	}
	return kept
}

// ──────────────────── Scoring ────────────────────

// scoreCandidate is the full confidence contract: duration sweet spot,
// signal diversity, accumulated weight, and a black-frame bonus.
func scoreCandidate(duration, weight float64, kinds map[string]bool) float64 {
	score := 0.40

	// Sweet spot for network bumpers is 5-30s.
	switch {
	case duration >= 5 && duration <= 30:
		score += 0.25
	case duration >= 3 && duration <= 60:
		score += 0.10
	}

	switch {
	case len(kinds) >= 3:
		score += 0.20
	case len(kinds) == 2:
		score += 0.12
	}

	switch {
	case weight >= 2.0:
		score += 0.15
	case weight >= 1.2:
		score += 0.08
	}

	// Black frames are the strongest individual signal.
	if kinds["black"] {
		score += 0.10
	}

	return round3(math.Min(score, 1.0))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func kindList(kinds map[string]bool) []string {
	out := make([]string, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
