package detection

import (
	"fmt"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/benw5483/rectifierr/internal/config"
	"github.com/benw5483/rectifierr/internal/ffmpeg"
)

const (
	// Files shorter than this are skipped outright.
	minLogoDuration = 120.0

	// A pixel counts toward the logo bounding box above this persistence.
	pixelPersistence = 0.90

	// A region covering more than this fraction of its corner is a static
	// background (letterbox bar, test card), not an overlay.
	maxCornerCoverage = 0.7

	// Fewer decoded frames than this and the variance estimate is garbage.
	minUsableFrames = 5
)

var cornerNames = []string{"top-left", "top-right", "bottom-left", "bottom-right"}

// LogoCandidate is one detected static overlay region in a frame corner.
type LogoCandidate struct {
	Position    string
	X           int
	Y           int
	Width       int
	Height      int
	Confidence  float64
	Persistence float64
}

// LogoDetector samples frames across a file and looks for corner regions
// whose pixels barely change while the rest of the picture does. A real
// broadcast logo sits still for the entire runtime, so per-pixel temporal
// variance separates it cleanly from moving content.
type LogoDetector struct {
	cfg config.LogoConfig
	log *zap.SugaredLogger

	probe         func(path string) (*ffmpeg.ProbeResult, error)
	extractFrames func(path string, timestamps []float64, outputDir string) []string
}

func NewLogoDetector(cfg config.LogoConfig, prober *ffmpeg.FFprobe, ff *ffmpeg.FFmpeg, log *zap.SugaredLogger) *LogoDetector {
	return &LogoDetector{
		cfg:           cfg,
		log:           log,
		probe:         prober.Probe,
		extractFrames: ff.ExtractFrames,
	}
}

// Analyze samples frames from the middle 90% of the file and reports any
// persistent corner overlays.
func (d *LogoDetector) Analyze(path string) []LogoCandidate {
	info, err := d.probe(path)
	if err != nil {
		d.log.Warnf("cannot analyze %s: no media info: %v", path, err)
		return nil
	}
	total := info.DurationSeconds()
	if total < minLogoDuration {
		d.log.Debugf("skipping %s: too short for logo detection (%.0fs)", path, total)
		return nil
	}

	timestamps := sampleTimestamps(total, d.cfg.CheckInterval, d.cfg.MaxFrames)

	tmpDir, err := os.MkdirTemp("", "rectifierr-logo-")
	if err != nil {
		d.log.Warnf("logo detection failed for %s: %v", path, err)
		return nil
	}
	defer os.RemoveAll(tmpDir)

	var frames [][][]float64
	for _, p := range d.extractFrames(path, timestamps, tmpDir) {
		px, err := loadGrayFrame(p)
		if err != nil {
			d.log.Debugf("unreadable frame %s: %v", p, err)
			continue
		}
		frames = append(frames, px)
	}
	if len(frames) < minUsableFrames {
		d.log.Warnf("logo detection aborted for %s: only %d usable frame(s)", path, len(frames))
		return nil
	}

	candidates := d.findLogos(frames)
	d.log.Infof("logo scan complete: %d candidate(s) in %s", len(candidates), path)
	return candidates
}

// sampleTimestamps spreads sample points across the central 90% of the
// runtime, stepping at least checkInterval apart and never exceeding
// maxFrames samples.
func sampleTimestamps(total, checkInterval float64, maxFrames int) []float64 {
	start := total * 0.05
	end := total * 0.95
	step := math.Max((end-start)/float64(maxFrames), checkInterval)

	var ts []float64
	for t := start; t < end && len(ts) < maxFrames; t += step {
		ts = append(ts, t)
	}
	return ts
}

// findLogos computes per-pixel temporal variance over the frame stack and
// inspects each corner region for a persistent sub-region.
func (d *LogoDetector) findLogos(frames [][][]float64) []LogoCandidate {
	h := len(frames[0])
	w := len(frames[0][0])
	for _, f := range frames {
		if len(f) != h || len(f[0]) != w {
			d.log.Warnf("logo detection aborted: inconsistent frame dimensions")
			return nil
		}
	}

	persistence := persistenceMap(frames, h, w)

	m := d.cfg.CornerMargin
	if m > w {
		m = w
	}
	if m > h {
		m = h
	}

	type region struct{ y1, y2, x1, x2 int }
	corners := map[string]region{
		"top-left":     {0, m, 0, m},
		"top-right":    {0, m, w - m, w},
		"bottom-left":  {h - m, h, 0, m},
		"bottom-right": {h - m, h, w - m, w},
	}

	var candidates []LogoCandidate
	for _, name := range cornerNames {
		r := corners[name]

		var sum float64
		for y := r.y1; y < r.y2; y++ {
			for x := r.x1; x < r.x2; x++ {
				sum += persistence[y][x]
			}
		}
		area := float64((r.y2 - r.y1) * (r.x2 - r.x1))
		mean := sum / area
		if mean < d.cfg.PersistenceThreshold {
			continue
		}

		// Bounding box of the strongly persistent pixels.
		minX, minY := r.x2, r.y2
		maxX, maxY := -1, -1
		for y := r.y1; y < r.y2; y++ {
			for x := r.x1; x < r.x2; x++ {
				if persistence[y][x] > pixelPersistence {
					if x < minX {
						minX = x
					}
					if x > maxX {
						maxX = x
					}
					if y < minY {
						minY = y
					}
					if y > maxY {
						maxY = y
					}
				}
			}
		}
		if maxX < 0 {
			continue
		}

		bw := maxX - minX + 1
		bh := maxY - minY + 1
		boxArea := bw * bh
		if boxArea < d.cfg.MinArea || float64(boxArea) > maxCornerCoverage*area {
			continue
		}

		candidates = append(candidates, LogoCandidate{
			Position:    name,
			X:           minX,
			Y:           minY,
			Width:       bw,
			Height:      bh,
			Confidence:  round3(mean),
			Persistence: round3(mean),
		})
		d.log.Debugf("  logo candidate in %s corner: %dx%d at (%d,%d)", name, bw, bh, minX, minY)
	}
	return candidates
}

// persistenceMap converts per-pixel temporal variance into a 0..1 stability
// score, normalized against the most volatile pixel in the frame.
func persistenceMap(frames [][][]float64, h, w int) [][]float64 {
	n := float64(len(frames))

	variance := make([][]float64, h)
	maxVar := 0.0
	for y := 0; y < h; y++ {
		variance[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			var sum float64
			for _, f := range frames {
				sum += f[y][x]
			}
			mean := sum / n
			var sq float64
			for _, f := range frames {
				d := f[y][x] - mean
				sq += d * d
			}
			v := sq / n
			variance[y][x] = v
			if v > maxVar {
				maxVar = v
			}
		}
	}

	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			out[y][x] = 1 - variance[y][x]/(maxVar+1e-6)
		}
	}
	return out
}

func loadGrayFrame(path string) ([][]float64, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	h, w := b.Dy(), b.Dx()
	px := make([][]float64, h)
	for y := 0; y < h; y++ {
		row := make([]float64, w)
		for x := 0; x < w; x++ {
			row[x] = float64(gray.NRGBAAt(b.Min.X+x, b.Min.Y+y).R)
		}
		px[y] = row
	}
	return px, nil
}
