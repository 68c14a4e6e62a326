package ffmpeg

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const frameTimeout = 15 * time.Second

// ExtractFrames writes one JPEG per timestamp into outputDir and returns the
// paths that were actually produced. Individual failures are skipped; the
// logo detector decides whether enough frames survived.
func (f *FFmpeg) ExtractFrames(path string, timestamps []float64, outputDir string) []string {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		f.log.Warnf("cannot create frame dir %s: %v", outputDir, err)
		return nil
	}
	var paths []string
	for i, ts := range timestamps {
		out := filepath.Join(outputDir, fmt.Sprintf("frame_%05d.jpg", i))
		args := []string{
			"-hide_banner", "-v", "quiet",
			"-ss", formatSeconds(ts),
			"-i", path,
			"-vframes", "1",
			"-q:v", "3",
			out,
		}
		if _, err := f.run(args, frameTimeout); err != nil {
			f.log.Debugf("frame extract failed at t=%.1f: %v", ts, err)
			continue
		}
		if _, err := os.Stat(out); err == nil {
			paths = append(paths, out)
		}
	}
	return paths
}

// ExtractThumbnail writes a scaled JPEG for one timestamp. Returns false on
// any failure; thumbnails are best-effort.
func (f *FFmpeg) ExtractThumbnail(path string, timestamp float64, outputPath string, width int) bool {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return false
	}
	args := []string{
		"-hide_banner", "-v", "quiet",
		"-ss", formatSeconds(timestamp),
		"-i", path,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", width),
		"-q:v", "4",
		outputPath,
	}
	if _, err := f.run(args, frameTimeout); err != nil {
		f.log.Debugf("thumbnail extraction failed for %s: %v", path, err)
		return false
	}
	_, err := os.Stat(outputPath)
	return err == nil
}
