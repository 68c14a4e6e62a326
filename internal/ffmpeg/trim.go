package ffmpeg

import (
	"fmt"
	"strings"
	"time"
)

const (
	// Single surviving segment is a stream copy and finishes fast.
	copyTimeout = 600 * time.Second
	// Two segments require a re-encode at the join.
	concatTimeout = 3600 * time.Second

	// Segments shorter than this are not worth keeping; they are usually
	// rounding slivers on either side of the removed region.
	keepThreshold = 0.5
)

// Segment is a [Start, End) slice of the source timeline.
type Segment struct {
	Start float64
	End   float64
}

// SegmentsToKeep computes the parts of the timeline that survive removing
// [removeStart, removeEnd). An empty result means the removal would consume
// the whole file.
func SegmentsToKeep(removeStart, removeEnd, totalDuration float64) []Segment {
	var segments []Segment
	if removeStart > keepThreshold {
		segments = append(segments, Segment{Start: 0, End: removeStart})
	}
	if removeEnd < totalDuration-keepThreshold {
		segments = append(segments, Segment{Start: removeEnd, End: totalDuration})
	}
	return segments
}

// RemoveSegment synthesizes outputPath from inputPath with the region
// [removeStart, removeEnd) deleted. One surviving segment is extracted with
// stream copy; two segments are trimmed and concatenated with a re-encode.
// The input file is never modified.
func (f *FFmpeg) RemoveSegment(inputPath, outputPath string, removeStart, removeEnd, totalDuration float64) error {
	segments := SegmentsToKeep(removeStart, removeEnd, totalDuration)
	if len(segments) == 0 {
		return fmt.Errorf("no segments remain after removing [%.1f, %.1f) from %.1fs file",
			removeStart, removeEnd, totalDuration)
	}

	if len(segments) == 1 {
		seg := segments[0]
		args := []string{
			"-hide_banner", "-y",
			"-ss", formatSeconds(seg.Start),
			"-to", formatSeconds(seg.End),
			"-i", inputPath,
			"-c", "copy",
			outputPath,
		}
		if out, err := f.run(args, copyTimeout); err != nil {
			return fmt.Errorf("single-segment copy failed: %w (%s)", err, tail(out, 300))
		}
		return nil
	}

	// Build [0:v]trim/[0:a]atrim pairs and feed them into one concat.
	var filterParts []string
	var concatInputs strings.Builder
	for i, seg := range segments {
		filterParts = append(filterParts, fmt.Sprintf(
			"[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];"+
				"[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d]",
			formatSeconds(seg.Start), formatSeconds(seg.End), i,
			formatSeconds(seg.Start), formatSeconds(seg.End), i,
		))
		fmt.Fprintf(&concatInputs, "[v%d][a%d]", i, i)
	}
	filterComplex := strings.Join(filterParts, ";") +
		fmt.Sprintf(";%sconcat=n=%d:v=1:a=1[vout][aout]", concatInputs.String(), len(segments))

	args := []string{
		"-hide_banner", "-y",
		"-i", inputPath,
		"-filter_complex", filterComplex,
		"-map", "[vout]",
		"-map", "[aout]",
		outputPath,
	}
	if out, err := f.run(args, concatTimeout); err != nil {
		return fmt.Errorf("multi-segment concat failed: %w (%s)", err, tail(out, 500))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
