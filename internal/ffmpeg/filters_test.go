package ffmpeg

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParseBlackDetect(t *testing.T) {
	output := `[blackdetect @ 0x55d] black_start:1.2 black_end:2.4 black_duration:1.2
frame=  100 fps=0.0 q=-0.0 size=N/A
[blackdetect @ 0x55d] black_start:58.96 black_end:60 black_duration:1.04
`
	events := parseBlackDetect(output, 100)
	if len(events) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(events))
	}
	if !almostEqual(events[0].Start, 101.2) || !almostEqual(events[0].End, 102.4) {
		t.Fatalf("window offset not applied: %+v", events[0])
	}
	if !almostEqual(events[1].Duration, 1.04) {
		t.Fatalf("expected duration from filter output, got %v", events[1].Duration)
	}
}

func TestParseBlackDetect_IgnoresPartialLines(t *testing.T) {
	output := "[blackdetect @ 0x55d] black_start:3.0\nsome unrelated line\n"
	if events := parseBlackDetect(output, 0); len(events) != 0 {
		t.Fatalf("incomplete line should be skipped, got %+v", events)
	}
}

func TestParseSceneMetadata(t *testing.T) {
	output := `frame:12   pts:360360  pts_time:4.004
lavfi.scene_score=0.412
frame:44   pts:1321320 pts_time:14.681
lavfi.scene_score=0.887
`
	events := parseSceneMetadata(output, 10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !almostEqual(events[0].Time, 14.004) {
		t.Fatalf("expected absolute time 14.004, got %v", events[0].Time)
	}
	if !almostEqual(events[1].Score, 0.887) {
		t.Fatalf("expected score 0.887, got %v", events[1].Score)
	}
}

func TestParseSceneMetadata_TrailingFrame(t *testing.T) {
	output := "frame:1 pts:100 pts_time:2.5\nlavfi.scene_score=0.5"
	events := parseSceneMetadata(output, 0)
	if len(events) != 1 || !almostEqual(events[0].Time, 2.5) {
		t.Fatalf("last frame block lost: %+v", events)
	}
}

func TestParseSilenceDetect(t *testing.T) {
	output := `[silencedetect @ 0x1] silence_start: 5.2
[silencedetect @ 0x1] silence_end: 6.1 | silence_duration: 0.9
[silencedetect @ 0x1] silence_start: 30
`
	events := parseSilenceDetect(output, 60)
	if len(events) != 1 {
		t.Fatalf("expected 1 closed interval, got %d", len(events))
	}
	got := events[0]
	if !almostEqual(got.Start, 65.2) || !almostEqual(got.End, 66.1) || !almostEqual(got.Duration, 0.9) {
		t.Fatalf("unexpected interval: %+v", got)
	}
}

func TestParseSilenceDetect_EndWithoutStart(t *testing.T) {
	output := "[silencedetect @ 0x1] silence_end: 6.1 | silence_duration: 0.9\n"
	if events := parseSilenceDetect(output, 0); len(events) != 0 {
		t.Fatalf("dangling silence_end should be ignored, got %+v", events)
	}
}

func TestSegmentsToKeep(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		total      float64
		want       []Segment
	}{
		{
			name:  "remove head",
			start: 0, end: 20, total: 100,
			want: []Segment{{Start: 20, End: 100}},
		},
		{
			name:  "remove tail",
			start: 80, end: 100, total: 100,
			want: []Segment{{Start: 0, End: 80}},
		},
		{
			name:  "remove middle keeps both sides",
			start: 40, end: 50, total: 100,
			want: []Segment{{Start: 0, End: 40}, {Start: 50, End: 100}},
		},
		{
			name:  "suffix sliver below keep threshold is dropped",
			start: 10, end: 99.9, total: 100,
			want: []Segment{{Start: 0, End: 10}},
		},
		{
			name:  "prefix sliver below keep threshold is dropped",
			start: 0.2, end: 30, total: 100,
			want: []Segment{{Start: 30, End: 100}},
		},
		{
			name:  "whole timeline removed",
			start: 0, end: 100, total: 100,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SegmentsToKeep(tt.start, tt.end, tt.total)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d segment(s), got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if !almostEqual(got[i].Start, tt.want[i].Start) || !almostEqual(got[i].End, tt.want[i].End) {
					t.Fatalf("segment %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}
