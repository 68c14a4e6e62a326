package models

import "encoding/json"

// Typed payloads for Issue.DetectionData. The column stores JSON text, but
// producers and consumers go through these structs so the evidence behind a
// detection round-trips without parsing ambiguity.

// BumperSignals is the raw evidence behind a bumper issue.
type BumperSignals struct {
	CutTime       float64  `json:"cut_time"`
	CutWeight     float64  `json:"cut_weight"`
	SignalTypes   []string `json:"signal_types"`
	BlackFrames   int      `json:"black_frames"`
	SceneChanges  int      `json:"scene_changes"`
	SilenceEvents int      `json:"silence_events"`
}

// LogoRegion is the raw evidence behind a channel-logo issue.
type LogoRegion struct {
	Position    string  `json:"position"`
	X           int     `json:"x"`
	Y           int     `json:"y"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Persistence float64 `json:"persistence"`
}

// DetectionDetail is the tagged union stored in Issue.DetectionData.
// Exactly one of Bumper/Logo is set, matching Kind.
type DetectionDetail struct {
	Kind   IssueType      `json:"kind"`
	Bumper *BumperSignals `json:"bumper,omitempty"`
	Logo   *LogoRegion    `json:"logo,omitempty"`
}

// Encode serializes the detail for storage on an Issue row.
func (d *DetectionDetail) Encode() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDetectionDetail parses a stored detection_data value.
func DecodeDetectionDetail(raw string) (*DetectionDetail, error) {
	var d DetectionDetail
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}
	return &d, nil
}
