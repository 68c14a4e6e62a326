package jobs

import (
	"errors"
	"fmt"

	"github.com/benw5483/rectifierr/internal/models"
)

// ErrValidation marks trim requests rejected before any work starts.
var ErrValidation = errors.New("invalid trim request")

// Trims shorter than this are below what a stream copy can cut cleanly.
const minTrimSeconds = 0.5

// Removal bounds may overshoot the recorded duration by this much, since
// container metadata rounds up against the real stream length.
const durationSlack = 1.0

// ValidateTrim checks a removal request against the media row it targets.
func ValidateTrim(m *models.MediaFile, removeStart, removeEnd float64) error {
	if m == nil {
		return fmt.Errorf("%w: media file not found", ErrValidation)
	}
	if m.DurationSecs == nil || *m.DurationSecs <= 0 {
		return fmt.Errorf("%w: media duration unknown, re-scan the file first", ErrValidation)
	}
	if removeStart < 0 || removeEnd < 0 {
		return fmt.Errorf("%w: removal bounds must be non-negative", ErrValidation)
	}
	if removeStart >= removeEnd {
		return fmt.Errorf("%w: removal start %.3f must be before end %.3f", ErrValidation, removeStart, removeEnd)
	}
	if removeEnd-removeStart < minTrimSeconds {
		return fmt.Errorf("%w: removal span %.3fs is below the %.1fs minimum", ErrValidation, removeEnd-removeStart, minTrimSeconds)
	}
	if removeEnd > *m.DurationSecs+durationSlack {
		return fmt.Errorf("%w: removal end %.3f is past the file duration %.3f", ErrValidation, removeEnd, *m.DurationSecs)
	}
	return nil
}
