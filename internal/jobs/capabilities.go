package jobs

import "github.com/benw5483/rectifierr/internal/models"

// Capabilities says which detector families a scan kind runs.
type Capabilities struct {
	RunBumpers bool
	RunLogos   bool
}

// CapabilitiesFor maps a scan kind to its detector set. Logo analysis is
// expensive, so the targeted kinds (single_file, bumper_only) skip it and
// logo_only skips bumpers.
func CapabilitiesFor(kind models.ScanType) Capabilities {
	switch kind {
	case models.ScanLogoOnly:
		return Capabilities{RunLogos: true}
	case models.ScanBumperOnly, models.ScanSingleFile:
		return Capabilities{RunBumpers: true}
	default:
		return Capabilities{RunBumpers: true, RunLogos: true}
	}
}
