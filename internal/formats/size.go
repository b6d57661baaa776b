package formats

import "vidgrab/internal/model"

// EstimateSize returns the expected download size of a variant in bytes, or nil if unknown.
//
// Reported sizes win over the bitrate estimate: exact size first, then the approximate
// size, then average bitrate (kbps) times duration. A reported size of zero counts as
// not reported, and the bitrate estimate needs a positive duration.
func EstimateSize(v model.Variant, durationSec *float64) *float64 {
	if v.ExactSizeBytes != nil && *v.ExactSizeBytes > 0 {
		s := float64(*v.ExactSizeBytes)
		return &s
	}
	if v.ApproxSizeBytes != nil && *v.ApproxSizeBytes > 0 {
		s := float64(*v.ApproxSizeBytes)
		return &s
	}
	if v.AverageBitrateKbps != nil && *v.AverageBitrateKbps > 0 && durationSec != nil && *durationSec > 0 {
		s := *v.AverageBitrateKbps * 1000 / 8 * *durationSec
		return &s
	}
	return nil
}
