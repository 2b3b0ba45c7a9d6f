package verification

import (
	"time"

	"github.com/presensia/attendance-backend-go/internal/domain/verification"
	"github.com/presensia/attendance-backend-go/internal/pkg/geo"
)

// LocationProbe turns one device position report into a geofence-evaluated
// sample, or a typed DeviceError when the position could not be determined.
// "Could not determine location" and "determined, but out of range" are kept
// strictly apart: the latter is the caller's business decision, not a probe
// failure.
type LocationProbe struct {
	fence geo.Geofence
	// freshness bounds how old a reading may be. Anything older is treated
	// as a cached fix and rejected, so every retry is a genuinely fresh probe.
	freshness time.Duration
}

func NewLocationProbe(fence geo.Geofence, freshness time.Duration) *LocationProbe {
	return &LocationProbe{fence: fence, freshness: freshness}
}

// Probe validates the report and evaluates it against the office geofence.
func (p *LocationProbe) Probe(report verification.PositionReport, now time.Time) (verification.LocationSample, error) {
	if report.FailureCode != "" {
		return verification.LocationSample{}, &verification.DeviceError{Code: report.FailureCode}
	}

	if now.Sub(report.CapturedAt) > p.freshness {
		return verification.LocationSample{}, &verification.DeviceError{Code: verification.DeviceTimeout}
	}

	distance, within, err := p.fence.Evaluate(geo.Point{
		Latitude:  report.Latitude,
		Longitude: report.Longitude,
	})
	if err != nil {
		// Garbage coordinates from the device are a failed fix, never a
		// silent zero distance.
		return verification.LocationSample{}, &verification.DeviceError{Code: verification.DevicePositionUnavailable}
	}

	return verification.LocationSample{
		Latitude:                 report.Latitude,
		Longitude:                report.Longitude,
		AccuracyMeters:           report.AccuracyMeters,
		DistanceFromOfficeMeters: distance,
		WithinRadius:             within,
	}, nil
}

// RequiredRadiusMeters exposes the fence radius for out-of-range messaging.
func (p *LocationProbe) RequiredRadiusMeters() float64 {
	return p.fence.RadiusMeters
}
