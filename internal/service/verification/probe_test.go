package verification

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/attendance-backend-go/internal/domain/verification"
	"github.com/presensia/attendance-backend-go/internal/pkg/geo"
)

var office = geo.Point{Latitude: -7.9546738, Longitude: 112.6322144}

const metersPerDegreeLat = geo.EarthRadiusMeters * 3.141592653589793 / 180

// pointNorthOf offsets a point by the given distance in meters along a
// meridian.
func pointNorthOf(p geo.Point, meters float64) geo.Point {
	return geo.Point{
		Latitude:  p.Latitude + meters/metersPerDegreeLat,
		Longitude: p.Longitude,
	}
}

func testProbe() *LocationProbe {
	return NewLocationProbe(geo.Geofence{Center: office, RadiusMeters: 70}, 10*time.Second)
}

func TestProbeWithinRadius(t *testing.T) {
	probe := testProbe()
	now := time.Now()

	near := pointNorthOf(office, 50)
	sample, err := probe.Probe(verification.PositionReport{
		Latitude:       near.Latitude,
		Longitude:      near.Longitude,
		AccuracyMeters: 8,
		CapturedAt:     now,
	}, now)

	require.NoError(t, err)
	assert.True(t, sample.WithinRadius)
	assert.InDelta(t, 50, sample.DistanceFromOfficeMeters, 1)
	assert.Equal(t, 8.0, sample.AccuracyMeters)
}

func TestProbeOutsideRadius(t *testing.T) {
	probe := testProbe()
	now := time.Now()

	far := pointNorthOf(office, 200)
	sample, err := probe.Probe(verification.PositionReport{
		Latitude:   far.Latitude,
		Longitude:  far.Longitude,
		CapturedAt: now,
	}, now)

	require.NoError(t, err)
	assert.False(t, sample.WithinRadius)
	assert.InDelta(t, 200, sample.DistanceFromOfficeMeters, 1)
}

func TestProbeFailureCode(t *testing.T) {
	probe := testProbe()
	now := time.Now()

	_, err := probe.Probe(verification.PositionReport{
		FailureCode: verification.DevicePermissionDenied,
	}, now)

	var devErr *verification.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, verification.DevicePermissionDenied, devErr.Code)
	assert.NotEmpty(t, devErr.Guidance())
}

func TestProbeStaleReading(t *testing.T) {
	probe := testProbe()
	now := time.Now()

	_, err := probe.Probe(verification.PositionReport{
		Latitude:   office.Latitude,
		Longitude:  office.Longitude,
		CapturedAt: now.Add(-time.Minute),
	}, now)

	var devErr *verification.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, verification.DeviceTimeout, devErr.Code)
}

func TestProbeInvalidCoordinates(t *testing.T) {
	probe := testProbe()
	now := time.Now()

	_, err := probe.Probe(verification.PositionReport{
		Latitude:   math.NaN(),
		Longitude:  office.Longitude,
		CapturedAt: now,
	}, now)

	var devErr *verification.DeviceError
	require.True(t, errors.As(err, &devErr))
	assert.Equal(t, verification.DevicePositionUnavailable, devErr.Code)
}
