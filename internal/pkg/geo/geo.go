package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Geofence is a circular boundary around a reference point.
type Geofence struct {
	Center       Point
	RadiusMeters float64
}

func validPoint(p Point) bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		!math.IsInf(p.Latitude, 0) && !math.IsInf(p.Longitude, 0)
}

// Distance returns the great-circle distance between a and b in meters using
// the haversine formula. Invalid coordinates are an error, never a silent zero.
func Distance(a, b Point) (float64, error) {
	if !validPoint(a) || !validPoint(b) {
		return 0, fmt.Errorf("geo: invalid coordinates (%v, %v)", a, b)
	}

	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180.0)
	dLng := (b.Longitude - a.Longitude) * (math.Pi / 180.0)

	latA := a.Latitude * (math.Pi / 180.0)
	latB := b.Latitude * (math.Pi / 180.0)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(latA)*math.Cos(latB)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c, nil
}

// Evaluate returns the distance from p to the fence center and whether p lies
// inside the fence.
func (g Geofence) Evaluate(p Point) (distance float64, within bool, err error) {
	distance, err = Distance(p, g.Center)
	if err != nil {
		return 0, false, err
	}
	return distance, distance <= g.RadiusMeters, nil
}
