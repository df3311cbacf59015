// Package geo computes great-circle distances between client and machines.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is anything with a latitude and longitude in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Distance returns the haversine distance between a and b in whole meters.
//
// ok is false when any component is zero or NaN. A zero component is treated
// as missing, so points on the equator or the prime meridian are not
// supported.
func Distance(a, b Point) (meters int64, ok bool) {
	if missing(a.Lat) || missing(a.Lon) || missing(b.Lat) || missing(b.Lon) {
		return 0, false
	}

	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return int64(math.Round(EarthRadiusKm * c * 1000)), true
}

func missing(v float64) bool {
	return v == 0 || math.IsNaN(v)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
