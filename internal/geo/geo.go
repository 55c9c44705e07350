// Package geo provides the Haversine distance check used for proximity-gated
// attendance.
package geo

import "math"

const earthRadiusMeters = 6371e3

// Distance returns the great-circle distance in meters between two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// WithinProximity reports whether the student is within maxMeters of the
// instructor, along with the rounded distance for display.
func WithinProximity(studentLat, studentLon, instructorLat, instructorLon, maxMeters float64) (bool, float64) {
	d := Distance(studentLat, studentLon, instructorLat, instructorLon)
	return d <= maxMeters, math.Round(d)
}
