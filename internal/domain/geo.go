package domain

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// HaversineKm computes the great-circle distance between two points in
// kilometers. Symmetric in its arguments; identical points yield 0.
func HaversineKm(a, b Geo) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaPhi := (b.Lat - a.Lat) * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// WithinRadius reports whether point lies within radiusKm of center.
// Points exactly on the boundary are included.
func WithinRadius(center, point Geo, radiusKm float64) bool {
	return HaversineKm(center, point) <= radiusKm
}
