package domain

import "math"

// Point is a coordinate on the simulation plane. Lat/Lng may be real
// degrees or normalized map coordinates, depending on the trip options.
type Point struct {
	Lat float64
	Lng float64
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{Lat: p.Lat - q.Lat, Lng: p.Lng - q.Lng}
}

// Add returns p translated by v.
func (p Point) Add(v Point) Point {
	return Point{Lat: p.Lat + v.Lat, Lng: p.Lng + v.Lng}
}

// Scale returns p multiplied by k.
func (p Point) Scale(k float64) Point {
	return Point{Lat: p.Lat * k, Lng: p.Lng * k}
}

// Norm returns the Euclidean length of p taken as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.Lat, p.Lng)
}

// DistanceTo returns the Euclidean distance between p and q in coordinate units.
func (p Point) DistanceTo(q Point) float64 {
	return p.Sub(q).Norm()
}

// IsGeo reports whether p is a valid latitude/longitude pair.
func (p Point) IsGeo() bool {
	return p.Lat >= -85.05112878 && p.Lat <= 85.05112878 && p.Lng >= -180 && p.Lng <= 180
}

// IsFinite reports whether both components are real numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}
