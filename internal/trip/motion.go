package trip

import (
	"math"

	"motoya/internal/domain"
)

const earthRadiusKm = 6371.0

// advance moves pos one step of size toward target. The vehicle never passes
// the target: a step longer than the remaining gap lands exactly on it.
// arrived is true when pos was already within tol, in which case the returned
// position is target itself.
func advance(pos, target domain.Point, size, tol float64) (next domain.Point, arrived bool) {
	gap := target.Sub(pos)
	dist := gap.Norm()
	if dist < tol {
		return target, true
	}
	if dist <= size {
		return target, false
	}
	return pos.Add(gap.Scale(size / dist)), false
}

// remainingKm converts the gap between pos and target into kilometres.
func (o Options) remainingKm(pos, target domain.Point) float64 {
	if o.Geodesic {
		return haversineKm(pos.Lat, pos.Lng, target.Lat, target.Lng)
	}
	return pos.DistanceTo(target) * o.KmPerUnit
}

// etaSeconds derives the time to cover km at the assumed speed.
func (o Options) etaSeconds(km float64) int {
	if km <= 0 {
		return 0
	}
	return int(math.Ceil(km / o.AssumedSpeedKmh * 3600))
}

// haversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
