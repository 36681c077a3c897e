package domain

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusKm is the mean radius of the spherical-earth approximation.
const earthRadiusKm = 6371.0

// maxBoundsLatitude is the highest |latitude| accepted by ComputeBounds.
// The longitude delta divides by cos(lat), which blows up toward the poles
// and would produce boxes wider than the planet.
const maxBoundsLatitude = 89.0

// ErrPolarLatitude is returned for latitudes too close to a pole to form a
// meaningful bounding box.
var ErrPolarLatitude = errors.New("latitude too close to a pole for a bounding box")

// ComputeBounds returns a rectangular search area of roughly radiusKm around
// the given point, using a spherical-earth approximation.
func ComputeBounds(lat, lon, radiusKm float64) (GeoBounds, error) {
	if math.Abs(lat) >= maxBoundsLatitude {
		return GeoBounds{}, fmt.Errorf("latitude %.4f: %w", lat, ErrPolarLatitude)
	}
	if radiusKm <= 0 {
		return GeoBounds{}, fmt.Errorf("radius must be positive, got %.2f km", radiusKm)
	}

	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180

	deltaLat := radiusKm / earthRadiusKm
	deltaLon := radiusKm / (earthRadiusKm * math.Cos(latRad))

	toDeg := 180 / math.Pi
	return GeoBounds{
		West:  (lonRad - deltaLon) * toDeg,
		East:  (lonRad + deltaLon) * toDeg,
		South: (latRad - deltaLat) * toDeg,
		North: (latRad + deltaLat) * toDeg,
	}, nil
}
