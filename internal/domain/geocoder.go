package domain

import "context"

// Geocoder resolves a place name to coordinates. The bool reports whether the
// place was found; a miss is not an error, only transport failures are.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Coordinates, bool, error)
}
