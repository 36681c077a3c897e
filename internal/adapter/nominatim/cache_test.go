package nominatim

import (
	"context"
	"errors"
	"testing"

	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	coords domain.Coordinates
	found  bool
	err    error
	calls  int
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (domain.Coordinates, bool, error) {
	s.calls++
	return s.coords, s.found, s.err
}

func TestCachedGeocoder_HitSkipsInner(t *testing.T) {
	inner := &stubGeocoder{coords: domain.Coordinates{Lat: 40.7, Lon: -74.0}, found: true}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	for range 3 {
		coords, found, err := cached.Geocode(context.Background(), "New York")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 40.7, coords.Lat)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_KeyNormalization(t *testing.T) {
	inner := &stubGeocoder{coords: domain.Coordinates{Lat: 1}, found: true}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _, err := cached.Geocode(context.Background(), "Chicago")
	require.NoError(t, err)
	_, _, err = cached.Geocode(context.Background(), "  chicago ")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_MissNotCached(t *testing.T) {
	inner := &stubGeocoder{found: false}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	for range 2 {
		_, found, err := cached.Geocode(context.Background(), "Nowhereville")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &stubGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _, err := cached.Geocode(context.Background(), "New York")
	require.Error(t, err)
	_, _, err = cached.Geocode(context.Background(), "New York")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.Coordinates{Lat: 1})
	c.put("b", domain.Coordinates{Lat: 2})

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", domain.Coordinates{Lat: 3})

	_, ok = c.get("b")
	assert.False(t, ok)
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}
