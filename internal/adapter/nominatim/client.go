// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/emmab0118/aircasting/internal/domain"
	"github.com/emmab0118/aircasting/internal/observability"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// userAgent identifies this client, as required by the Nominatim usage policy.
const userAgent = "aircasting-sessionpull"

// Client resolves place names through Nominatim.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Geocode resolves a place name to coordinates. An empty result set is a
// miss, not an error.
func (c *Client) Geocode(ctx context.Context, place string) (domain.Coordinates, bool, error) {
	params := url.Values{
		"q":      {place},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Coordinates{}, false, fmt.Errorf("geocode %q: %w", place, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinates{}, false, fmt.Errorf("nominatim error: status %d: %s", resp.StatusCode, body)
	}

	var places []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Coordinates{}, false, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("miss").Inc()
		c.logger.Info("place not found", "place", place)
		return domain.Coordinates{}, false, nil
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if errLat != nil || errLon != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Coordinates{}, false, fmt.Errorf("nominatim returned non-numeric coordinates for %q: lat=%q lon=%q", place, places[0].Lat, places[0].Lon)
	}

	c.metrics.GeocodeRequests.WithLabelValues("hit").Inc()
	return domain.Coordinates{Lat: lat, Lon: lon}, true, nil
}

// Nominatim serves coordinates as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
