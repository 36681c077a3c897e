// Package aircasting is the HTTP client for the AirCasting open API: session
// listing (current and legacy endpoints), stream listing, and fixed-session
// measurements.
package aircasting

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
)

// DefaultBaseURL is the production AirCasting host.
const DefaultBaseURL = "https://aircasting.org"

const isoLayout = "2006-01-02T15:04:05Z"

// Client talks to the AirCasting API. Measurement fetches get their own
// HTTP client because large windows are noticeably slower than listings.
type Client struct {
	baseURL     string
	listClient  *http.Client
	fetchClient *http.Client
	logger      *slog.Logger
}

// NewClient creates an API client. listTimeout bounds session and stream
// listings, fetchTimeout bounds measurement downloads.
func NewClient(baseURL string, listTimeout, fetchTimeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		listClient:  &http.Client{Timeout: listTimeout},
		fetchClient: &http.Client{Timeout: fetchTimeout},
		logger:      logger,
	}
}

// ListSessions queries the primary /api/v3/sessions endpoint.
func (c *Client) ListSessions(ctx context.Context, q domain.SessionQuery) ([]domain.Session, error) {
	params := url.Values{}
	if !q.Start.IsZero() && !q.End.IsZero() {
		params.Set("start_datetime", q.Start.UTC().Format(isoLayout))
		params.Set("end_datetime", q.End.UTC().Format(isoLayout))
	}
	if q.Bounds != nil {
		params.Set("west", formatFloat(q.Bounds.West))
		params.Set("east", formatFloat(q.Bounds.East))
		params.Set("south", formatFloat(q.Bounds.South))
		params.Set("north", formatFloat(q.Bounds.North))
	}

	var resp sessionListResponse
	if err := c.get(ctx, c.listClient, c.baseURL+"/api/v3/sessions?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.Session, len(resp.Sessions))
	for i, s := range resp.Sessions {
		sessions[i] = domain.Session{ID: string(s.ID), Type: s.Type, Title: s.Title}
	}
	return sessions, nil
}

// ListFixedSessions queries one legacy endpoint variant
// (/api/fixed/{active|dormant}/sessions.json) for a single cascade
// combination and returns the normalized session ids.
func (c *Client) ListFixedSessions(ctx context.Context, q domain.FallbackQuery) ([]string, error) {
	body, err := json.Marshal(fixedQuery{
		TimeFrom:        q.From.Unix(),
		TimeTo:          q.To.Unix(),
		West:            q.Bounds.West,
		East:            q.Bounds.East,
		South:           q.Bounds.South,
		North:           q.Bounds.North,
		SensorName:      q.SensorName,
		MeasurementType: q.MeasurementType,
		UnitSymbol:      q.UnitSymbol,
	})
	if err != nil {
		return nil, fmt.Errorf("encode fixed session query: %w", err)
	}

	u := fmt.Sprintf("%s/api/fixed/%s/sessions.json?q=%s", c.baseURL, url.PathEscape(q.Kind), url.QueryEscape(string(body)))

	var resp fixedListResponse
	if err := c.get(ctx, c.listClient, u, &resp); err != nil {
		return nil, fmt.Errorf("list %s fixed sessions: %w", q.Kind, err)
	}

	ids := make([]string, len(resp.Sessions))
	for i, s := range resp.Sessions {
		ids[i] = s.ID
	}
	return ids, nil
}

// ListStreams returns the stream descriptors of a session.
func (c *Client) ListStreams(ctx context.Context, sessionID string) ([]domain.StreamDescriptor, error) {
	u := fmt.Sprintf("%s/api/fixed/sessions/%s/streams.json?measurements_limit=1", c.baseURL, url.PathEscape(sessionID))

	var resp streamListResponse
	if err := c.get(ctx, c.listClient, u, &resp); err != nil {
		return nil, fmt.Errorf("list streams for session %s: %w", sessionID, err)
	}

	streams := make([]domain.StreamDescriptor, len(resp.Streams))
	for i, s := range resp.Streams {
		streams[i] = domain.StreamDescriptor{
			StreamID:        s.StreamID,
			SensorName:      s.SensorName,
			SensorUnit:      s.SensorUnit,
			MeasurementType: s.MeasurementType,
		}
	}
	return streams, nil
}

// Measurements fetches raw measurement records for a stream over
// [start, end], passed to the API as epoch milliseconds.
func (c *Client) Measurements(ctx context.Context, streamID int64, start, end time.Time) ([]domain.RawMeasurement, error) {
	params := url.Values{
		"stream_id":  {strconv.FormatInt(streamID, 10)},
		"start_time": {strconv.FormatInt(start.UnixMilli(), 10)},
		"end_time":   {strconv.FormatInt(end.UnixMilli(), 10)},
	}

	var raws []domain.RawMeasurement
	if err := c.get(ctx, c.fetchClient, c.baseURL+"/api/v3/fixed_measurements?"+params.Encode(), &raws); err != nil {
		return nil, fmt.Errorf("measurements for stream %d: %w", streamID, err)
	}
	return raws, nil
}

func (c *Client) get(ctx context.Context, client *http.Client, fullURL string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("aircasting API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
