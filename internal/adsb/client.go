package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hodel33/flyby33/internal/geo"
	"github.com/hodel33/flyby33/pkg/logger"
)

// Client fetches aircraft snapshots from the upstream position feed.
type Client struct {
	httpClient *http.Client
	sourceURL  string
	limiter    *rate.Limiter
	logger     *logger.Logger

	// The query circle can be repointed at runtime from the API while the
	// refresh loop is fetching
	mu       sync.Mutex
	station  geo.Point
	radiusNM float64
}

// NewClient creates a feed client querying a circle around the station.
// sourceURL is a printf template taking lat, lon and radius in nautical miles.
// requestsPerSecond bounds how hard the upstream feed is hit; <=0 disables
// the limiter.
func NewClient(
	sourceURL string,
	station geo.Point,
	radiusKm float64,
	timeout time.Duration,
	requestsPerSecond float64,
	log *logger.Logger,
) *Client {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		sourceURL: sourceURL,
		station:   station,
		radiusNM:  kmToNM(radiusKm),
		limiter:   limiter,
		logger:    log.Named("adsb-cli"),
	}
}

func kmToNM(km float64) float64 {
	return km * 1000 / geo.MetersPerNM
}

// Fetch queries the feed once and returns the raw aircraft list.
func (c *Client) Fetch(ctx context.Context) ([]FeedAircraft, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	c.mu.Lock()
	station, radiusNM := c.station, c.radiusNM
	c.mu.Unlock()

	url := fmt.Sprintf(c.sourceURL, station.Lat, station.Lon, radiusNM)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching ADS-B data", logger.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var data feedResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	c.logger.Debug("Successfully fetched ADS-B data",
		logger.Int("aircraft_count", len(data.Aircraft)),
		logger.Int("message_count", data.Messages),
	)

	return data.Aircraft, nil
}

// UpdateStation repoints the feed query at a new station circle.
func (c *Client) UpdateStation(station geo.Point, radiusKm float64) {
	c.mu.Lock()
	c.station = station
	c.radiusNM = kmToNM(radiusKm)
	c.mu.Unlock()

	c.logger.Debug("Station query updated",
		logger.Float64("latitude", station.Lat),
		logger.Float64("longitude", station.Lon),
		logger.Float64("radius_km", radiusKm))
}
