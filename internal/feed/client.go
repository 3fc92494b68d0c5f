// Package feed talks to the USGS earthquake endpoints and exposes the two
// fetch strategies the poller selects between.
package feed

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

	"github.com/seismowatch/quake-alert-service/internal/domain"
)

// Window is the fixed retrospective time range a poll requests.
type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
)

// feedPath maps a window to its summary feed file name.
func (w Window) feedPath() string {
	switch w {
	case Window7d:
		return "all_week.geojson"
	case Window30d:
		return "all_month.geojson"
	default:
		return "all_day.geojson"
	}
}

// Duration returns the window's length for computing query start times.
func (w Window) Duration() time.Duration {
	switch w {
	case Window7d:
		return 7 * 24 * time.Hour
	case Window30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Client fetches GeoJSON feature collections from the USGS feed endpoints.
type Client struct {
	httpClient   *http.Client
	feedBaseURL  string
	queryBaseURL string
	logger       *slog.Logger
}

// NewClient creates a feed client. feedBaseURL serves the aggregated summary
// files; queryBaseURL is the parametrized fdsnws query endpoint.
func NewClient(feedBaseURL, queryBaseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		feedBaseURL:  feedBaseURL,
		queryBaseURL: queryBaseURL,
		logger:       logger,
	}
}

// FetchWindow retrieves the pre-aggregated global feed for the given window.
func (c *Client) FetchWindow(ctx context.Context, w Window) (domain.FeatureCollection, error) {
	u := fmt.Sprintf("%s/%s", c.feedBaseURL, w.feedPath())
	return c.doRequest(ctx, u, "summary")
}

// QueryParams constrain a parametrized feed query server-side.
type QueryParams struct {
	Center       domain.Geo
	RadiusKm     float64
	Start        time.Time
	End          time.Time
	MinMagnitude float64
}

// Query issues a parametrized search with the region, window, and magnitude
// floor bound directly into the request.
func (c *Client) Query(ctx context.Context, p QueryParams) (domain.FeatureCollection, error) {
	params := url.Values{
		"format":       {"geojson"},
		"latitude":     {strconv.FormatFloat(p.Center.Lat, 'f', 4, 64)},
		"longitude":    {strconv.FormatFloat(p.Center.Lon, 'f', 4, 64)},
		"maxradiuskm":  {strconv.FormatFloat(p.RadiusKm, 'f', 0, 64)},
		"starttime":    {p.Start.UTC().Format(time.RFC3339)},
		"endtime":      {p.End.UTC().Format(time.RFC3339)},
		"minmagnitude": {strconv.FormatFloat(p.MinMagnitude, 'f', 1, 64)},
	}
	return c.doRequest(ctx, c.queryBaseURL+"?"+params.Encode(), "query")
}

// EventDetail looks up a single event by identifier, returning the feature
// with its extended properties set (status, tsunami flag, felt reports,
// intensity metrics, alert level).
func (c *Client) EventDetail(ctx context.Context, eventID string) (domain.Feature, error) {
	params := url.Values{
		"format":  {"geojson"},
		"eventid": {eventID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Feature{}, fmt.Errorf("detail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Feature{}, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	var f domain.Feature
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return domain.Feature{}, fmt.Errorf("decode detail response: %w", err)
	}
	return f, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, source string) (domain.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%s feed request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.FeatureCollection{}, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	var fc domain.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode %s response: %w", source, err)
	}
	return fc, nil
}
