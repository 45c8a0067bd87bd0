package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/httpx"
	"github.com/8adimka/Go_Weather_Agent/internal/weather"
)

// Client implements weather.Geocoder using the Open-Meteo geocoding API.
type Client struct {
	baseURL string
	client  *httpx.JSONClient
}

// NewClient creates a geocoding client. baseURL carries the version path,
// e.g. https://geocoding-api.open-meteo.com/v1.
func NewClient(client *httpx.JSONClient, baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Resolve looks up text and returns the single best match.
func (c *Client) Resolve(ctx context.Context, text string) (weather.Location, error) {
	name := strings.TrimSpace(text)
	if name == "" {
		return weather.Location{}, errorsx.Wrap(errorsx.ErrInvalidInput, "location must not be empty")
	}

	params := url.Values{
		"name":  {name},
		"count": {"1"},
	}

	var resp response
	if err := c.client.Get(ctx, "search", c.baseURL+"/search?"+params.Encode(), &resp); err != nil {
		return weather.Location{}, err
	}

	if len(resp.Results) == 0 {
		slog.InfoContext(ctx, "Location not found", "location", name)
		return weather.Location{}, fmt.Errorf("%w: '%s'", errorsx.ErrLocationNotFound, text)
	}

	r := resp.Results[0]
	loc := weather.Location{
		Name:      r.Name,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Country:   r.Country,
		Timezone:  r.Timezone,
	}
	slog.DebugContext(ctx, "Geocoded location",
		"query", name,
		"name", loc.Name,
		"country", loc.Country,
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
	)
	return loc, nil
}

// Open-Meteo geocoding response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}
