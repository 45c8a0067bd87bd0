package weather

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/8adimka/Go_Weather_Agent/internal/httpx"
)

// Fields requested from the current and hourly endpoints
var snapshotFields = []string{
	"temperature_2m",
	"apparent_temperature",
	"relative_humidity_2m",
	"wind_speed_10m",
	"wind_gusts_10m",
	"weather_code",
}

var dailyFields = []string{
	"temperature_2m_max",
	"temperature_2m_min",
	"apparent_temperature_max",
	"apparent_temperature_min",
	"relative_humidity_2m_mean",
	"wind_speed_10m_max",
	"wind_gusts_10m_max",
	"weather_code",
}

// Provider fetches the three upstream shapes. Fields Open-Meteo reports as
// null decode to nil pointers.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) (*CurrentConditions, error)
	Archive(ctx context.Context, lat, lon float64, date string) (*HourlySeries, error)
	DailyForecast(ctx context.Context, lat, lon float64) (*DailySeries, error)
}

// CurrentConditions is the "current" block of the forecast endpoint
type CurrentConditions struct {
	Time                string   `json:"time"`
	Temperature         *float64 `json:"temperature_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	RelativeHumidity    *float64 `json:"relative_humidity_2m"`
	WindSpeed           *float64 `json:"wind_speed_10m"`
	WindGusts           *float64 `json:"wind_gusts_10m"`
	WeatherCode         *int     `json:"weather_code"`
}

// HourlySeries is the "hourly" block of the archive endpoint
type HourlySeries struct {
	Time                []string   `json:"time"`
	Temperature         []*float64 `json:"temperature_2m"`
	ApparentTemperature []*float64 `json:"apparent_temperature"`
	RelativeHumidity    []*float64 `json:"relative_humidity_2m"`
	WindSpeed           []*float64 `json:"wind_speed_10m"`
	WindGusts           []*float64 `json:"wind_gusts_10m"`
	WeatherCode         []*int     `json:"weather_code"`
}

// DailySeries is the "daily" block of the forecast endpoint
type DailySeries struct {
	Time                   []string   `json:"time"`
	TemperatureMax         []*float64 `json:"temperature_2m_max"`
	TemperatureMin         []*float64 `json:"temperature_2m_min"`
	ApparentTemperatureMax []*float64 `json:"apparent_temperature_max"`
	ApparentTemperatureMin []*float64 `json:"apparent_temperature_min"`
	RelativeHumidityMean   []*float64 `json:"relative_humidity_2m_mean"`
	WindSpeedMax           []*float64 `json:"wind_speed_10m_max"`
	WindGustsMax           []*float64 `json:"wind_gusts_10m_max"`
	WeatherCode            []*int     `json:"weather_code"`
}

// OpenMeteoClient implements Provider against the Open-Meteo forecast and archive APIs
type OpenMeteoClient struct {
	forecastBase string
	archiveBase  string
	client       *httpx.JSONClient
}

// NewOpenMeteoClient creates a provider. Base URLs carry the version path,
// e.g. https://api.open-meteo.com/v1.
func NewOpenMeteoClient(client *httpx.JSONClient, forecastBase, archiveBase string) *OpenMeteoClient {
	return &OpenMeteoClient{
		forecastBase: strings.TrimRight(forecastBase, "/"),
		archiveBase:  strings.TrimRight(archiveBase, "/"),
		client:       client,
	}
}

// Current returns the live snapshot. A response without a "current" block
// yields nil conditions and no error.
func (c *OpenMeteoClient) Current(ctx context.Context, lat, lon float64) (*CurrentConditions, error) {
	q := coordinates(lat, lon)
	q.Set("current", strings.Join(snapshotFields, ","))

	var resp struct {
		Current *CurrentConditions `json:"current"`
	}
	if err := c.client.Get(ctx, "current", c.forecastBase+"/forecast?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Current, nil
}

// Archive returns the hourly series for exactly one date
func (c *OpenMeteoClient) Archive(ctx context.Context, lat, lon float64, date string) (*HourlySeries, error) {
	q := coordinates(lat, lon)
	q.Set("start_date", date)
	q.Set("end_date", date)
	q.Set("hourly", strings.Join(snapshotFields, ","))

	var resp struct {
		Hourly *HourlySeries `json:"hourly"`
	}
	if err := c.client.Get(ctx, "archive", c.archiveBase+"/archive?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Hourly, nil
}

// DailyForecast returns the daily aggregates in the location's own time zone
func (c *OpenMeteoClient) DailyForecast(ctx context.Context, lat, lon float64) (*DailySeries, error) {
	q := coordinates(lat, lon)
	q.Set("daily", strings.Join(dailyFields, ","))
	q.Set("timezone", "auto")

	var resp struct {
		Daily *DailySeries `json:"daily"`
	}
	if err := c.client.Get(ctx, "forecast", c.forecastBase+"/forecast?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Daily, nil
}

func coordinates(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return q
}
