package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/httpx"
)

// Resolver turns a location and a target into one Record
type Resolver struct {
	provider Provider
}

// NewResolver creates a resolver backed by provider
func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve fetches the shape matching target.Kind and normalizes it.
// The record's location is always the resolved name, never the caller's text.
func (r *Resolver) Resolve(ctx context.Context, loc Location, target Target) (*Record, error) {
	var (
		rec *Record
		err error
	)

	switch target.Kind {
	case KindPast:
		rec, err = r.past(ctx, loc, target.Date)
	case KindFuture:
		rec, err = r.future(ctx, loc, target.Date)
	case KindNow, KindToday:
		rec, err = r.current(ctx, loc)
	default:
		return nil, fmt.Errorf("unsupported target kind %d", target.Kind)
	}
	if err != nil {
		return nil, err
	}

	rec.Location = loc.Name
	if target.Dated() {
		rec.Date = target.Date
	}

	slog.DebugContext(ctx, "Resolved weather",
		"location", loc.Name,
		"target", target.Kind.String(),
		"date", target.Date,
		"conditions", rec.Conditions,
	)
	return rec, nil
}

// past picks the midpoint of the archive's hourly series (index 12 of 24)
func (r *Resolver) past(ctx context.Context, loc Location, date string) (*Record, error) {
	hourly, err := r.provider.Archive(ctx, loc.Latitude, loc.Longitude, date)
	if err != nil {
		return nil, branchError(errorsx.ErrNoDataForDate, date, err)
	}
	if hourly == nil || len(hourly.Temperature) == 0 {
		return nil, fmt.Errorf("%w for %s", errorsx.ErrNoDataForDate, date)
	}

	i := len(hourly.Temperature) / 2
	var p picker
	rec := &Record{
		Temperature: p.num("temperature_2m", hourly.Temperature, i),
		FeelsLike:   p.num("apparent_temperature", hourly.ApparentTemperature, i),
		Humidity:    p.num("relative_humidity_2m", hourly.RelativeHumidity, i),
		WindSpeed:   p.num("wind_speed_10m", hourly.WindSpeed, i),
		WindGust:    p.num("wind_gusts_10m", hourly.WindGusts, i),
		Conditions:  Translate(p.code(hourly.WeatherCode, i)),
	}
	if len(p.missing) > 0 {
		return nil, fmt.Errorf("%w for %s: missing %s", errorsx.ErrNoDataForDate, date, strings.Join(p.missing, ", "))
	}
	return rec, nil
}

// future averages the max/min of the day whose timestamp starts with date
func (r *Resolver) future(ctx context.Context, loc Location, date string) (*Record, error) {
	daily, err := r.provider.DailyForecast(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, branchError(errorsx.ErrForecastUnavailable, date, err)
	}
	if daily == nil || len(daily.Time) == 0 {
		return nil, fmt.Errorf("%w for %s", errorsx.ErrForecastUnavailable, date)
	}

	i := -1
	for idx, t := range daily.Time {
		if strings.HasPrefix(t, date) {
			i = idx
			break
		}
	}
	if i < 0 {
		return nil, fmt.Errorf("%w for %s", errorsx.ErrForecastUnavailable, date)
	}

	var p picker
	rec := &Record{
		Temperature: mean(p.num("temperature_2m_max", daily.TemperatureMax, i), p.num("temperature_2m_min", daily.TemperatureMin, i)),
		FeelsLike:   mean(p.num("apparent_temperature_max", daily.ApparentTemperatureMax, i), p.num("apparent_temperature_min", daily.ApparentTemperatureMin, i)),
		Humidity:    p.num("relative_humidity_2m_mean", daily.RelativeHumidityMean, i),
		WindSpeed:   p.num("wind_speed_10m_max", daily.WindSpeedMax, i),
		WindGust:    p.num("wind_gusts_10m_max", daily.WindGustsMax, i),
		Conditions:  Translate(p.code(daily.WeatherCode, i)),
	}
	if len(p.missing) > 0 {
		return nil, fmt.Errorf("%w for %s: missing %s", errorsx.ErrForecastUnavailable, date, strings.Join(p.missing, ", "))
	}
	return rec, nil
}

func (r *Resolver) current(ctx context.Context, loc Location) (*Record, error) {
	cur, err := r.provider.Current(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, branchError(errorsx.ErrCurrentUnavailable, loc.Name, err)
	}
	if cur == nil {
		return nil, fmt.Errorf("%w for %s", errorsx.ErrCurrentUnavailable, loc.Name)
	}

	var p picker
	rec := &Record{
		Temperature: p.value("temperature_2m", cur.Temperature),
		FeelsLike:   p.value("apparent_temperature", cur.ApparentTemperature),
		Humidity:    p.value("relative_humidity_2m", cur.RelativeHumidity),
		WindSpeed:   p.value("wind_speed_10m", cur.WindSpeed),
		WindGust:    p.value("wind_gusts_10m", cur.WindGusts),
	}
	if cur.WeatherCode == nil {
		p.missing = append(p.missing, "weather_code")
	} else {
		rec.Conditions = Translate(*cur.WeatherCode)
	}
	if len(p.missing) > 0 {
		return nil, fmt.Errorf("%w for %s: missing %s", errorsx.ErrCurrentUnavailable, loc.Name, strings.Join(p.missing, ", "))
	}
	return rec, nil
}

// branchError reports a payload that could not be decoded, or a request the
// upstream rejected with a 4xx reason, as the branch's "no data" kind.
// Transport errors and 5xx responses pass through unchanged.
func branchError(kind error, subject string, err error) error {
	if errors.Is(err, errorsx.ErrMalformedPayload) {
		return fmt.Errorf("%w for %s: %w", kind, subject, err)
	}
	if statusErr, ok := httpx.ClientError(err); ok {
		return fmt.Errorf("%w for %s: %v", kind, subject, statusErr)
	}
	return err
}

// picker reads series values, remembering which fields were absent or null
type picker struct {
	missing []string
}

func (p *picker) num(field string, series []*float64, i int) float64 {
	if i >= len(series) || series[i] == nil {
		p.missing = append(p.missing, field)
		return 0
	}
	return *series[i]
}

func (p *picker) code(series []*int, i int) int {
	if i >= len(series) || series[i] == nil {
		p.missing = append(p.missing, "weather_code")
		return 0
	}
	return *series[i]
}

func (p *picker) value(field string, v *float64) float64 {
	if v == nil {
		p.missing = append(p.missing, field)
		return 0
	}
	return *v
}

func mean(a, b float64) float64 {
	return (a + b) / 2
}
