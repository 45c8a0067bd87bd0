package factory

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/config"
	"github.com/8adimka/Go_Weather_Agent/internal/geocoding"
	"github.com/8adimka/Go_Weather_Agent/internal/httpx"
	"github.com/8adimka/Go_Weather_Agent/internal/metrics"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/datetime"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/registry"
	weathertool "github.com/8adimka/Go_Weather_Agent/internal/tools/weather"
	"github.com/8adimka/Go_Weather_Agent/internal/weather"
	"github.com/jonboulle/clockwork"
)

// Factory creates and registers all available tools
type Factory struct {
	registry *registry.ToolRegistry
	config   *config.Config
	http     *http.Client
	metrics  *metrics.Metrics
	clock    clockwork.Clock
}

// NewFactory creates a new tool factory. httpClient is shared by all
// Open-Meteo clients; m may be nil.
func NewFactory(cfg *config.Config, httpClient *http.Client, m *metrics.Metrics, clock clockwork.Clock) *Factory {
	return &Factory{
		registry: registry.NewToolRegistry(m),
		config:   cfg,
		http:     httpClient,
		metrics:  m,
		clock:    clock,
	}
}

// CreateAllTools builds the weather service and registers every tool
func (f *Factory) CreateAllTools() (*registry.ToolRegistry, error) {
	slog.Info("Creating and registering tools")

	zone, err := f.config.Location()
	if err != nil {
		return nil, err
	}

	weatherService := f.weatherService(zone)

	f.registry.Register(datetime.New(f.clock, zone))
	f.registry.Register(weathertool.NewCurrentTool(weatherService))
	f.registry.Register(weathertool.NewDateTool(weatherService))

	slog.Info("All tools registered successfully", "count", f.registry.Count())
	return f.registry, nil
}

func (f *Factory) weatherService(zone *time.Location) *weather.Service {
	geocoder := geocoding.NewClient(&httpx.JSONClient{
		HTTP:    f.http,
		Service: "open-meteo-geocoding",
		Metrics: f.metrics,
	}, f.config.GeocodingBaseURL)

	provider := weather.NewOpenMeteoClient(&httpx.JSONClient{
		HTTP:    f.http,
		Service: "open-meteo",
		Metrics: f.metrics,
	}, f.config.ForecastBaseURL, f.config.ArchiveBaseURL)

	return weather.NewService(geocoder, provider,
		weather.WithClock(f.clock),
		weather.WithDefaultZone(zone),
	)
}
