package weather

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Geocoder resolves free text to a Location
type Geocoder interface {
	Resolve(ctx context.Context, text string) (Location, error)
}

// Service runs a full query: geocode, classify the date, resolve
type Service struct {
	geocoder Geocoder
	resolver *Resolver
	clock    clockwork.Clock
	zone     *time.Location
	tracer   trace.Tracer
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the clock that decides "today"
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithDefaultZone sets the zone used when the geocoder reports none
func WithDefaultZone(zone *time.Location) Option {
	return func(s *Service) {
		if zone != nil {
			s.zone = zone
		}
	}
}

// NewService creates a weather service
func NewService(geocoder Geocoder, provider Provider, opts ...Option) *Service {
	s := &Service{
		geocoder: geocoder,
		resolver: NewResolver(provider),
		clock:    clockwork.NewRealClock(),
		zone:     time.UTC,
		tracer:   otel.Tracer("github.com/8adimka/Go_Weather_Agent/internal/weather"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the live conditions for the place named by text
func (s *Service) Current(ctx context.Context, text string) (_ *Record, err error) {
	ctx, span := s.tracer.Start(ctx, "weather.Current", trace.WithAttributes(attribute.String("location.query", text)))
	defer func() { endSpan(span, err) }()

	loc, err := s.geocoder.Resolve(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(ctx, loc, Now())
}

// ForDate returns the weather for the place on date (YYYY-MM-DD). The date
// is checked before any network call; past/today/future is decided in the
// location's own time zone when the geocoder reports one.
func (s *Service) ForDate(ctx context.Context, text, date string) (_ *Record, err error) {
	ctx, span := s.tracer.Start(ctx, "weather.ForDate", trace.WithAttributes(
		attribute.String("location.query", text),
		attribute.String("date", date),
	))
	defer func() { endSpan(span, err) }()

	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	loc, err := s.geocoder.Resolve(ctx, text)
	if err != nil {
		return nil, err
	}

	target, err := Classify(date, s.clock.Now(), s.zoneFor(ctx, loc))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("target", target.Kind.String()))

	return s.resolver.Resolve(ctx, loc, target)
}

func (s *Service) zoneFor(ctx context.Context, loc Location) *time.Location {
	if loc.Timezone == "" {
		return s.zone
	}
	zone, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		slog.DebugContext(ctx, "Unknown location time zone, using default",
			"timezone", loc.Timezone, "default", s.zone.String())
		return s.zone
	}
	return zone
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
