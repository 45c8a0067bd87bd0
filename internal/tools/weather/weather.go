package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/registry"
	"github.com/8adimka/Go_Weather_Agent/internal/weather"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Service is the part of weather.Service the tools depend on
type Service interface {
	Current(ctx context.Context, text string) (*weather.Record, error)
	ForDate(ctx context.Context, text, date string) (*weather.Record, error)
}

// CurrentInput is the argument object of get_weather
type CurrentInput struct {
	Location string `json:"location" jsonschema:"description=City name" validate:"required"`
}

// DateInput is the argument object of get_weather_by_date
type DateInput struct {
	Location string `json:"location" jsonschema:"description=City name" validate:"required"`
	Date     string `json:"date" jsonschema:"description=Date in YYYY-MM-DD format (e.g. 2024-01-15),pattern=^[0-9]{4}-[0-9]{2}-[0-9]{2}$" validate:"required,datetime=2006-01-02"`
}

// CurrentTool reports the weather right now
type CurrentTool struct {
	service Service
	input   map[string]interface{}
	output  map[string]interface{}
}

// NewCurrentTool creates the get_weather tool
func NewCurrentTool(service Service) *CurrentTool {
	return &CurrentTool{
		service: service,
		input:   registry.SchemaFor(&CurrentInput{}),
		output:  registry.OmitFields(registry.SchemaFor(&weather.Record{}), "date"),
	}
}

func (t *CurrentTool) Name() string {
	return "get_weather"
}

func (t *CurrentTool) Description() string {
	return "Get current weather for a location"
}

func (t *CurrentTool) Parameters() map[string]interface{} {
	return t.input
}

func (t *CurrentTool) OutputSchema() map[string]interface{} {
	return t.output
}

func (t *CurrentTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in CurrentInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Getting current weather", "location", in.Location)

	rec, err := t.service.Current(ctx, in.Location)
	if err != nil {
		return "", err
	}
	return encode(rec)
}

// DateTool reports the weather for a past, current or future date
type DateTool struct {
	service Service
	input   map[string]interface{}
	output  map[string]interface{}
}

// NewDateTool creates the get_weather_by_date tool
func NewDateTool(service Service) *DateTool {
	return &DateTool{
		service: service,
		input:   registry.SchemaFor(&DateInput{}),
		output:  registry.RequireFields(registry.SchemaFor(&weather.Record{}), "date"),
	}
}

func (t *DateTool) Name() string {
	return "get_weather_by_date"
}

func (t *DateTool) Description() string {
	return "Get weather for a location on a specific date (supports past and future dates)"
}

func (t *DateTool) Parameters() map[string]interface{} {
	return t.input
}

func (t *DateTool) OutputSchema() map[string]interface{} {
	return t.output
}

func (t *DateTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in DateInput
	if err := decodeArgs(args, &in); err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Getting weather by date", "location", in.Location, "date", in.Date)

	rec, err := t.service.ForDate(ctx, in.Location, in.Date)
	if err != nil {
		return "", err
	}
	return encode(rec)
}

// decodeArgs unmarshals and validates tool arguments. Every failure is
// reported as invalid input so no network call happens.
func decodeArgs(args json.RawMessage, dest interface{}) error {
	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, dest); err != nil {
		return errorsx.Wrapf(errorsx.ErrInvalidInput, "decode arguments: %v", err)
	}
	if err := validate.Struct(dest); err != nil {
		return errorsx.Wrap(errorsx.ErrInvalidInput, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be in YYYY-MM-DD format, got %q", field, fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func encode(rec *weather.Record) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode weather record: %w", err)
	}
	return string(b), nil
}

var (
	_ registry.Tool = (*CurrentTool)(nil)
	_ registry.Tool = (*DateTool)(nil)
)
