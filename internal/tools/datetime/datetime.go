package datetime

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/tools/registry"
	"github.com/jonboulle/clockwork"
)

// Output is the result of get_today_date
type Output struct {
	Now      string `json:"now" jsonschema:"description=Current time in RFC3339 format"`
	Date     string `json:"date" jsonschema:"description=Current date in YYYY-MM-DD format"`
	Timezone string `json:"timezone" jsonschema:"description=IANA time zone the date is expressed in"`
}

// Input is the optional argument object of get_today_date
type Input struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA time zone of the location the date is for (e.g. Asia/Tokyo). Defaults to the server reference zone."`
}

// DateTimeTool lets the agent turn relative dates into YYYY-MM-DD
type DateTimeTool struct {
	clock clockwork.Clock
	zone  *time.Location
}

// New creates a new DateTimeTool. A nil zone means UTC.
func New(clock clockwork.Clock, zone *time.Location) *DateTimeTool {
	if zone == nil {
		zone = time.UTC
	}
	return &DateTimeTool{clock: clock, zone: zone}
}

// Name returns the tool name
func (d *DateTimeTool) Name() string {
	return "get_today_date"
}

// Description returns the tool description
func (d *DateTimeTool) Description() string {
	return "Get today's date and time. Use it to resolve relative dates such as tomorrow or last Monday. " +
		"Weather dates are judged in the location's own time zone, so pass the location's IANA timezone " +
		"when you know it; otherwise the server reference zone (" + d.zone.String() + ") is used."
}

// Parameters returns the JSON schema for parameters
func (d *DateTimeTool) Parameters() map[string]interface{} {
	return registry.SchemaFor(&Input{})
}

func (d *DateTimeTool) OutputSchema() map[string]interface{} {
	return registry.SchemaFor(&Output{})
}

// Execute returns the current date and time in the requested zone
func (d *DateTimeTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in Input
	if len(strings.TrimSpace(string(args))) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", errorsx.Wrapf(errorsx.ErrInvalidInput, "decode arguments: %v", err)
		}
	}

	zone := d.zone
	if tz := strings.TrimSpace(in.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return "", errorsx.Wrapf(errorsx.ErrInvalidInput, "unknown timezone %q", tz)
		}
		zone = loc
	}

	now := d.clock.Now().In(zone)
	b, err := json.Marshal(Output{
		Now:      now.Format(time.RFC3339),
		Date:     now.Format("2006-01-02"),
		Timezone: zone.String(),
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Ensure DateTimeTool implements registry.Tool interface
var _ registry.Tool = (*DateTimeTool)(nil)
