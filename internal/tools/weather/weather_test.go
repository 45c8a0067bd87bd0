package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	rec   *weather.Record
	err   error
	calls []string
}

func (s *fakeService) Current(ctx context.Context, text string) (*weather.Record, error) {
	s.calls = append(s.calls, "current:"+text)
	return s.rec, s.err
}

func (s *fakeService) ForDate(ctx context.Context, text, date string) (*weather.Record, error) {
	s.calls = append(s.calls, "date:"+text+":"+date)
	if s.rec == nil {
		return nil, s.err
	}
	rec := *s.rec
	rec.Date = date
	return &rec, s.err
}

func sample() *weather.Record {
	return &weather.Record{
		Temperature: 18.5,
		FeelsLike:   17,
		Humidity:    60,
		WindSpeed:   12,
		WindGust:    25,
		Conditions:  "Overcast",
		Location:    "London",
	}
}

func TestCurrentTool_Execute(t *testing.T) {
	svc := &fakeService{rec: sample()}
	tool := NewCurrentTool(svc)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"London"}`))
	require.NoError(t, err)

	assert.JSONEq(t, `{"temperature":18.5,"feelsLike":17,"humidity":60,"windSpeed":12,"windGust":25,
		"conditions":"Overcast","location":"London"}`, out)
	assert.Equal(t, []string{"current:London"}, svc.calls)
}

func TestDateTool_Execute(t *testing.T) {
	svc := &fakeService{rec: sample()}
	tool := NewDateTool(svc)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"location":"London","date":"2024-01-15"}`))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "2024-01-15", got["date"])
	assert.Equal(t, "London", got["location"])
	assert.Equal(t, []string{"date:London:2024-01-15"}, svc.calls)
}

func TestTools_InvalidInputNeverReachesService(t *testing.T) {
	tests := []struct {
		name string
		run  func(svc *fakeService) error
	}{
		{"current missing location", func(svc *fakeService) error {
			_, err := NewCurrentTool(svc).Execute(context.Background(), json.RawMessage(`{}`))
			return err
		}},
		{"current empty args", func(svc *fakeService) error {
			_, err := NewCurrentTool(svc).Execute(context.Background(), nil)
			return err
		}},
		{"current wrong type", func(svc *fakeService) error {
			_, err := NewCurrentTool(svc).Execute(context.Background(), json.RawMessage(`{"location":42}`))
			return err
		}},
		{"date missing date", func(svc *fakeService) error {
			_, err := NewDateTool(svc).Execute(context.Background(), json.RawMessage(`{"location":"Paris"}`))
			return err
		}},
		{"date bad format", func(svc *fakeService) error {
			_, err := NewDateTool(svc).Execute(context.Background(), json.RawMessage(`{"location":"Paris","date":"15/01/2024"}`))
			return err
		}},
		{"date not json", func(svc *fakeService) error {
			_, err := NewDateTool(svc).Execute(context.Background(), json.RawMessage(`location=Paris`))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{rec: sample()}
			err := tt.run(svc)
			require.ErrorIs(t, err, errorsx.ErrInvalidInput)
			assert.Empty(t, svc.calls)
		})
	}
}

func TestTools_PropagateErrors(t *testing.T) {
	notFound := fmt.Errorf("%w: 'Atlantis'", errorsx.ErrLocationNotFound)
	svc := &fakeService{err: notFound}

	_, err := NewCurrentTool(svc).Execute(context.Background(), json.RawMessage(`{"location":"Atlantis"}`))
	assert.Equal(t, notFound, err)

	_, err = NewDateTool(svc).Execute(context.Background(), json.RawMessage(`{"location":"Atlantis","date":"2024-01-15"}`))
	assert.ErrorIs(t, err, errorsx.ErrLocationNotFound)
}

func TestTools_Schemas(t *testing.T) {
	current := NewCurrentTool(&fakeService{})
	date := NewDateTool(&fakeService{})

	assert.Equal(t, "get_weather", current.Name())
	assert.Equal(t, "get_weather_by_date", date.Name())

	in := date.Parameters()
	assert.Equal(t, "object", in["type"])
	assert.ElementsMatch(t, []interface{}{"location", "date"}, in["required"])
	props := in["properties"].(map[string]interface{})
	dateProp := props["date"].(map[string]interface{})
	assert.Equal(t, "^[0-9]{4}-[0-9]{2}-[0-9]{2}$", dateProp["pattern"])
	assert.NotContains(t, in, "$schema")

	assert.ElementsMatch(t, []interface{}{"location"}, current.Parameters()["required"])

	currentOut := current.OutputSchema()["required"].([]interface{})
	assert.NotContains(t, currentOut, "date")
	assert.Contains(t, currentOut, "feelsLike")

	currentProps := current.OutputSchema()["properties"].(map[string]interface{})
	assert.NotContains(t, currentProps, "date", "get_weather never returns a date")
	assert.Contains(t, currentProps, "conditions")

	dateOut := date.OutputSchema()["required"].([]interface{})
	assert.Contains(t, dateOut, "date")
	assert.Len(t, dateOut, len(currentOut)+1)
	assert.Contains(t, date.OutputSchema()["properties"], "date")
}
