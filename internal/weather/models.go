package weather

// Location is a geocoded place. Country and Timezone are informational
// and never part of a Record.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country,omitempty"`
	Timezone  string  `json:"timezone,omitempty"`
}

// Record is the normalized weather reading returned by both tools.
// Date is set only for date-qualified queries.
type Record struct {
	Temperature float64 `json:"temperature" jsonschema:"description=Air temperature in °C"`
	FeelsLike   float64 `json:"feelsLike" jsonschema:"description=Apparent temperature in °C"`
	Humidity    float64 `json:"humidity" jsonschema:"description=Relative humidity in percent"`
	WindSpeed   float64 `json:"windSpeed" jsonschema:"description=Wind speed at 10m in km/h"`
	WindGust    float64 `json:"windGust" jsonschema:"description=Wind gusts at 10m in km/h"`
	Conditions  string  `json:"conditions" jsonschema:"description=Human readable weather conditions"`
	Location    string  `json:"location" jsonschema:"description=Resolved location name"`
	Date        string  `json:"date,omitempty" jsonschema:"description=Requested date (YYYY-MM-DD)"`
}
