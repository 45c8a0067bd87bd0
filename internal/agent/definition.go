package agent

// Definition describes an agent: its persona, model and the tools it may call.
// Key identifies the agent in URLs; Name is for display.
type Definition struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Model        string   `json:"model"`
	Tools        []string `json:"tools"`
}

const weatherInstructions = `You are a helpful weather assistant.
Always ask for a location if none is provided.
If the location name is not in English, translate it before looking it up.
If a location has multiple parts (e.g. "New York, NY"), use the most relevant part (e.g. "New York").
Include relevant details like humidity, wind conditions and precipitation when available.
Keep responses concise but informative.
Use get_weather for current conditions and get_weather_by_date when the user asks about a specific day.
Use get_today_date to resolve relative dates such as "yesterday" or "next Friday" before calling get_weather_by_date.
Pass the location's IANA timezone to get_today_date when you know it, since dates are judged in the location's own time zone.`

// WeatherAgent returns the default weather agent definition
func WeatherAgent(model string) Definition {
	return Definition{
		Key:          "weather",
		Name:         "Weather Agent",
		Instructions: weatherInstructions,
		Model:        model,
		Tools:        []string{"get_weather", "get_weather_by_date", "get_today_date"},
	}
}

func (d Definition) allows(tool string) bool {
	if len(d.Tools) == 0 {
		return true
	}
	for _, name := range d.Tools {
		if name == tool {
			return true
		}
	}
	return false
}
