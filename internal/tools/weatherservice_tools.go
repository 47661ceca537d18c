package tools

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/loxone-mcp/bridge/internal/ltype"
)

// GetWeatherServiceStatusResponse is get_weather_service_status's output.
type GetWeatherServiceStatusResponse struct {
	Available  bool   `json:"available"`
	StateCount int    `json:"state_count"`
	Format     string `json:"format,omitempty"`
	Error      string `json:"error,omitempty"`
}

// GetWeatherServiceStatus reports whether the structure file carries a
// weatherServer block at all, and how many states it exposes.
func (tc *ToolContext) GetWeatherServiceStatus() GetWeatherServiceStatusResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetWeatherServiceStatusResponse{Error: errString(err)}
	}
	if cat.WeatherServer == nil {
		return GetWeatherServiceStatusResponse{Available: false}
	}
	return GetWeatherServiceStatusResponse{
		Available:  true,
		StateCount: len(cat.WeatherServer.States),
		Format:     cat.WeatherServer.Format,
	}
}

// GetWeatherCurrentResponse is get_weather_current's output: the same
// reading set as get_weather_data, under the weather-service tool name a
// caller might reach for instead.
type GetWeatherCurrentResponse struct {
	Conditions map[string]ltype.Value `json:"conditions"`
	Error      string                 `json:"error,omitempty"`
}

// GetWeatherCurrent returns the live weatherServer state readings.
func (tc *ToolContext) GetWeatherCurrent() GetWeatherCurrentResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetWeatherCurrentResponse{Error: errString(err)}
	}
	conditions, err := tc.weatherStateReadings(cat)
	if err != nil {
		return GetWeatherCurrentResponse{Error: errString(err)}
	}
	return GetWeatherCurrentResponse{Conditions: conditions}
}

// ForecastDay is one forecast-bucket row, read from weatherServer state
// names that carry a "dayN" / "hourN" index suffix (the Miniserver's own
// multi-day weather forecast sub-states, when present).
type ForecastDay struct {
	Label  string                 `json:"label"`
	Values map[string]ltype.Value `json:"values"`
}

// GetWeatherForecastResponse is get_weather_forecast's output.
type GetWeatherForecastResponse struct {
	Forecast []ForecastDay `json:"forecast"`
	Error    string        `json:"error,omitempty"`
}

// forecastIndex extracts a trailing "_N"/"N" numeric bucket index from a
// weatherServer state name, e.g. "temp_day3" -> ("temp", 3). Returns ok=false
// for state names that carry no bucket suffix (current-condition states).
func forecastIndex(stateName string) (base string, idx int, ok bool) {
	lower := strings.ToLower(stateName)
	for _, marker := range []string{"day", "hour", "forecast"} {
		pos := strings.LastIndex(lower, marker)
		if pos < 0 {
			continue
		}
		suffix := lower[pos+len(marker):]
		suffix = strings.TrimPrefix(suffix, "_")
		n := 0
		digits := 0
		for _, r := range suffix {
			if r < '0' || r > '9' {
				break
			}
			n = n*10 + int(r-'0')
			digits++
		}
		if digits > 0 {
			return strings.TrimSuffix(stateName[:pos], "_"), n, true
		}
	}
	return "", 0, false
}

// GetWeatherForecast builds a per-bucket forecast view from any
// day/hour-indexed weatherServer states the structure file defines. When
// the Miniserver's weather block carries only current-condition states
// (the common Gen-1 case), the forecast list is empty rather than an
// error, since "no forecast data" is a valid, non-failure answer.
func (tc *ToolContext) GetWeatherForecast() GetWeatherForecastResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetWeatherForecastResponse{Error: errString(err)}
	}
	if cat.WeatherServer == nil {
		return GetWeatherForecastResponse{Error: errString(errCapability("weather service not present on this Miniserver"))}
	}

	buckets := make(map[int]map[string]ltype.Value)
	names := make([]string, 0, len(cat.WeatherServer.States))
	for name := range cat.WeatherServer.States {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base, idx, ok := forecastIndex(name)
		if !ok {
			continue
		}
		if buckets[idx] == nil {
			buckets[idx] = make(map[string]ltype.Value)
		}
		value, _ := tc.Mirror.Get(cat.WeatherServer.States[name])
		buckets[idx][base] = value
	}

	indices := make([]int, 0, len(buckets))
	for idx := range buckets {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	forecast := make([]ForecastDay, 0, len(indices))
	for _, idx := range indices {
		forecast = append(forecast, ForecastDay{Label: forecastLabel(idx), Values: buckets[idx]})
	}
	return GetWeatherForecastResponse{Forecast: forecast}
}

func forecastLabel(idx int) string {
	if idx == 0 {
		return "today"
	}
	return "+" + strconv.Itoa(idx)
}

// DiagnoseWeatherServiceResponse is diagnose_weather_service's output.
type DiagnoseWeatherServiceResponse struct {
	StructurePresent bool   `json:"structure_present"`
	ReachableProbe   bool   `json:"reachable_probe"`
	StateCount       int    `json:"state_count"`
	Detail           string `json:"detail,omitempty"`
	Error            string `json:"error,omitempty"`
}

// DiagnoseWeatherService checks both layers a weather-data request depends
// on: whether the structure file declared a weatherServer block, and
// whether the command channel can currently reach the Miniserver at all.
func (tc *ToolContext) DiagnoseWeatherService(ctx context.Context) DiagnoseWeatherServiceResponse {
	cat := tc.Catalog()
	resp := DiagnoseWeatherServiceResponse{}
	if cat == nil {
		resp.Detail = "structure catalogue not loaded"
		return resp
	}
	if cat.WeatherServer != nil {
		resp.StructurePresent = true
		resp.StateCount = len(cat.WeatherServer.States)
	} else {
		resp.Detail = "no weatherServer block in structure file"
	}

	if tc.Commands != nil {
		if err := tc.Commands.CheckReachable(ctx); err == nil {
			resp.ReachableProbe = true
		} else {
			resp.Detail += "; reachability probe failed: " + err.Error()
		}
	}
	return resp
}
