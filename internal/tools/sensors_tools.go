package tools

import (
	"context"
	"sort"

	"github.com/loxone-mcp/bridge/internal/discovery"
	"github.com/loxone-mcp/bridge/internal/loxerr"
)

const defaultDiscoverySeconds = 60

// SensorSummary is one discovered sensor's serialized view.
type SensorSummary struct {
	UUID         string  `json:"uuid"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	PatternScore float64 `json:"pattern_score"`
	UpdateCount  int     `json:"update_count"`
	FirstSeen    int64   `json:"first_seen"`
	LastUpdated  int64   `json:"last_updated"`
}

func toSensorSummary(s discovery.DiscoveredSensor) SensorSummary {
	return SensorSummary{
		UUID:         s.UUID,
		Category:     string(s.Category),
		Confidence:   s.Confidence,
		PatternScore: s.PatternScore,
		UpdateCount:  s.UpdateCount,
		FirstSeen:    s.FirstSeen,
		LastUpdated:  s.LastUpdated,
	}
}

// RediscoverSensorsResponse is rediscover_sensors' output.
type RediscoverSensorsResponse struct {
	Sensors       []SensorSummary `json:"sensors"`
	Count         int             `json:"count"`
	DiscoveryTime int             `json:"discovery_time"`
	Error         string          `json:"error,omitempty"`
}

// RediscoverSensors runs a fresh bounded discovery window and returns its
// classification. discoverySeconds <= 0 falls back to the 60 s default
// named in spec.md §4.12.
func (tc *ToolContext) RediscoverSensors(ctx context.Context, discoverySeconds int) RediscoverSensorsResponse {
	if tc.Discoverer == nil {
		return RediscoverSensorsResponse{Error: errString(loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "sensor discovery not available"))}
	}
	window := discoverySeconds
	if window <= 0 {
		window = defaultDiscoverySeconds
	}

	results, err := tc.Discoverer.Discover(ctx, window)
	if err != nil {
		return RediscoverSensorsResponse{Error: errString(err), DiscoveryTime: window}
	}

	sensors := make([]SensorSummary, 0, len(results))
	for _, r := range results {
		sensors = append(sensors, toSensorSummary(r))
	}
	return RediscoverSensorsResponse{Sensors: sensors, Count: len(sensors), DiscoveryTime: window}
}

// ListDiscoveredSensorsResponse is list_discovered_sensors' output.
type ListDiscoveredSensorsResponse struct {
	Sensors []SensorSummary `json:"sensors"`
	Count   int             `json:"count"`
	Error   string          `json:"error,omitempty"`
}

// ListDiscoveredSensors returns the most recently completed discovery
// result without running a new window.
func (tc *ToolContext) ListDiscoveredSensors() ListDiscoveredSensorsResponse {
	if tc.Discoverer == nil {
		return ListDiscoveredSensorsResponse{Error: errString(loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "sensor discovery not available"))}
	}
	results := tc.Discoverer.Latest()
	sensors := make([]SensorSummary, 0, len(results))
	for _, r := range results {
		sensors = append(sensors, toSensorSummary(r))
	}
	return ListDiscoveredSensorsResponse{Sensors: sensors, Count: len(sensors)}
}

// GetSensorDetailsResponse is get_sensor_details' output.
type GetSensorDetailsResponse struct {
	Sensor *SensorSummary `json:"sensor,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// GetSensorDetails looks up one sensor's last classification by UUID.
func (tc *ToolContext) GetSensorDetails(uuid string) GetSensorDetailsResponse {
	if tc.Discoverer == nil {
		return GetSensorDetailsResponse{Error: errString(loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "sensor discovery not available"))}
	}
	for _, r := range tc.Discoverer.Latest() {
		if r.UUID == uuid {
			s := toSensorSummary(r)
			return GetSensorDetailsResponse{Sensor: &s}
		}
	}
	return GetSensorDetailsResponse{Error: "Device not found: " + uuid}
}

// CategoryCount is one sensor category's population row.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// GetSensorCategoriesResponse is get_sensor_categories' output.
type GetSensorCategoriesResponse struct {
	Categories []CategoryCount `json:"categories"`
	Error      string          `json:"error,omitempty"`
}

// GetSensorCategories tallies the most recent discovery result by category.
func (tc *ToolContext) GetSensorCategories() GetSensorCategoriesResponse {
	if tc.Discoverer == nil {
		return GetSensorCategoriesResponse{Error: errString(loxerr.New(loxerr.KindCapabilityUnavailable, loxerr.ErrCapabilityUnavailable, "sensor discovery not available"))}
	}
	counts := make(map[string]int)
	for _, r := range tc.Discoverer.Latest() {
		counts[string(r.Category)]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CategoryCount, 0, len(names))
	for _, name := range names {
		out = append(out, CategoryCount{Category: name, Count: counts[name]})
	}
	return GetSensorCategoriesResponse{Categories: out}
}
