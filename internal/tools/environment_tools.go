package tools

import (
	"sort"
	"strings"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

// SensorReading is one environmental sensor's current mirrored value.
type SensorReading struct {
	UUID  string      `json:"uuid"`
	Name  string      `json:"name"`
	Room  string      `json:"room"`
	Value ltype.Value `json:"value"`
}

var (
	temperatureKeywords = []string{"temperatur", "temperature"}
	humidityKeywords    = []string{"feuchtigkeit", "humidity", "luftfeuchte"}
	brightnessKeywords  = []string{"helligkeit", "brightness", "lux"}
	climateTypes        = map[string]struct{}{
		"IRoomController": {}, "IRoomControllerV2": {}, "AcControl": {},
	}
)

func nameHasAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// readingsByKeyword scans every device whose name matches keywords,
// optionally scoped to a resolved room, and reads its current mirrored
// value (the zero Value if never observed).
func (tc *ToolContext) readingsByKeyword(cat *catalog.Catalog, keywords []string, roomFilter string) []SensorReading {
	var roomUUID string
	hasRoomFilter := roomFilter != ""
	if hasRoomFilter {
		rooms := ResolveRoom(cat, roomFilter)
		if len(rooms) > 0 {
			roomUUID = rooms[0].UUID
		}
	}

	uuids := make([]string, 0, len(cat.Devices))
	for uuid := range cat.Devices {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	var out []SensorReading
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		if hasRoomFilter && dev.RoomUUID != roomUUID {
			continue
		}
		if !nameHasAny(dev.Name, keywords) {
			continue
		}
		value, _ := tc.Mirror.Get(dev.UUID)
		out = append(out, SensorReading{UUID: dev.UUID, Name: dev.Name, Room: dev.RoomName, Value: value})
	}
	return out
}

// ReadingsResponse is the shared shape for the per-quantity overview tools.
type ReadingsResponse struct {
	Readings []SensorReading `json:"readings"`
	Count    int             `json:"count"`
	Error    string          `json:"error,omitempty"`
}

// GetTemperatureOverview lists temperature sensor readings, optionally
// scoped to one room.
func (tc *ToolContext) GetTemperatureOverview(room string) ReadingsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return ReadingsResponse{Error: errString(err)}
	}
	readings := tc.readingsByKeyword(cat, temperatureKeywords, room)
	return ReadingsResponse{Readings: readings, Count: len(readings)}
}

// GetHumidityOverview lists humidity sensor readings, optionally scoped to
// one room.
func (tc *ToolContext) GetHumidityOverview(room string) ReadingsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return ReadingsResponse{Error: errString(err)}
	}
	readings := tc.readingsByKeyword(cat, humidityKeywords, room)
	return ReadingsResponse{Readings: readings, Count: len(readings)}
}

// GetBrightnessLevels lists brightness/lux sensor readings across every
// room.
func (tc *ToolContext) GetBrightnessLevels() ReadingsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return ReadingsResponse{Error: errString(err)}
	}
	readings := tc.readingsByKeyword(cat, brightnessKeywords, "")
	return ReadingsResponse{Readings: readings, Count: len(readings)}
}

// GetOutdoorConditionsResponse is get_outdoor_conditions' output: the
// weatherServer state block's values, read from the mirror.
type GetOutdoorConditionsResponse struct {
	Conditions map[string]ltype.Value `json:"conditions"`
	Error      string                 `json:"error,omitempty"`
}

// weatherStateReadings resolves every weatherServer.states entry
// (state name -> UUID) to its current mirrored value.
func (tc *ToolContext) weatherStateReadings(cat *catalog.Catalog) (map[string]ltype.Value, error) {
	if cat.WeatherServer == nil {
		return nil, errCapability("weather service not present on this Miniserver")
	}
	out := make(map[string]ltype.Value, len(cat.WeatherServer.States))
	for name, uuid := range cat.WeatherServer.States {
		value, _ := tc.Mirror.Get(uuid)
		out[name] = value
	}
	return out, nil
}

// GetOutdoorConditions returns the outdoor weather state block.
func (tc *ToolContext) GetOutdoorConditions() GetOutdoorConditionsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetOutdoorConditionsResponse{Error: errString(err)}
	}
	conditions, err := tc.weatherStateReadings(cat)
	if err != nil {
		return GetOutdoorConditionsResponse{Error: errString(err)}
	}
	return GetOutdoorConditionsResponse{Conditions: conditions}
}

// GetWeatherDataResponse is get_weather_data's output: the same state
// block as get_outdoor_conditions, plus the format/field-type metadata the
// structure file carries for it.
type GetWeatherDataResponse struct {
	Conditions        map[string]ltype.Value `json:"conditions"`
	Format            string                 `json:"format,omitempty"`
	WeatherFieldTypes []string               `json:"weather_field_types,omitempty"`
	Error             string                 `json:"error,omitempty"`
}

// GetWeatherData returns the full weatherServer state block plus its
// structure-file metadata.
func (tc *ToolContext) GetWeatherData() GetWeatherDataResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetWeatherDataResponse{Error: errString(err)}
	}
	conditions, err := tc.weatherStateReadings(cat)
	if err != nil {
		return GetWeatherDataResponse{Error: errString(err)}
	}
	return GetWeatherDataResponse{
		Conditions:        conditions,
		Format:            cat.WeatherServer.Format,
		WeatherFieldTypes: cat.WeatherServer.WeatherFieldTypes,
	}
}

// EnvironmentalSummaryResponse is get_environmental_summary's output.
type EnvironmentalSummaryResponse struct {
	Temperature []SensorReading `json:"temperature"`
	Humidity    []SensorReading `json:"humidity"`
	Brightness  []SensorReading `json:"brightness"`
	Error       string          `json:"error,omitempty"`
}

// GetEnvironmentalSummary combines the temperature, humidity, and
// brightness overviews into one response.
func (tc *ToolContext) GetEnvironmentalSummary() EnvironmentalSummaryResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return EnvironmentalSummaryResponse{Error: errString(err)}
	}
	return EnvironmentalSummaryResponse{
		Temperature: tc.readingsByKeyword(cat, temperatureKeywords, ""),
		Humidity:    tc.readingsByKeyword(cat, humidityKeywords, ""),
		Brightness:  tc.readingsByKeyword(cat, brightnessKeywords, ""),
	}
}

// ClimateDevice is one climate-controller device with its current state
// values, as returned by get_climate_summary / get_climate_control.
type ClimateDevice struct {
	UUID   string                 `json:"uuid"`
	Name   string                 `json:"name"`
	Room   string                 `json:"room"`
	States map[string]ltype.Value `json:"states"`
}

func (tc *ToolContext) climateDevices(cat *catalog.Catalog) []ClimateDevice {
	uuids := make([]string, 0, len(cat.Devices))
	for uuid := range cat.Devices {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	var out []ClimateDevice
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		if _, ok := climateTypes[dev.Type]; !ok {
			continue
		}
		states := make(map[string]ltype.Value, len(dev.StateRefs))
		for name, ref := range dev.StateRefs {
			value, _ := tc.Mirror.Get(ref)
			states[name] = value
		}
		out = append(out, ClimateDevice{UUID: dev.UUID, Name: dev.Name, Room: dev.RoomName, States: states})
	}
	return out
}

// ClimateResponse is the shared shape for get_climate_summary and
// get_climate_control.
type ClimateResponse struct {
	Devices []ClimateDevice `json:"devices"`
	Count   int             `json:"count"`
	Error   string          `json:"error,omitempty"`
}

// GetClimateSummary lists every climate-controller device with its live
// state values.
func (tc *ToolContext) GetClimateSummary() ClimateResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return ClimateResponse{Error: errString(err)}
	}
	devices := tc.climateDevices(cat)
	return ClimateResponse{Devices: devices, Count: len(devices)}
}

// GetClimateControl is an alias view over the same climate-controller
// inventory, kept as a distinct tool name per spec.md §6 since MCP hosts
// address tools by name, not by response shape.
func (tc *ToolContext) GetClimateControl() ClimateResponse {
	return tc.GetClimateSummary()
}
