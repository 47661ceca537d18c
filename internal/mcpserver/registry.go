// Package mcpserver implements C11, the MCP transport server: the stdio
// and HTTP+SSE launch modes of spec.md §4.11, built over the tool
// dispatcher C10 (internal/tools) already exposes. The tool roster itself
// is data-driven (one ToolSpec per spec.md §6 tool name) rather than 41
// hand-written registration call sites, since both transports need the
// exact same roster and spec.md names every one of them explicitly.
package mcpserver

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/loxone-mcp/bridge/internal/tools"
)

// ToolSpec is one MCP tool's transport-independent description: its name
// and description (surfaced by tools/list in both modes), an example zero
// value of its argument struct (used to derive a JSON Schema for the
// HTTP+SSE transport), and a handler that decodes raw JSON arguments and
// invokes the underlying C10 method.
type ToolSpec struct {
	Name        string
	Description string
	ArgsExample any
	Call        func(ctx context.Context, raw json.RawMessage) (any, error)
}

// Schema renders this tool's input as a JSON Schema object.
func (s ToolSpec) Schema() map[string]any {
	return schemaFromStruct(reflect.TypeOf(s.ArgsExample))
}

// decodeArgs unmarshals raw into v, leaving v at its zero value when raw
// is empty (a tool called with no arguments at all).
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// BuildRegistry returns every tool spec.md §6 names, bound to tc.
func BuildRegistry(tc *tools.ToolContext) []ToolSpec {
	return []ToolSpec{
		// Rooms
		{
			Name:        "list_rooms",
			Description: "List every room in the structure catalogue with its device count.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.ListRooms(), nil
			},
		},
		{
			Name:        "get_room_devices",
			Description: "List every device in a resolved room, optionally filtered by exact device type.",
			ArgsExample: tools.GetRoomDevicesRequest{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var req tools.GetRoomDevicesRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.GetRoomDevices(req), nil
			},
		},

		// Device control
		{
			Name:        "control_device",
			Description: "Send a generic pass-through command to a single device resolved by name or UUID.",
			ArgsExample: tools.ControlDeviceRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.ControlDeviceRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.ControlDevice(ctx, req), nil
			},
		},
		{
			Name:        "control_rolladen",
			Description: "Drive every Jalousie (or one named Jalousie) in a room: up, down, stop, or a target position.",
			ArgsExample: tools.ControlRolladenRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.ControlRolladenRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.ControlRolladen(ctx, req), nil
			},
		},
		{
			Name:        "control_light",
			Description: "Drive every light (or one named light) in a room: on, off, toggle, or dim to a brightness.",
			ArgsExample: tools.ControlLightRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.ControlLightRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.ControlLight(ctx, req), nil
			},
		},

		// Discovery
		{
			Name:        "discover_all_devices",
			Description: "Return the full device inventory grouped by room.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.DiscoverAllDevices(), nil
			},
		},
		{
			Name:        "get_devices_by_category",
			Description: "List devices for one named category, or every category bucket when omitted.",
			ArgsExample: CategoryArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args CategoryArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetDevicesByCategory(args.Category), nil
			},
		},
		{
			Name:        "get_devices_by_type",
			Description: "List devices of one exact Loxone control type, or every type bucket when omitted.",
			ArgsExample: DeviceTypeArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args DeviceTypeArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetDevicesByType(args.DeviceType), nil
			},
		},
		{
			Name:        "get_all_categories_overview",
			Description: "Summarize device counts per category.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetAllCategoriesOverview(), nil
			},
		},

		// Sensors
		{
			Name:        "rediscover_sensors",
			Description: "Run a fresh bounded discovery window and classify observed sensors.",
			ArgsExample: DiscoveryTimeArg{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args DiscoveryTimeArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.RediscoverSensors(ctx, args.DiscoveryTime), nil
			},
		},
		{
			Name:        "list_discovered_sensors",
			Description: "Return the most recently completed discovery result.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.ListDiscoveredSensors(), nil
			},
		},
		{
			Name:        "get_sensor_details",
			Description: "Look up one sensor's last classification by UUID.",
			ArgsExample: UUIDArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args UUIDArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetSensorDetails(args.UUID), nil
			},
		},
		{
			Name:        "get_sensor_categories",
			Description: "Tally the most recent discovery result by category.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetSensorCategories(), nil
			},
		},

		// State log
		{
			Name:        "get_sensor_state_history",
			Description: "Return the ring-buffered change history for one sensor UUID.",
			ArgsExample: UUIDArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args UUIDArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetSensorStateHistory(args.UUID), nil
			},
		},
		{
			Name:        "get_recent_sensor_changes",
			Description: "Return the most recent changes across every tracked sensor, newest first.",
			ArgsExample: LimitArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args LimitArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetRecentSensorChanges(args.Limit), nil
			},
		},
		{
			Name:        "get_door_window_activity",
			Description: "Summarize OPEN/CLOSED events over a trailing window, defaulting to 24 hours.",
			ArgsExample: HoursArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args HoursArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetDoorWindowActivity(args.Hours), nil
			},
		},
		{
			Name:        "get_logging_statistics",
			Description: "Report the state-change log's summary statistics.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetLoggingStatistics(), nil
			},
		},

		// Environment
		{
			Name:        "get_weather_data",
			Description: "Return the full weatherServer state block plus its structure-file metadata.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetWeatherData(), nil
			},
		},
		{
			Name:        "get_outdoor_conditions",
			Description: "Return the outdoor weather state block.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetOutdoorConditions(), nil
			},
		},
		{
			Name:        "get_temperature_overview",
			Description: "List temperature sensor readings, optionally scoped to one room.",
			ArgsExample: RoomArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args RoomArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetTemperatureOverview(args.Room), nil
			},
		},
		{
			Name:        "get_humidity_overview",
			Description: "List humidity sensor readings, optionally scoped to one room.",
			ArgsExample: RoomArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args RoomArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetHumidityOverview(args.Room), nil
			},
		},
		{
			Name:        "get_brightness_levels",
			Description: "List brightness/lux sensor readings across every room.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetBrightnessLevels(), nil
			},
		},
		{
			Name:        "get_environmental_summary",
			Description: "Combine the temperature, humidity, and brightness overviews into one response.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetEnvironmentalSummary(), nil
			},
		},
		{
			Name:        "get_climate_summary",
			Description: "List every climate-controller device with its live state values.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetClimateSummary(), nil
			},
		},
		{
			Name:        "get_climate_control",
			Description: "Alias view over the climate-controller inventory.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetClimateControl(), nil
			},
		},

		// Weather service
		{
			Name:        "get_weather_service_status",
			Description: "Report whether the structure file carries a weatherServer block, and how many states it exposes.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetWeatherServiceStatus(), nil
			},
		},
		{
			Name:        "get_weather_current",
			Description: "Return the live weatherServer state readings.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetWeatherCurrent(), nil
			},
		},
		{
			Name:        "get_weather_forecast",
			Description: "Build a per-bucket forecast view from any day/hour-indexed weatherServer states.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetWeatherForecast(), nil
			},
		},
		{
			Name:        "diagnose_weather_service",
			Description: "Check both layers a weather-data request depends on: structure presence and command-channel reachability.",
			ArgsExample: emptyArgs{},
			Call: func(ctx context.Context, _ json.RawMessage) (any, error) {
				return tc.DiagnoseWeatherService(ctx), nil
			},
		},

		// Scenes, lighting moods, alarm clocks
		{
			Name:        "get_lighting_presets",
			Description: "List every mood declared on LightControllerV2 devices, optionally scoped to a room.",
			ArgsExample: RoomArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args RoomArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetLightingPresets(args.Room), nil
			},
		},
		{
			Name:        "set_lighting_mood",
			Description: "Activate a named mood ID on every LightControllerV2 in a room.",
			ArgsExample: tools.SetLightingMoodRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.SetLightingMoodRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.SetLightingMood(ctx, req), nil
			},
		},
		{
			Name:        "get_active_lighting_moods",
			Description: "Read each LightControllerV2's currently active mood from the live mirror.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetActiveLightingMoods(), nil
			},
		},
		{
			Name:        "control_central_lighting",
			Description: "Drive every CentralLightController device with the same action, or a mood ID.",
			ArgsExample: tools.ControlCentralLightingRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.ControlCentralLightingRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.ControlCentralLighting(ctx, req), nil
			},
		},
		{
			Name:        "get_house_scenes",
			Description: "List every device whose name suggests it is a house-wide scene trigger.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetHouseScenes(), nil
			},
		},
		{
			Name:        "activate_house_scene",
			Description: "Trigger the named house scene.",
			ArgsExample: tools.ActivateHouseSceneRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.ActivateHouseSceneRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.ActivateHouseScene(ctx, req), nil
			},
		},
		{
			Name:        "get_alarm_clocks",
			Description: "List every keyword-matched alarm-clock device with its current enabled state.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetAlarmClocks(), nil
			},
		},
		{
			Name:        "set_alarm_clock",
			Description: "Enable or disable one named alarm clock.",
			ArgsExample: tools.SetAlarmClockRequest{},
			Call: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var req tools.SetAlarmClockRequest
				if err := decodeArgs(raw, &req); err != nil {
					return nil, err
				}
				return tc.SetAlarmClock(ctx, req), nil
			},
		},
		{
			Name:        "get_scene_status_overview",
			Description: "Combine the active-moods, house-scenes, and alarm-clocks views into one snapshot.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetSceneStatusOverview(), nil
			},
		},

		// System
		{
			Name:        "get_available_capabilities",
			Description: "Report which device domains the loaded structure exposes.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetAvailableCapabilities(), nil
			},
		},
		{
			Name:        "get_system_status",
			Description: "Report a dashboard-style health snapshot of every subsystem a tool call depends on.",
			ArgsExample: emptyArgs{},
			Call: func(_ context.Context, _ json.RawMessage) (any, error) {
				return tc.GetSystemStatus(), nil
			},
		},
		{
			Name:        "get_device_status",
			Description: "Resolve one device by UUID and read every state it declares from the live mirror.",
			ArgsExample: DeviceUUIDArg{},
			Call: func(_ context.Context, raw json.RawMessage) (any, error) {
				var args DeviceUUIDArg
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return tc.GetDeviceStatus(args.DeviceUUID), nil
			},
		},
	}
}
