package mcpserver

// Single- or zero-field tool argument shapes that internal/tools has no
// dedicated Request type for (the tool takes one bare string/int, or
// nothing at all). Multi-field tools reuse the Request types already
// exported by internal/tools (ControlDeviceRequest, GetRoomDevicesRequest,
// ...) instead of duplicating them here.

// RoomArg is the input for every room-scoped, no-other-params tool.
type RoomArg struct {
	Room string `json:"room,omitempty" jsonschema:"Room name, floor token, or partial match"`
}

// CategoryArg is get_devices_by_category's input.
type CategoryArg struct {
	Category string `json:"category,omitempty" jsonschema:"Device category name; every category when omitted"`
}

// DeviceTypeArg is get_devices_by_type's input.
type DeviceTypeArg struct {
	DeviceType string `json:"device_type,omitempty" jsonschema:"Exact Loxone control type; every type when omitted"`
}

// DiscoveryTimeArg is rediscover_sensors' input.
type DiscoveryTimeArg struct {
	DiscoveryTime int `json:"discovery_time,omitempty" jsonschema:"Discovery window in seconds (default 60)"`
}

// UUIDArg is the input for the single-sensor lookup tools.
type UUIDArg struct {
	UUID string `json:"uuid" jsonschema:"Sensor or device UUID"`
}

// LimitArg is get_recent_sensor_changes' input.
type LimitArg struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of events to return (default 20)"`
}

// HoursArg is get_door_window_activity's input.
type HoursArg struct {
	Hours int `json:"hours,omitempty" jsonschema:"Trailing window in hours (default 24)"`
}

// DeviceUUIDArg is get_device_status's input.
type DeviceUUIDArg struct {
	DeviceUUID string `json:"device_uuid" jsonschema:"Device UUID"`
}

// emptyArgs is every zero-parameter tool's input.
type emptyArgs struct{}
