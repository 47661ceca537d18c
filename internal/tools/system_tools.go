package tools

import (
	"github.com/loxone-mcp/bridge/internal/ltype"
)

// GetAvailableCapabilitiesResponse is get_available_capabilities' output:
// C7's detected capability summary, verbatim.
type GetAvailableCapabilitiesResponse struct {
	Capabilities ltype.Capabilities `json:"capabilities"`
	Error        string             `json:"error,omitempty"`
}

// GetAvailableCapabilities reports which device domains the loaded
// structure exposes.
func (tc *ToolContext) GetAvailableCapabilities() GetAvailableCapabilitiesResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetAvailableCapabilitiesResponse{Error: errString(err)}
	}
	return GetAvailableCapabilitiesResponse{Capabilities: cat.Capabilities}
}

// GetSystemStatusResponse is get_system_status's output: a single
// dashboard-style health snapshot of every C-component a tool call depends
// on, so a caller can tell "why did that fail" without probing each tool.
type GetSystemStatusResponse struct {
	CatalogLoaded   bool   `json:"catalog_loaded"`
	RoomCount       int    `json:"room_count"`
	DeviceCount     int    `json:"device_count"`
	CommandChannel  string `json:"command_channel"`
	DiscovererReady bool   `json:"discoverer_ready"`
	StateLogReady   bool   `json:"state_log_ready"`
}

// GetSystemStatus never reports an error itself; unavailable subsystems are
// reflected in the response fields instead, since "what's broken" is the
// whole point of the tool.
func (tc *ToolContext) GetSystemStatus() GetSystemStatusResponse {
	resp := GetSystemStatusResponse{
		DiscovererReady: tc.Discoverer != nil,
		StateLogReady:   tc.StateLog != nil,
	}

	if cat := tc.Catalog(); cat != nil {
		resp.CatalogLoaded = true
		resp.RoomCount = len(cat.Rooms)
		resp.DeviceCount = len(cat.Devices)
	}

	switch {
	case tc.Commands == nil:
		resp.CommandChannel = "unavailable"
	case tc.Commands.Broken():
		resp.CommandChannel = "broken"
	default:
		resp.CommandChannel = "connected"
	}
	return resp
}

// GetDeviceStatusResponse is get_device_status's output.
type GetDeviceStatusResponse struct {
	Device ltype.Device           `json:"device"`
	States map[string]ltype.Value `json:"states"`
	Error  string                 `json:"error,omitempty"`
}

// GetDeviceStatus resolves one device by UUID or name and reads every state
// it declares from the live mirror.
func (tc *ToolContext) GetDeviceStatus(deviceUUID string) GetDeviceStatusResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetDeviceStatusResponse{Error: errString(err)}
	}

	dev, ok := findDevice(cat, deviceUUID, "")
	if !ok {
		return GetDeviceStatusResponse{Error: "Device not found: " + deviceUUID}
	}

	states := make(map[string]ltype.Value, len(dev.StateRefs))
	for name, ref := range dev.StateRefs {
		value, _ := tc.Mirror.Get(ref)
		states[name] = value
	}
	return GetDeviceStatusResponse{Device: dev, States: states}
}
