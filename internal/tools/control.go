package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

// ControlResult is one device's outcome within a multi-target control call.
type ControlResult struct {
	Device  string `json:"device"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MultiControlResponse is the shared shape for every multi-target control
// tool, per spec.md §7's "partial successes" disposition:
// {controlled: N, results: [...]}.
type MultiControlResponse struct {
	Room       string          `json:"room,omitempty"`
	Controlled int             `json:"controlled"`
	Results    []ControlResult `json:"results"`
	Error      string          `json:"error,omitempty"`
}

// encodeJalousieCommand implements spec.md §4.10's blind table, taken
// verbatim from original_source/room_scenarios.py's position constants.
func encodeJalousieCommand(action string, position int) (string, error) {
	switch action {
	case ActionUp:
		return "FullUp", nil
	case ActionDown:
		return "FullDown", nil
	case ActionStop:
		return "Stop", nil
	case ActionPosition:
		if position == 0 {
			return "FullDown", nil
		}
		if position == 100 {
			return "FullUp", nil
		}
		return fmt.Sprintf("moveToPosition/%d", position), nil
	default:
		return "", fmt.Errorf("Invalid action: %s", action)
	}
}

// encodeLightCommand implements spec.md §4.10's light table.
func encodeLightCommand(action string, brightness int) (string, error) {
	switch action {
	case ActionOn:
		return "On", nil
	case ActionOff:
		return "Off", nil
	case ActionToggle:
		return "Pulse", nil
	case ActionDim:
		return fmt.Sprintf("%d", brightness), nil
	default:
		return "", fmt.Errorf("Invalid action: %s", action)
	}
}

// encodeGenericCommand pass-throughs the canonical verb, capitalized to
// match Loxone's own command casing (On, Off, Stop, ...).
func encodeGenericCommand(action string) string {
	if action == "" {
		return action
	}
	return strings.ToUpper(action[:1]) + action[1:]
}

func isJalousieType(t string) bool {
	switch t {
	case "Jalousie", "Blind", "Shutter":
		return true
	default:
		return false
	}
}

func isLightType(t string) bool {
	switch t {
	case "LightController", "LightControllerV2", "Dimmer", "Switch":
		return true
	default:
		return false
	}
}

// devicesInRoom returns every device in roomUUID, optionally filtered by
// an exact type match, sorted by UUID for deterministic iteration.
func devicesInRoom(cat *catalog.Catalog, roomUUID string, typeFilter func(string) bool) []ltype.Device {
	uuids := append([]string(nil), cat.ByRoom[roomUUID]...)
	sort.Strings(uuids)
	var out []ltype.Device
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		if typeFilter == nil || typeFilter(dev.Type) {
			out = append(out, dev)
		}
	}
	return out
}

// findDevice resolves a device by exact UUID or case-insensitive
// name/substring match, optionally scoped to a room.
func findDevice(cat *catalog.Catalog, query string, roomUUID string) (ltype.Device, bool) {
	if dev, ok := cat.Devices[query]; ok {
		if roomUUID == "" || dev.RoomUUID == roomUUID {
			return dev, true
		}
	}

	uuids := make([]string, 0, len(cat.Devices))
	for uuid := range cat.Devices {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	qLower := strings.ToLower(query)
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		if roomUUID != "" && dev.RoomUUID != roomUUID {
			continue
		}
		if strings.ToLower(dev.Name) == qLower {
			return dev, true
		}
	}
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		if roomUUID != "" && dev.RoomUUID != roomUUID {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), qLower) {
			return dev, true
		}
	}
	return ltype.Device{}, false
}

// ControlDeviceRequest is control_device's input.
type ControlDeviceRequest struct {
	Device string `json:"device"`
	Action string `json:"action"`
	Room   string `json:"room,omitempty"`
}

// ControlDevice sends a generic pass-through command to a single device
// resolved by name or UUID, optionally scoped to a room.
func (tc *ToolContext) ControlDevice(ctx context.Context, req ControlDeviceRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	var roomUUID string
	if req.Room != "" {
		rooms := ResolveRoom(cat, req.Room)
		if len(rooms) == 0 {
			return MultiControlResponse{Error: fmt.Sprintf("Room not found: %s (near matches: %v)", req.Room, nearRoomMatches(cat, req.Room, 5))}
		}
		roomUUID = rooms[0].UUID
	}

	dev, ok := findDevice(cat, req.Device, roomUUID)
	if !ok {
		return MultiControlResponse{Error: fmt.Sprintf("Device not found: %s", req.Device)}
	}

	action := NormalizeAction(req.Action)
	command := encodeGenericCommand(action)
	result := tc.sendOne(ctx, dev, action, "jdev/sps/io/"+dev.UUID+"/"+command)
	return MultiControlResponse{Controlled: boolToInt(result.Success), Results: []ControlResult{result}}
}

// ControlRolladenRequest is control_rolladen's input.
type ControlRolladenRequest struct {
	Room     string `json:"room"`
	Device   string `json:"device,omitempty"`
	Action   string `json:"action"`
	Position int    `json:"position,omitempty"`
}

// ControlRolladen drives every Jalousie (or one named Jalousie) in a room.
func (tc *ToolContext) ControlRolladen(ctx context.Context, req ControlRolladenRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	rooms := ResolveRoom(cat, req.Room)
	if len(rooms) == 0 {
		return MultiControlResponse{Error: fmt.Sprintf("Room not found: %s (near matches: %v)", req.Room, nearRoomMatches(cat, req.Room, 5))}
	}

	action := NormalizeAction(req.Action)
	command, encErr := encodeJalousieCommand(action, req.Position)

	var targets []ltype.Device
	for _, r := range rooms {
		if req.Device != "" {
			if dev, ok := findDevice(cat, req.Device, r.UUID); ok && isJalousieType(dev.Type) {
				targets = append(targets, dev)
			}
			continue
		}
		targets = append(targets, devicesInRoom(cat, r.UUID, isJalousieType)...)
	}

	resp := MultiControlResponse{Room: rooms[0].Name}
	if len(targets) == 0 {
		resp.Results = []ControlResult{{Device: req.Device, Error: "No matching Jalousie devices found"}}
		return resp
	}

	for _, dev := range targets {
		if encErr != nil {
			resp.Results = append(resp.Results, ControlResult{Device: dev.Name, Action: action, Error: encErr.Error()})
			continue
		}
		resp.Results = append(resp.Results, tc.sendOne(ctx, dev, action, "jdev/sps/io/"+dev.UUID+"/"+command))
	}
	resp.Controlled = countSuccesses(resp.Results)
	return resp
}

// ControlLightRequest is control_light's input.
type ControlLightRequest struct {
	Room       string `json:"room"`
	Device     string `json:"device,omitempty"`
	Action     string `json:"action"`
	Brightness int    `json:"brightness,omitempty"`
}

// ControlLight drives every light (or one named light) in a room.
func (tc *ToolContext) ControlLight(ctx context.Context, req ControlLightRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	rooms := ResolveRoom(cat, req.Room)
	if len(rooms) == 0 {
		return MultiControlResponse{Error: fmt.Sprintf("Room not found: %s (near matches: %v)", req.Room, nearRoomMatches(cat, req.Room, 5))}
	}

	action := NormalizeAction(req.Action)
	command, encErr := encodeLightCommand(action, req.Brightness)

	var targets []ltype.Device
	for _, r := range rooms {
		if req.Device != "" {
			if dev, ok := findDevice(cat, req.Device, r.UUID); ok && isLightType(dev.Type) {
				targets = append(targets, dev)
			}
			continue
		}
		targets = append(targets, devicesInRoom(cat, r.UUID, isLightType)...)
	}

	resp := MultiControlResponse{Room: rooms[0].Name}
	if len(targets) == 0 {
		resp.Results = []ControlResult{{Device: req.Device, Error: "No matching light devices found"}}
		return resp
	}

	for _, dev := range targets {
		if encErr != nil {
			resp.Results = append(resp.Results, ControlResult{Device: dev.Name, Action: action, Error: encErr.Error()})
			continue
		}
		resp.Results = append(resp.Results, tc.sendOne(ctx, dev, action, "jdev/sps/io/"+dev.UUID+"/"+command))
	}
	resp.Controlled = countSuccesses(resp.Results)
	return resp
}

// sendOne issues one encoded command and folds the outcome into a
// ControlResult, applying the broken-connection/single-reconnect policy
// via sendCommand.
func (tc *ToolContext) sendOne(ctx context.Context, dev ltype.Device, action, path string) ControlResult {
	_, err := tc.sendCommand(ctx, path)
	if err != nil {
		return ControlResult{Device: dev.Name, Action: action, Error: errString(err)}
	}
	return ControlResult{Device: dev.Name, Action: action, Success: true}
}

func countSuccesses(results []ControlResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
