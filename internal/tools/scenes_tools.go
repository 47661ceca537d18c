// Scenes, lighting moods, and alarm clocks have no dedicated core
// component (C1-C11) and no original_source/ grounding beyond
// archive/python-legacy's external weather client; spec.md §6 describes
// them purely as MCP tool names and leaves the underlying Loxone model
// implicit. These handlers are grounded instead on the structure catalogue
// itself: LightControllerV2's documented mood list/changeTo command, and
// keyword scans over device name/category (the same technique C7's
// detectCapabilities already uses) for house scenes and alarm clocks.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

const lightControllerV2Type = "LightControllerV2"
const centralLightControllerType = "CentralLightController"

var (
	sceneKeywords = []string{"szene", "scene"}
	alarmKeywords = []string{"wecker", "alarm clock", "alarmclock", "alarm_clock"}
)

func sortedDeviceUUIDsIn(cat *catalog.Catalog) []string {
	uuids := make([]string, 0, len(cat.Devices))
	for uuid := range cat.Devices {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return uuids
}

func moodListOf(dev ltype.Device) []map[string]any {
	raw, ok := dev.Details["moodList"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// LightingPreset is one mood entry from a LightControllerV2's moodList.
type LightingPreset struct {
	Device string         `json:"device"`
	Room   string         `json:"room"`
	Mood   map[string]any `json:"mood"`
}

// GetLightingPresetsResponse is get_lighting_presets' output.
type GetLightingPresetsResponse struct {
	Presets []LightingPreset `json:"presets"`
	Count   int              `json:"count"`
	Error   string           `json:"error,omitempty"`
}

// GetLightingPresets lists every mood declared on LightControllerV2
// devices, optionally scoped to a room.
func (tc *ToolContext) GetLightingPresets(room string) GetLightingPresetsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetLightingPresetsResponse{Error: errString(err)}
	}

	var roomUUID string
	if room != "" {
		rooms := ResolveRoom(cat, room)
		if len(rooms) == 0 {
			return GetLightingPresetsResponse{Error: fmt.Sprintf("Room not found: %s (near matches: %v)", room, nearRoomMatches(cat, room, 5))}
		}
		roomUUID = rooms[0].UUID
	}

	var presets []LightingPreset
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if dev.Type != lightControllerV2Type {
			continue
		}
		if room != "" && dev.RoomUUID != roomUUID {
			continue
		}
		for _, mood := range moodListOf(dev) {
			presets = append(presets, LightingPreset{Device: dev.Name, Room: dev.RoomName, Mood: mood})
		}
	}
	return GetLightingPresetsResponse{Presets: presets, Count: len(presets)}
}

// SetLightingMoodRequest is set_lighting_mood's input.
type SetLightingMoodRequest struct {
	Room   string `json:"room"`
	MoodID string `json:"mood_id"`
}

// SetLightingMood activates a named mood ID on every LightControllerV2 in
// a room, via Loxone's documented `changeTo/{moodId}` command.
func (tc *ToolContext) SetLightingMood(ctx context.Context, req SetLightingMoodRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	rooms := ResolveRoom(cat, req.Room)
	if len(rooms) == 0 {
		return MultiControlResponse{Error: fmt.Sprintf("Room not found: %s (near matches: %v)", req.Room, nearRoomMatches(cat, req.Room, 5))}
	}

	var targets []ltype.Device
	for _, r := range rooms {
		targets = append(targets, devicesInRoom(cat, r.UUID, func(t string) bool { return t == lightControllerV2Type })...)
	}

	resp := MultiControlResponse{Room: rooms[0].Name}
	if len(targets) == 0 {
		resp.Results = []ControlResult{{Error: "No LightControllerV2 devices found in room"}}
		return resp
	}
	for _, dev := range targets {
		resp.Results = append(resp.Results, tc.sendOne(ctx, dev, "mood:"+req.MoodID, "jdev/sps/io/"+dev.UUID+"/changeTo/"+req.MoodID))
	}
	resp.Controlled = countSuccesses(resp.Results)
	return resp
}

// ActiveMood is one LightControllerV2's currently reported active-mood
// state.
type ActiveMood struct {
	Device string      `json:"device"`
	Room   string      `json:"room"`
	Active ltype.Value `json:"active"`
}

// GetActiveLightingMoodsResponse is get_active_lighting_moods' output.
type GetActiveLightingMoodsResponse struct {
	Moods []ActiveMood `json:"moods"`
	Count int          `json:"count"`
	Error string       `json:"error,omitempty"`
}

// GetActiveLightingMoods reads each LightControllerV2's "activeMoods"
// state from the live mirror.
func (tc *ToolContext) GetActiveLightingMoods() GetActiveLightingMoodsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetActiveLightingMoodsResponse{Error: errString(err)}
	}

	var moods []ActiveMood
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if dev.Type != lightControllerV2Type {
			continue
		}
		ref, ok := dev.StateRefs["activeMoods"]
		if !ok {
			continue
		}
		value, _ := tc.Mirror.Get(ref)
		moods = append(moods, ActiveMood{Device: dev.Name, Room: dev.RoomName, Active: value})
	}
	return GetActiveLightingMoodsResponse{Moods: moods, Count: len(moods)}
}

// ControlCentralLightingRequest is control_central_lighting's input.
type ControlCentralLightingRequest struct {
	Action string `json:"action"`
	MoodID string `json:"mood_id,omitempty"`
}

// ControlCentralLighting drives every CentralLightController device in the
// structure with the same action (on/off/toggle, or changeTo/{mood_id}
// when an explicit mood is given).
func (tc *ToolContext) ControlCentralLighting(ctx context.Context, req ControlCentralLightingRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	action := NormalizeAction(req.Action)
	var command string
	if req.MoodID != "" {
		command = "changeTo/" + req.MoodID
	} else {
		command = encodeGenericCommand(action)
	}

	resp := MultiControlResponse{}
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if dev.Type != centralLightControllerType {
			continue
		}
		resp.Results = append(resp.Results, tc.sendOne(ctx, dev, action, "jdev/sps/io/"+dev.UUID+"/"+command))
	}
	if len(resp.Results) == 0 {
		resp.Results = []ControlResult{{Error: "No CentralLightController device found"}}
	}
	resp.Controlled = countSuccesses(resp.Results)
	return resp
}

// HouseScene is one keyword-matched "scene" control.
type HouseScene struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Room string `json:"room"`
	Type string `json:"type"`
}

// GetHouseScenesResponse is get_house_scenes' output.
type GetHouseScenesResponse struct {
	Scenes []HouseScene `json:"scenes"`
	Count  int          `json:"count"`
	Error  string       `json:"error,omitempty"`
}

// GetHouseScenes lists every device whose name suggests it is a scene
// trigger (a pushbutton/virtual-input named "Szene ..." or "Scene ...",
// the common Loxone Config pattern for house-wide scenes).
func (tc *ToolContext) GetHouseScenes() GetHouseScenesResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetHouseScenesResponse{Error: errString(err)}
	}

	var scenes []HouseScene
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if nameHasAny(dev.Name, sceneKeywords) {
			scenes = append(scenes, HouseScene{UUID: dev.UUID, Name: dev.Name, Room: dev.RoomName, Type: dev.Type})
		}
	}
	return GetHouseScenesResponse{Scenes: scenes, Count: len(scenes)}
}

// ActivateHouseSceneRequest is activate_house_scene's input. SceneType
// matches against the scene device's name (case-insensitive substring);
// Action defaults to "Pulse" (a momentary trigger), matching the generic
// pushbutton pattern Loxone scenes are built from.
type ActivateHouseSceneRequest struct {
	SceneType string `json:"scene_type"`
	Action    string `json:"action,omitempty"`
}

// ActivateHouseScene triggers the named house scene.
func (tc *ToolContext) ActivateHouseScene(ctx context.Context, req ActivateHouseSceneRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	var match *ltype.Device
	qLower := strings.ToLower(req.SceneType)
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if nameHasAny(dev.Name, sceneKeywords) && strings.Contains(strings.ToLower(dev.Name), qLower) {
			d := dev
			match = &d
			break
		}
	}
	if match == nil {
		return MultiControlResponse{Error: "Device not found: " + req.SceneType}
	}

	action := req.Action
	command := "Pulse"
	if action == "" {
		action = ActionToggle
	} else {
		command = encodeGenericCommand(NormalizeAction(action))
	}
	result := tc.sendOne(ctx, *match, action, "jdev/sps/io/"+match.UUID+"/"+command)
	return MultiControlResponse{Controlled: boolToInt(result.Success), Results: []ControlResult{result}}
}

// AlarmClock is one keyword-matched alarm-clock control with its live
// enabled state.
type AlarmClock struct {
	UUID    string      `json:"uuid"`
	Name    string      `json:"name"`
	Enabled ltype.Value `json:"enabled"`
}

// GetAlarmClocksResponse is get_alarm_clocks' output.
type GetAlarmClocksResponse struct {
	Alarms []AlarmClock `json:"alarms"`
	Count  int          `json:"count"`
	Error  string       `json:"error,omitempty"`
}

// GetAlarmClocks lists every keyword-matched alarm-clock device with its
// current "active"/"enabled" state, if the structure declares one.
func (tc *ToolContext) GetAlarmClocks() GetAlarmClocksResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetAlarmClocksResponse{Error: errString(err)}
	}

	var alarms []AlarmClock
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if !nameHasAny(dev.Name, alarmKeywords) {
			continue
		}
		var enabled ltype.Value
		if ref, ok := dev.StateRefs["active"]; ok {
			enabled, _ = tc.Mirror.Get(ref)
		}
		alarms = append(alarms, AlarmClock{UUID: dev.UUID, Name: dev.Name, Enabled: enabled})
	}
	return GetAlarmClocksResponse{Alarms: alarms, Count: len(alarms)}
}

// SetAlarmClockRequest is set_alarm_clock's input.
type SetAlarmClockRequest struct {
	AlarmName string `json:"alarm_name"`
	Enabled   bool   `json:"enabled"`
}

// SetAlarmClock enables or disables one named alarm clock.
func (tc *ToolContext) SetAlarmClock(ctx context.Context, req SetAlarmClockRequest) MultiControlResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return MultiControlResponse{Error: errString(err)}
	}

	var match *ltype.Device
	qLower := strings.ToLower(req.AlarmName)
	for _, uuid := range sortedDeviceUUIDsIn(cat) {
		dev := cat.Devices[uuid]
		if nameHasAny(dev.Name, alarmKeywords) && strings.Contains(strings.ToLower(dev.Name), qLower) {
			d := dev
			match = &d
			break
		}
	}
	if match == nil {
		return MultiControlResponse{Error: "Device not found: " + req.AlarmName}
	}

	action := ActionOff
	if req.Enabled {
		action = ActionOn
	}
	command := encodeGenericCommand(action)
	result := tc.sendOne(ctx, *match, action, "jdev/sps/io/"+match.UUID+"/"+command)
	return MultiControlResponse{Controlled: boolToInt(result.Success), Results: []ControlResult{result}}
}

// SceneStatusOverviewResponse is get_scene_status_overview's output: a
// single snapshot combining active moods, known house scenes, and alarm
// clock state, for a dashboard-style "what's active right now" view.
type SceneStatusOverviewResponse struct {
	ActiveMoods []ActiveMood `json:"active_moods"`
	HouseScenes []HouseScene `json:"house_scenes"`
	Alarms      []AlarmClock `json:"alarms"`
	Error       string       `json:"error,omitempty"`
}

// GetSceneStatusOverview combines the active-moods, house-scenes, and
// alarm-clocks views.
func (tc *ToolContext) GetSceneStatusOverview() SceneStatusOverviewResponse {
	if _, err := tc.requireCatalog(); err != nil {
		return SceneStatusOverviewResponse{Error: errString(err)}
	}
	moods := tc.GetActiveLightingMoods()
	scenes := tc.GetHouseScenes()
	alarms := tc.GetAlarmClocks()
	return SceneStatusOverviewResponse{ActiveMoods: moods.Moods, HouseScenes: scenes.Scenes, Alarms: alarms.Alarms}
}
