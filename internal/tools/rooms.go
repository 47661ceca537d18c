package tools

import (
	"fmt"
	"sort"
)

// RoomSummary is one room entry as returned by list_rooms.
type RoomSummary struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	DeviceCount int    `json:"device_count"`
}

// ListRoomsResponse is list_rooms' output.
type ListRoomsResponse struct {
	Rooms []RoomSummary `json:"rooms"`
	Count int           `json:"count"`
	Error string        `json:"error,omitempty"`
}

// ListRooms returns every room in the structure catalogue with its device
// count, sorted by name for stable display.
func (tc *ToolContext) ListRooms() ListRoomsResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return ListRoomsResponse{Error: errString(err)}
	}

	rooms := make([]RoomSummary, 0, len(cat.Rooms))
	for uuid, r := range cat.Rooms {
		rooms = append(rooms, RoomSummary{UUID: uuid, Name: r.Name, DeviceCount: len(cat.ByRoom[uuid])})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })

	return ListRoomsResponse{Rooms: rooms, Count: len(rooms)}
}

// DeviceSummary is one device entry as returned by room/category/type
// listing tools.
type DeviceSummary struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Room     string `json:"room"`
	Category string `json:"category"`
}

// GetRoomDevicesRequest is get_room_devices' input.
type GetRoomDevicesRequest struct {
	Room       string `json:"room"`
	DeviceType string `json:"device_type,omitempty"`
}

// GetRoomDevicesResponse is get_room_devices' output.
type GetRoomDevicesResponse struct {
	Room    string          `json:"room,omitempty"`
	Devices []DeviceSummary `json:"devices"`
	Count   int             `json:"count"`
	Error   string          `json:"error,omitempty"`
}

// GetRoomDevices lists every device in a resolved room, optionally filtered
// by exact device type.
func (tc *ToolContext) GetRoomDevices(req GetRoomDevicesRequest) GetRoomDevicesResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetRoomDevicesResponse{Error: errString(err)}
	}

	rooms := ResolveRoom(cat, req.Room)
	if len(rooms) == 0 {
		return GetRoomDevicesResponse{Error: fmt.Sprintf("Room not found: %s (near matches: %v)", req.Room, nearRoomMatches(cat, req.Room, 5))}
	}

	var out []DeviceSummary
	for _, r := range rooms {
		for _, dev := range devicesInRoom(cat, r.UUID, func(t string) bool {
			return req.DeviceType == "" || t == req.DeviceType
		}) {
			out = append(out, DeviceSummary{UUID: dev.UUID, Name: dev.Name, Type: dev.Type, Room: dev.RoomName, Category: dev.CategoryName})
		}
	}

	label := req.Room
	if len(rooms) == 1 {
		label = rooms[0].Name
	}
	return GetRoomDevicesResponse{Room: label, Devices: out, Count: len(out)}
}
