package tools

import (
	"testing"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

func deviceCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := roomCatalog(t)
	cat.Devices = map[string]ltype.Device{
		"d-light-1":  {UUID: "d-light-1", Name: "Deckenlicht", Type: "LightControllerV2", RoomUUID: "r-og-buro", RoomName: "OG Büro", CategoryName: "Licht"},
		"d-jal-1":    {UUID: "d-jal-1", Name: "Rolladen", Type: "Jalousie", RoomUUID: "r-og-buro", RoomName: "OG Büro", CategoryName: "Beschattung"},
		"d-sensor-1": {UUID: "d-sensor-1", Name: "Temperatur", Type: "InfoOnlyAnalog", RoomUUID: "r-eg-kue", RoomName: "EG Küche", CategoryName: "Sensoren"},
	}
	cat.ByRoom = map[string][]string{
		"r-og-buro": {"d-light-1", "d-jal-1"},
		"r-eg-kue":  {"d-sensor-1"},
	}
	return cat
}

func TestListRoomsSortedByName(t *testing.T) {
	tc := New(nil, nil, nil, nil, nil, deviceCatalog(t))
	resp := tc.ListRooms()
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Count != 3 {
		t.Fatalf("Count = %d, want 3", resp.Count)
	}
	for i := 1; i < len(resp.Rooms); i++ {
		if resp.Rooms[i-1].Name > resp.Rooms[i].Name {
			t.Fatalf("rooms not sorted by name: %+v", resp.Rooms)
		}
	}
}

func TestListRoomsWithoutCatalogReportsCapabilityUnavailable(t *testing.T) {
	tc := New(nil, nil, nil, nil, nil, nil)
	resp := tc.ListRooms()
	if resp.Error == "" {
		t.Fatal("expected an error when no catalogue has loaded")
	}
}

func TestGetRoomDevicesFiltersByType(t *testing.T) {
	tc := New(nil, nil, nil, nil, nil, deviceCatalog(t))
	resp := tc.GetRoomDevices(GetRoomDevicesRequest{Room: "buero", DeviceType: "Jalousie"})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Count != 1 || resp.Devices[0].UUID != "d-jal-1" {
		t.Fatalf("GetRoomDevices filter = %+v", resp)
	}
}

func TestGetRoomDevicesUnknownRoomReportsNearMatches(t *testing.T) {
	tc := New(nil, nil, nil, nil, nil, deviceCatalog(t))
	resp := tc.GetRoomDevices(GetRoomDevicesRequest{Room: "Garage"})
	if resp.Error == "" {
		t.Fatal("expected an error for an unresolvable room")
	}
}
