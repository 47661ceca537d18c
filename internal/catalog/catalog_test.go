package catalog

import (
	"context"
	"encoding/json"
	"testing"
)

const fixtureStructure = `{
  "msInfo": {"projectName": "Test House", "swVersion": "11.2.3.45", "location": "Vienna"},
  "rooms": {
    "r-living": {"name": "Living Room"},
    "r-kitchen": {"name": "Kitchen"}
  },
  "cats": {
    "c-lights": {"name": "Lighting"}
  },
  "controls": {
    "d-light1": {"name": "Ceiling Light", "type": "LightController", "room": "r-living", "cat": "c-lights", "states": {"active": "s1"}},
    "d-blind1": {"name": "Rolladen Wohnzimmer", "type": "Jalousie", "room": "r-living", "cat": "", "states": {"position": "s2"}},
    "d-temp1": {"name": "Fensterkontakt Küche", "type": "DigitalInput", "room": "r-kitchen", "cat": "", "states": {}}
  }
}`

type fakeFetcher struct {
	body string
	err  error
}

func (f fakeFetcher) Send(ctx context.Context, path string, requiresAuth bool) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.body), nil
}

func TestLoadBuildsRoomsCategoriesDevices(t *testing.T) {
	cat, err := Load(context.Background(), fakeFetcher{body: fixtureStructure})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cat.Rooms) != 2 {
		t.Fatalf("len(Rooms) = %d; want 2", len(cat.Rooms))
	}
	if len(cat.Devices) != 3 {
		t.Fatalf("len(Devices) = %d; want 3", len(cat.Devices))
	}

	dev := cat.Devices["d-light1"]
	if dev.RoomName != "Living Room" {
		t.Errorf("RoomName = %q; want Living Room", dev.RoomName)
	}
	if dev.CategoryName != "Lighting" {
		t.Errorf("CategoryName = %q; want Lighting", dev.CategoryName)
	}

	blind := cat.Devices["d-blind1"]
	if blind.CategoryName != "Uncategorized" {
		t.Errorf("CategoryName = %q; want Uncategorized for an empty cat ref", blind.CategoryName)
	}
}

func TestLoadBuildsIndices(t *testing.T) {
	cat, err := Load(context.Background(), fakeFetcher{body: fixtureStructure})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cat.ByRoom["r-living"]) != 2 {
		t.Errorf("ByRoom[r-living] = %v; want 2 devices", cat.ByRoom["r-living"])
	}
	if len(cat.ByType["Jalousie"]) != 1 {
		t.Errorf("ByType[Jalousie] = %v; want 1 device", cat.ByType["Jalousie"])
	}
	if len(cat.ByCategory["Lighting"]) != 1 {
		t.Errorf("ByCategory[Lighting] = %v; want 1 device", cat.ByCategory["Lighting"])
	}
}

func TestCapabilityDetectionByTypeCategoryAndKeyword(t *testing.T) {
	cat, err := Load(context.Background(), fakeFetcher{body: fixtureStructure})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cat.Capabilities.HasLighting || cat.Capabilities.LightingN != 1 {
		t.Errorf("lighting capability = %+v; want has=true count=1", cat.Capabilities)
	}
	if !cat.Capabilities.HasBlinds || cat.Capabilities.BlindsN != 1 {
		t.Errorf("blinds capability = %+v; want has=true count=1", cat.Capabilities)
	}
	// d-temp1 matches the sensors domain by type (DigitalInput) and also
	// by keyword ("fensterkontakt" contains "fenster" and "kontakt") --
	// the type tier must short-circuit the keyword tier, not double count.
	if !cat.Capabilities.HasSensors || cat.Capabilities.SensorsN != 1 {
		t.Errorf("sensors capability = %+v; want has=true count=1", cat.Capabilities)
	}
	if cat.Capabilities.HasAudio {
		t.Errorf("audio capability = %+v; want has=false", cat.Capabilities)
	}
}

func TestLoadIsPureGivenIdenticalInput(t *testing.T) {
	cat1, err := Load(context.Background(), fakeFetcher{body: fixtureStructure})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cat2, err := Load(context.Background(), fakeFetcher{body: fixtureStructure})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	b1, _ := json.Marshal(cat1.Capabilities)
	b2, _ := json.Marshal(cat2.Capabilities)
	if string(b1) != string(b2) {
		t.Errorf("capability summary not stable across identical input: %s vs %s", b1, b2)
	}
}
