package tools

import "testing"

// TestEncodeJalousieCommandSeedScenarioS1 reproduces spec.md's S1 seed
// scenario: control_rolladen "up" encodes to the Jalousie FullUp command.
func TestEncodeJalousieCommandSeedScenarioS1(t *testing.T) {
	got, err := encodeJalousieCommand(ActionUp, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "FullUp" {
		t.Errorf("encodeJalousieCommand(up) = %q, want %q", got, "FullUp")
	}
}

// TestEncodeJalousieCommandSeedScenarioS2 reproduces spec.md's S2 seed
// scenario: an unknown action must fail predictably rather than silently
// pass through.
func TestEncodeJalousieCommandSeedScenarioS2(t *testing.T) {
	_, err := encodeJalousieCommand("dance", 0)
	if err == nil {
		t.Fatal("expected an error for an unrecognized action")
	}
}

func TestEncodeJalousieCommandPositionEdges(t *testing.T) {
	cases := []struct {
		position int
		want     string
	}{
		{0, "FullDown"},
		{100, "FullUp"},
		{42, "moveToPosition/42"},
	}
	for _, c := range cases {
		got, err := encodeJalousieCommand(ActionPosition, c.position)
		if err != nil {
			t.Fatalf("position %d: unexpected error: %v", c.position, err)
		}
		if got != c.want {
			t.Errorf("encodeJalousieCommand(position, %d) = %q, want %q", c.position, got, c.want)
		}
	}
}

func TestEncodeLightCommand(t *testing.T) {
	cases := []struct {
		action string
		want   string
	}{
		{ActionOn, "On"},
		{ActionOff, "Off"},
		{ActionToggle, "Pulse"},
	}
	for _, c := range cases {
		got, err := encodeLightCommand(c.action, 0)
		if err != nil {
			t.Fatalf("action %q: unexpected error: %v", c.action, err)
		}
		if got != c.want {
			t.Errorf("encodeLightCommand(%q) = %q, want %q", c.action, got, c.want)
		}
	}

	got, err := encodeLightCommand(ActionDim, 37)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "37" {
		t.Errorf("encodeLightCommand(dim, 37) = %q, want %q", got, "37")
	}

	if _, err := encodeLightCommand("dance", 0); err == nil {
		t.Fatal("expected an error for an unrecognized action")
	}
}

func TestIsJalousieAndIsLightType(t *testing.T) {
	for _, typ := range []string{"Jalousie", "Blind", "Shutter"} {
		if !isJalousieType(typ) {
			t.Errorf("isJalousieType(%q) = false, want true", typ)
		}
	}
	for _, typ := range []string{"LightController", "LightControllerV2", "Dimmer", "Switch"} {
		if !isLightType(typ) {
			t.Errorf("isLightType(%q) = false, want true", typ)
		}
	}
	if isJalousieType("LightControllerV2") || isLightType("Jalousie") {
		t.Error("isJalousieType/isLightType must not overlap")
	}
}

func TestFindDeviceByUUIDNameAndSubstring(t *testing.T) {
	cat := deviceCatalog(t)

	if dev, ok := findDevice(cat, "d-light-1", ""); !ok || dev.UUID != "d-light-1" {
		t.Fatalf("findDevice by UUID = %+v, %v", dev, ok)
	}
	if dev, ok := findDevice(cat, "deckenlicht", ""); !ok || dev.UUID != "d-light-1" {
		t.Fatalf("findDevice by name = %+v, %v", dev, ok)
	}
	if dev, ok := findDevice(cat, "Decken", ""); !ok || dev.UUID != "d-light-1" {
		t.Fatalf("findDevice by substring = %+v, %v", dev, ok)
	}
	if _, ok := findDevice(cat, "d-light-1", "r-eg-kue"); ok {
		t.Fatal("findDevice must respect a room scope that excludes the match")
	}
	if _, ok := findDevice(cat, "nope", ""); ok {
		t.Fatal("findDevice must report no match for an unknown query")
	}
}
