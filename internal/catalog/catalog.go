// Package catalog implements C7, the structure catalogue: a one-shot load
// of the Miniserver's LoxAPP3.json, normalized room/category/device views,
// derived indices, and deterministic capability detection. Loader shape
// grounded on pkg/catalog/loader_test.go's fixture-driven style (load once,
// assert on derived fields) and pkg/catalog/types.go's tag conventions,
// adapted from a static YAML tool catalog to a live structure-file decode.
package catalog

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/loxone-mcp/bridge/internal/ltype"
)

// Fetcher retrieves the raw structure-file bytes. Satisfied by
// *httpclient.Client, which the composition root passes in directly; declared
// here, consumer-side, to keep C7 independent of C2's concrete type.
type Fetcher interface {
	Send(ctx context.Context, path string, requiresAuth bool) (json.RawMessage, error)
}

// structureFile mirrors the subset of LoxAPP3.json this bridge consumes,
// per spec.md §4.9's key list and §6's "Structure JSON keys consumed" list.
type structureFile struct {
	MsInfo ltype.MSInfo `json:"msInfo"`
	Rooms  map[string]struct {
		Name string `json:"name"`
	} `json:"rooms"`
	Cats map[string]struct {
		Name string `json:"name"`
	} `json:"cats"`
	Controls map[string]struct {
		Name    string            `json:"name"`
		Type    string            `json:"type"`
		Room    string            `json:"room"`
		Cat     string            `json:"cat"`
		States  map[string]string `json:"states"`
		Details map[string]any    `json:"details"`
	} `json:"controls"`
	WeatherServer *WeatherServerInfo `json:"weatherServer"`
}

// WeatherServerInfo is the subset of the structure file's weatherServer
// block consumed by the environment/weather-service tools (spec.md §6).
type WeatherServerInfo struct {
	States            map[string]string `json:"states"`
	WeatherFieldTypes []string          `json:"weatherFieldTypes"`
	WeatherTypeTexts  []string          `json:"weatherTypeTexts"`
	Format            string            `json:"format"`
}

// Catalog is the loaded, indexed structure snapshot.
type Catalog struct {
	Info          ltype.MSInfo
	Rooms         map[string]ltype.Room
	Categories    map[string]ltype.Category
	Devices       map[string]ltype.Device
	ByRoom        map[string][]string
	ByType        map[string][]string
	ByCategory    map[string][]string
	Capabilities  ltype.Capabilities
	WeatherServer *WeatherServerInfo
}

// Load fetches GET /data/LoxAPP3.json and builds a fully indexed Catalog.
// The whole load→index→capability pass is a pure function of the decoded
// JSON, per spec.md §4.7/§8's "byte-identical across runs on identical
// input" testable property.
func Load(ctx context.Context, fetcher Fetcher) (*Catalog, error) {
	raw, err := fetcher.Send(ctx, "data/LoxAPP3.json", true)
	if err != nil {
		return nil, err
	}

	var sf structureFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, err
	}
	return build(sf), nil
}

func build(sf structureFile) *Catalog {
	c := &Catalog{
		Info:          sf.MsInfo,
		Rooms:         make(map[string]ltype.Room, len(sf.Rooms)),
		Categories:    make(map[string]ltype.Category, len(sf.Cats)),
		Devices:       make(map[string]ltype.Device, len(sf.Controls)),
		ByRoom:        make(map[string][]string),
		ByType:        make(map[string][]string),
		ByCategory:    make(map[string][]string),
		WeatherServer: sf.WeatherServer,
	}

	for uuid, r := range sf.Rooms {
		c.Rooms[uuid] = ltype.Room{UUID: uuid, Name: r.Name}
	}
	for uuid, cat := range sf.Cats {
		c.Categories[uuid] = ltype.Category{UUID: uuid, Name: cat.Name}
	}

	// Deterministic iteration: sort UUIDs before building devices so index
	// slice order (and therefore any serialized snapshot) is stable.
	uuids := make([]string, 0, len(sf.Controls))
	for uuid := range sf.Controls {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	for _, uuid := range uuids {
		ctrl := sf.Controls[uuid]
		roomName := "Unknown"
		if r, ok := c.Rooms[ctrl.Room]; ok {
			roomName = r.Name
		}
		catName := "Uncategorized"
		if cat, ok := c.Categories[ctrl.Cat]; ok {
			catName = cat.Name
		}

		dev := ltype.Device{
			UUID:         uuid,
			Name:         ctrl.Name,
			Type:         ctrl.Type,
			RoomUUID:     ctrl.Room,
			RoomName:     roomName,
			CategoryUUID: ctrl.Cat,
			CategoryName: catName,
			StateRefs:    ctrl.States,
			Details:      ctrl.Details,
		}
		c.Devices[uuid] = dev

		if ctrl.Room != "" {
			c.ByRoom[ctrl.Room] = append(c.ByRoom[ctrl.Room], uuid)
		}
		if ctrl.Type != "" {
			c.ByType[ctrl.Type] = append(c.ByType[ctrl.Type], uuid)
		}
		if catName != "" {
			c.ByCategory[catName] = append(c.ByCategory[catName], uuid)
		}
	}

	c.Capabilities = detectCapabilities(c.Devices)
	return c
}

// capabilityRule is one capability domain's detection table, per spec.md
// §4.7: type set, then category-name set, then name-keyword list, each
// tier only counting devices not already counted by an earlier tier.
type capabilityRule struct {
	types      map[string]struct{}
	categories map[string]struct{}
	keywords   []string
}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, i := range items {
		m[i] = struct{}{}
	}
	return m
}

var capabilityRules = map[string]capabilityRule{
	"lighting": {
		types:    set("LightController", "Dimmer", "Switch"),
		keywords: []string{"licht", "light", "lamp", "lampe"},
	},
	"blinds": {
		types:    set("Jalousie", "Blind", "Shutter"),
		keywords: []string{"rolladen", "jalousie", "blind", "shutter", "markise"},
	},
	"weather": {
		types:      set("WeatherServer", "TemperatureSensor", "HumiditySensor", "WindSensor"),
		categories: set("Weather", "Wetter"),
		keywords:   []string{"weather", "wetter", "temperatur", "temperature"},
	},
	"security": {
		types:      set("AlarmCentral", "SmokeAlarm", "CentralAlarm"),
		categories: set("Security", "Sicherheit", "Alarm"),
		keywords:   []string{"alarm", "security", "sicherheit"},
	},
	"energy": {
		types:      set("Meter", "PowerMeter"),
		categories: set("Energy", "Energie"),
		keywords:   []string{"energy", "energie", "power", "strom"},
	},
	"audio": {
		types:      set("MediaClient", "AudioZone"),
		categories: set("Audio", "Music"),
		keywords:   []string{"audio", "music", "musik", "sound"},
	},
	"climate": {
		types:      set("IRoomController", "IRoomControllerV2", "AcControl"),
		categories: set("Climate", "Klima", "Heating", "Heizung"),
		keywords:   []string{"climate", "klima", "heating", "heizung", "hvac"},
	},
	"sensors": {
		types:    set("DigitalInput", "AnalogInput", "InfoOnlyDigital", "InfoOnlyAnalog"),
		keywords: []string{"sensor", "fenster", "tür", "tuer", "kontakt", "window", "door"},
	},
}

func detectCapabilities(devices map[string]ltype.Device) ltype.Capabilities {
	counted := make(map[string]map[string]bool, len(capabilityRules))
	counts := make(map[string]int, len(capabilityRules))
	for domain := range capabilityRules {
		counted[domain] = make(map[string]bool)
	}

	for domain, rule := range capabilityRules {
		for uuid, dev := range devices {
			if counted[domain][uuid] {
				continue
			}
			if _, ok := rule.types[dev.Type]; ok {
				counted[domain][uuid] = true
				counts[domain]++
				continue
			}
			if _, ok := rule.categories[dev.CategoryName]; ok {
				counted[domain][uuid] = true
				counts[domain]++
				continue
			}
			nameLower := strings.ToLower(dev.Name)
			for _, kw := range rule.keywords {
				if strings.Contains(nameLower, kw) {
					counted[domain][uuid] = true
					counts[domain]++
					break
				}
			}
		}
	}

	return ltype.Capabilities{
		HasLighting: counts["lighting"] > 0, LightingN: counts["lighting"],
		HasBlinds: counts["blinds"] > 0, BlindsN: counts["blinds"],
		HasWeather: counts["weather"] > 0, WeatherN: counts["weather"],
		HasSecurity: counts["security"] > 0, SecurityN: counts["security"],
		HasEnergy: counts["energy"] > 0, EnergyN: counts["energy"],
		HasAudio: counts["audio"] > 0, AudioN: counts["audio"],
		HasClimate: counts["climate"] > 0, ClimateN: counts["climate"],
		HasSensors: counts["sensors"] > 0, SensorsN: counts["sensors"],
	}
}
