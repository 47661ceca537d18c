package tools

import (
	"sort"
	"strings"

	"github.com/loxone-mcp/bridge/internal/catalog"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

// Canonical action verbs, per spec.md §4.10.
const (
	ActionOn       = "on"
	ActionOff      = "off"
	ActionUp       = "up"
	ActionDown     = "down"
	ActionStop     = "stop"
	ActionDim      = "dim"
	ActionToggle   = "toggle"
	ActionPosition = "position"
)

// actionAliases maps German/English synonyms to a canonical verb. Lookups
// are case-insensitive (the caller lowercases first).
var actionAliases = map[string]string{
	"on": ActionOn, "an": ActionOn, "ein": ActionOn, "einschalten": ActionOn,
	"off": ActionOff, "aus": ActionOff, "ausschalten": ActionOff,
	"up": ActionUp, "open": ActionUp, "hoch": ActionUp, "auf": ActionUp, "öffnen": ActionUp, "oeffnen": ActionUp,
	"down": ActionDown, "close": ActionDown, "runter": ActionDown, "zu": ActionDown, "schliessen": ActionDown, "schließen": ActionDown,
	"stop": ActionStop, "halt": ActionStop, "stopp": ActionStop, "anhalten": ActionStop,
	"dim": ActionDim, "dimmen": ActionDim,
	"toggle": ActionToggle, "umschalten": ActionToggle, "wechseln": ActionToggle,
	"position": ActionPosition, "pos": ActionPosition, "stellen": ActionPosition,
}

// NormalizeAction maps a free-form action string to its canonical verb.
// Unrecognized input is lowercased and trimmed but otherwise passed through
// unchanged, so an invalid action still fails predictably downstream
// ("Invalid action: dance", per spec.md's S2 seed scenario) rather than
// silently. Idempotent: NormalizeAction(NormalizeAction(x)) == NormalizeAction(x),
// since every alias table value is already its own canonical form.
func NormalizeAction(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := actionAliases[key]; ok {
		return canon
	}
	return key
}

// floorPrefixes maps a floor token (German abbreviations and their long
// forms) to the room-name prefix it expands to.
var floorPrefixes = map[string]string{
	"og": "OG", "obergeschoss": "OG", "upperfloor": "OG", "upstairs": "OG",
	"eg": "EG", "erdgeschoss": "EG", "groundfloor": "EG",
	"ug": "UG", "untergeschoss": "UG", "basement": "UG",
	"dg": "DG", "dachgeschoss": "DG", "attic": "DG",
}

var umlautFold = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
)

// foldUmlauts applies the spec's literal ä→ae / ö→oe / ü→ue / ß→ss table,
// then lowercases, so folded comparisons are also case-insensitive.
func foldUmlauts(s string) string {
	return strings.ToLower(umlautFold.Replace(s))
}

// ResolveRoom implements spec.md §4.10's room-resolution ladder: exact
// case-insensitive match; else substring match after umlaut folding; else,
// if the query is a bare floor token, every room whose name carries that
// floor's prefix. Returns the matched rooms in UUID order for determinism,
// or a nil slice if nothing matched.
func ResolveRoom(cat *catalog.Catalog, query string) []ltype.Room {
	if cat == nil || query == "" {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))

	uuids := sortedRoomUUIDs(cat)

	for _, uuid := range uuids {
		r := cat.Rooms[uuid]
		if strings.ToLower(r.Name) == q {
			return []ltype.Room{r}
		}
	}

	folded := foldUmlauts(query)
	var matches []ltype.Room
	for _, uuid := range uuids {
		r := cat.Rooms[uuid]
		if strings.Contains(foldUmlauts(r.Name), folded) {
			matches = append(matches, r)
		}
	}
	if len(matches) > 0 {
		return matches
	}

	if prefix, ok := floorPrefixes[q]; ok {
		matches = nil
		for _, uuid := range uuids {
			r := cat.Rooms[uuid]
			if strings.HasPrefix(strings.ToUpper(r.Name), prefix) {
				matches = append(matches, r)
			}
		}
		return matches
	}

	return nil
}

func sortedRoomUUIDs(cat *catalog.Catalog) []string {
	uuids := make([]string, 0, len(cat.Rooms))
	for uuid := range cat.Rooms {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)
	return uuids
}

// nearRoomMatches returns up to n room names, in UUID order, that contain
// query after umlaut folding (every room when query is empty), for the
// "Room not found" error text.
func nearRoomMatches(cat *catalog.Catalog, query string, n int) []string {
	if cat == nil {
		return nil
	}
	folded := foldUmlauts(query)
	var out []string
	for _, uuid := range sortedRoomUUIDs(cat) {
		name := cat.Rooms[uuid].Name
		if strings.Contains(foldUmlauts(name), folded) || folded == "" {
			out = append(out, name)
			if len(out) >= n {
				break
			}
		}
	}
	return out
}
