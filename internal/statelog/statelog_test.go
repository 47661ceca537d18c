package statelog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/loxone-mcp/bridge/internal/ltype"
)

func newTestLog(t *testing.T, opts Options) *Log {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "state.json")
	}
	return New(opts, nil)
}

func TestLogChangeAppendsEventAndTracksTotals(t *testing.T) {
	l := newTestLog(t, Options{})
	l.LogChange("u1", ltype.Double(0), ltype.Double(1), 1000)
	l.LogChange("u1", ltype.Double(1), ltype.Double(0), 1010)

	events, ok := l.History("u1")
	if !ok {
		t.Fatal("History(u1) not found")
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d; want 2", len(events))
	}
	if events[0].HumanReadable != "CLOSED" || events[1].HumanReadable != "OPEN" {
		t.Errorf("labels = %q, %q; want CLOSED, OPEN", events[0].HumanReadable, events[1].HumanReadable)
	}
}

func TestHumanReadableLabels(t *testing.T) {
	cases := []struct {
		name string
		v    ltype.Value
		want string
	}{
		{"zero", ltype.Double(0), "OPEN"},
		{"one", ltype.Double(1), "CLOSED"},
		{"text", ltype.Text("open"), "OPEN"},
		{"other double", ltype.Double(42.5), "VALUE(42.5)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := humanReadable(tc.v); got != tc.want {
				t.Errorf("humanReadable(%v) = %q; want %q", tc.v, got, tc.want)
			}
		})
	}
}

func TestRingBufferEvictsOldestEventPerSensor(t *testing.T) {
	l := newTestLog(t, Options{MaxEventsPerSensor: 3})
	for i := 0; i < 5; i++ {
		l.LogChange("u1", ltype.Double(float64(i)), ltype.Double(float64(i+1)), int64(1000+i))
	}
	events, _ := l.History("u1")
	if len(events) != 3 {
		t.Fatalf("len(events) = %d; want 3", len(events))
	}
	if events[0].TimestampUnix != 1002 {
		t.Errorf("oldest retained event timestamp = %v; want 1002 (events 0,1 evicted)", events[0].TimestampUnix)
	}
}

func TestMaxSensorsEvictsLeastRecentlyUpdated(t *testing.T) {
	l := newTestLog(t, Options{MaxSensors: 2})
	l.LogChange("u1", ltype.Double(0), ltype.Double(1), 1000)
	l.LogChange("u2", ltype.Double(0), ltype.Double(1), 2000)
	l.LogChange("u3", ltype.Double(0), ltype.Double(1), 3000)

	if _, ok := l.History("u1"); ok {
		t.Error("u1 should have been evicted (oldest last_updated)")
	}
	if _, ok := l.History("u2"); !ok {
		t.Error("u2 should still be tracked")
	}
	if _, ok := l.History("u3"); !ok {
		t.Error("u3 should still be tracked")
	}
}

func TestRecentChangesOrdersNewestFirst(t *testing.T) {
	l := newTestLog(t, Options{})
	l.LogChange("u1", ltype.Double(0), ltype.Double(1), 1000)
	l.LogChange("u2", ltype.Double(0), ltype.Double(1), 3000)
	l.LogChange("u3", ltype.Double(0), ltype.Double(1), 2000)

	recent := l.RecentChanges(2)
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d; want 2", len(recent))
	}
	if recent[0].UUID != "u2" || recent[1].UUID != "u3" {
		t.Errorf("order = %s,%s; want u2,u3 (newest first)", recent[0].UUID, recent[1].UUID)
	}
}

func TestChangesSinceFiltersAndOrdersAscending(t *testing.T) {
	l := newTestLog(t, Options{})
	l.LogChange("u1", ltype.Double(0), ltype.Double(1), 1000)
	l.LogChange("u2", ltype.Double(0), ltype.Double(1), 2000)
	l.LogChange("u3", ltype.Double(0), ltype.Double(1), 3000)

	changes := l.ChangesSince(1500)
	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d; want 2", len(changes))
	}
	if changes[0].UUID != "u2" || changes[1].UUID != "u3" {
		t.Errorf("order = %s,%s; want u2,u3 (ascending)", changes[0].UUID, changes[1].UUID)
	}
}

func TestDoorWindowActivitySummarizesOpenClose(t *testing.T) {
	l := newTestLog(t, Options{})
	now := int64(10_000)
	l.LogChange("door1", ltype.Double(1), ltype.Double(0), now-100) // -> OPEN
	l.LogChange("door1", ltype.Double(0), ltype.Double(1), now-50)  // -> CLOSED
	l.LogChange("temp1", ltype.Double(10), ltype.Double(20), now-50)

	summary := l.DoorWindowActivity(1, float64(now))
	if summary.TotalChanges != 2 {
		t.Errorf("TotalChanges = %d; want 2 (temp1 excluded)", summary.TotalChanges)
	}
	if summary.SensorsActive != 1 {
		t.Errorf("SensorsActive = %d; want 1", summary.SensorsActive)
	}
	act := summary.SensorActivity["door1"]
	if act.Opens != 1 || act.Closes != 1 || act.CurrentState != "CLOSED" {
		t.Errorf("door1 activity = %+v; want 1 open, 1 close, current=CLOSED", act)
	}
}

func TestStatisticsReportsNoDataWhenEmpty(t *testing.T) {
	l := newTestLog(t, Options{})
	stats := l.Statistics()
	if stats.Status != "no_data" {
		t.Errorf("Status = %q; want no_data", stats.Status)
	}
}

func TestStatisticsTracksMostActiveSensor(t *testing.T) {
	l := newTestLog(t, Options{})
	l.LogChange("quiet", ltype.Double(0), ltype.Double(1), 1000)
	l.LogChange("busy", ltype.Double(0), ltype.Double(1), 1000)
	l.LogChange("busy", ltype.Double(1), ltype.Double(0), 1001)
	l.LogChange("busy", ltype.Double(0), ltype.Double(1), 1002)

	stats := l.Statistics()
	if stats.SensorsTracked != 2 {
		t.Errorf("SensorsTracked = %d; want 2", stats.SensorsTracked)
	}
	if stats.MostActiveSensor != "busy" {
		t.Errorf("MostActiveSensor = %q; want busy", stats.MostActiveSensor)
	}
}

func TestPersistWritesAtomicallyAndLoadRestoresState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	l := newTestLog(t, Options{Path: path})
	l.LogChange("u1", ltype.Double(0), ltype.Double(1), 1000)
	if err := l.persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("leftover temp file %q after persist", e.Name())
		}
	}

	reloaded := New(Options{Path: path}, nil)
	events, ok := reloaded.History("u1")
	if !ok || len(events) != 1 {
		t.Fatalf("reloaded history for u1 = %v, ok=%v; want 1 event", events, ok)
	}
}

func TestLoadDropsMalformedFileWithoutFailing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o600); err != nil {
		t.Fatal(err)
	}

	l := New(Options{Path: path}, nil)
	if l.Statistics().Status != "no_data" {
		t.Error("expected a fresh, empty log when the on-disk file is malformed")
	}
}

func TestPersistIsNoopWhenNotDirty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	l := newTestLog(t, Options{Path: path})

	if err := l.persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("persist should not create a file when the log has never been dirtied")
	}
}

func TestPersistedFileIsValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	l := newTestLog(t, Options{Path: path})
	l.LogChange("u1", ltype.Double(0), ltype.Double(1), 1000)
	if err := l.persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var pf persistedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		t.Fatalf("persisted file is not valid JSON: %v", err)
	}
	if len(pf.Histories) != 1 {
		t.Errorf("len(Histories) = %d; want 1", len(pf.Histories))
	}
}
