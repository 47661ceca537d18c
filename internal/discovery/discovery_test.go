package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/loxone-mcp/bridge/internal/events"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

// TestDiscoverClassifiesSeedScenario reproduces spec.md's door/window vs.
// analog vs. noisy seed scenario: U1 toggles strictly between 0 and 1 a
// few times, U2 emits a wide analog range, U3 emits a very high volume of
// updates that fall outside the analog band. U3 must range outside
// [0,1000] -- a high-volume series that stays inside that band ties
// analog's score (both reach a perfect 1.0) and analog, scored first, wins
// ties, so a faithful "noisy" classification needs values analog cannot
// also claim a perfect score on.
func TestDiscoverClassifiesSeedScenario(t *testing.T) {
	bus := events.NewBus(nil)
	d := New(bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []DiscoveredSensor, 1)
	go func() {
		got, err := d.Discover(ctx, 1)
		if err != nil {
			t.Error(err)
		}
		done <- got
	}()

	time.Sleep(20 * time.Millisecond)
	now := time.Now().Unix()

	for _, v := range []float64{0, 1, 0} {
		bus.Publish(events.StateUpdate{UUID: "U1", New: ltype.Double(v), ObservedUnix: now})
	}
	for i := 0; i < 40; i++ {
		v := 18.0 + float64(i)*0.1
		bus.Publish(events.StateUpdate{UUID: "U2", New: ltype.Double(v), ObservedUnix: now})
	}
	for i := 0; i < 500; i++ {
		v := 50000.0 + float64(i)
		bus.Publish(events.StateUpdate{UUID: "U3", New: ltype.Double(v), ObservedUnix: now})
	}

	cancel()
	results := <-done

	byUUID := make(map[string]DiscoveredSensor, len(results))
	for _, r := range results {
		byUUID[r.UUID] = r
	}

	if got := byUUID["U1"].Category; got != CategoryDoorWindow {
		t.Errorf("U1 category = %q; want door_window", got)
	}
	if got := byUUID["U2"].Category; got != CategoryAnalog {
		t.Errorf("U2 category = %q; want analog", got)
	}
	if got := byUUID["U3"].Category; got != CategoryNoisy {
		t.Errorf("U3 category = %q; want noisy", got)
	}
}

// TestAnalogWinsTieAgainstNoisyWithinBand reproduces the original scoring
// table's quirk directly: a non-binary, strictly in-range sensor with a high
// update count that stays within noisy's 1000-update ceiling scores a
// perfect 1.0 on both analog and noisy, and analog -- scored first -- keeps
// its "best" status on the tie.
func TestAnalogWinsTieAgainstNoisyWithinBand(t *testing.T) {
	rec := newRecord("U", 0)
	for i := 0; i < 1000; i++ {
		rec.observe(ltype.Double(float64(i%900)+1), int64(i))
	}

	analog := categoryScore(CategoryAnalog, rec)
	noisy := categoryScore(CategoryNoisy, rec)
	if analog != 1.0 || noisy != 1.0 {
		t.Fatalf("analog=%v noisy=%v; want both 1.0 on this in-range, high-volume series", analog, noisy)
	}

	classify(rec)
	if rec.Category != CategoryAnalog {
		t.Errorf("Category = %q; want analog to win the tie over noisy", rec.Category)
	}
}

func TestDoorWindowHardDisqualifiesNonBinary(t *testing.T) {
	rec := newRecord("U", 0)
	rec.observe(ltype.Double(0), 1)
	rec.observe(ltype.Double(2.5), 2)
	rec.observe(ltype.Double(1), 3)

	if got := categoryScore(CategoryDoorWindow, rec); got != 0 {
		t.Errorf("categoryScore(door_window) = %v; want 0 for a non-binary series", got)
	}
}

func TestDoorWindowHardDisqualifiesWithoutTransition(t *testing.T) {
	rec := newRecord("U", 0)
	rec.observe(ltype.Double(0), 1)
	rec.observe(ltype.Double(0), 2)

	if got := categoryScore(CategoryDoorWindow, rec); got != 0 {
		t.Errorf("categoryScore(door_window) = %v; want 0 without an observed 0->1 transition", got)
	}
}

func TestValueHistoryCappedAtHistoryCap(t *testing.T) {
	rec := newRecord("U", 0)
	for i := 0; i < historyCap+10; i++ {
		rec.observe(ltype.Double(float64(i)), int64(i))
	}
	if len(rec.ValueHistory) != historyCap {
		t.Fatalf("len(ValueHistory) = %d; want %d", len(rec.ValueHistory), historyCap)
	}
}

func TestPatternScoreWithinUnitRange(t *testing.T) {
	rec := newRecord("U", 0)
	for _, v := range []float64{0, 1, 0, 1, 0} {
		rec.observe(ltype.Double(v), time.Now().Unix())
	}
	score := patternScore(rec)
	if score < 0 || score > 1 {
		t.Fatalf("patternScore = %v; want within [0,1]", score)
	}
}
