package mirror

import (
	"testing"

	"github.com/loxone-mcp/bridge/internal/events"
	"github.com/loxone-mcp/bridge/internal/ltype"
)

func TestApplyUnknownUUIDPublishesWithoutOld(t *testing.T) {
	bus := events.NewBus(nil)
	var got []events.StateUpdate
	bus.Subscribe(func(u events.StateUpdate) { got = append(got, u) })

	store := New(bus)
	store.Apply("uuid-1", ltype.Double(42), 1000)

	if len(got) != 1 {
		t.Fatalf("len(got) = %d; want 1", len(got))
	}
	if got[0].OldPresent {
		t.Error("OldPresent = true for a first-seen UUID")
	}
	v, _ := got[0].New.AsDouble()
	if v != 42 {
		t.Errorf("New = %v; want 42", v)
	}
}

func TestApplyUnchangedValueDoesNotPublish(t *testing.T) {
	bus := events.NewBus(nil)
	publishCount := 0
	bus.Subscribe(func(events.StateUpdate) { publishCount++ })

	store := New(bus)
	store.Apply("uuid-1", ltype.Double(1), 1000)
	store.Apply("uuid-1", ltype.Double(1), 1001)

	if publishCount != 1 {
		t.Fatalf("publishCount = %d; want 1 (second Apply should be a no-op)", publishCount)
	}
}

func TestApplyChangedValuePublishesOldAndNew(t *testing.T) {
	bus := events.NewBus(nil)
	var got events.StateUpdate
	bus.Subscribe(func(u events.StateUpdate) { got = u })

	store := New(bus)
	store.Apply("uuid-1", ltype.Double(0), 1000)
	store.Apply("uuid-1", ltype.Double(1), 1001)

	if !got.OldPresent {
		t.Fatal("OldPresent = false; want true after a second Apply")
	}
	oldV, _ := got.Old.AsDouble()
	newV, _ := got.New.AsDouble()
	if oldV != 0 || newV != 1 {
		t.Errorf("Old/New = %v/%v; want 0/1", oldV, newV)
	}
}

func TestGetAndSnapshot(t *testing.T) {
	store := New(nil)
	store.Apply("uuid-1", ltype.Text("OPEN"), 1000)
	store.Apply("uuid-2", ltype.Bool(true), 1000)

	v, ok := store.Get("uuid-1")
	if !ok {
		t.Fatal("Get(uuid-1) not found")
	}
	if s, _ := v.AsText(); s != "OPEN" {
		t.Errorf("Get(uuid-1) = %q; want OPEN", s)
	}

	snap := store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("len(snap) = %d; want 2", len(snap))
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", store.Len())
	}
}

func TestApplyIsConcurrencySafe(t *testing.T) {
	store := New(nil)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			for j := 0; j < 100; j++ {
				store.Apply("uuid-shared", ltype.Double(float64(n*100+j)), int64(j))
			}
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	if _, ok := store.Get("uuid-shared"); !ok {
		t.Fatal("expected a value after concurrent Apply calls")
	}
}
