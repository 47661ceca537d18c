package wsclient

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/google/uuid"
)

func encodeTuple(id uuid.UUID, value float64) []byte {
	buf := make([]byte, 24)
	copy(buf[:16], id[:])
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(value))
	return buf
}

func TestScanStatePairsFindsCleanTuple(t *testing.T) {
	id := uuid.New()
	payload := encodeTuple(id, 21.5)

	got := scanStatePairs(payload)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d; want 1", len(got))
	}
	if got[0].uuid != id.String() {
		t.Errorf("uuid = %q; want %q", got[0].uuid, id.String())
	}
	if got[0].value != 21.5 {
		t.Errorf("value = %v; want 21.5", got[0].value)
	}
}

func TestScanStatePairsRejectsImplausibleValue(t *testing.T) {
	id := uuid.New()
	payload := encodeTuple(id, 1e40)

	got := scanStatePairs(payload)
	if len(got) != 0 {
		t.Fatalf("len(got) = %d; want 0 for an out-of-band value", len(got))
	}
}

func TestScanStatePairsOverlappingWindow(t *testing.T) {
	id1 := uuid.New()
	id2 := uuid.New()
	payload := append(encodeTuple(id1, 1), encodeTuple(id2, 0)...)

	got := scanStatePairs(payload)
	if len(got) < 2 {
		t.Fatalf("len(got) = %d; want at least 2 tuples across the overlapping scan", len(got))
	}
}

func TestPlausibleSensorValue(t *testing.T) {
	cases := []struct {
		name string
		v    float64
		want bool
	}{
		{"binary zero", 0, true},
		{"binary one", 1, true},
		{"analog mid-range", 512.3, true},
		{"analog boundary", 1000, true},
		{"outside analog band but plausible magnitude", 1000.01, true},
		{"negative but plausible magnitude", -5, true},
		{"nan", math.NaN(), false},
		{"huge", 1e40, false},
		{"tiny artifact", 1e-40, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := plausibleSensorValue(tc.v); got != tc.want {
				t.Errorf("plausibleSensorValue(%v) = %v; want %v", tc.v, got, tc.want)
			}
		})
	}
}
