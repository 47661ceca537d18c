package wsclient

import (
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// frameHeaderLen is the Gen-1 binary message header: bin_type, identifier,
// info_flags, reserved (each 1 byte), payload_length (4 bytes LE).
const frameHeaderLen = 8

type frameHeader struct {
	binType       byte
	identifier    byte
	infoFlags     byte
	reserved      byte
	payloadLength uint32
}

func parseFrameHeader(b []byte) frameHeader {
	return frameHeader{
		binType:       b[0],
		identifier:    b[1],
		infoFlags:     b[2],
		reserved:      b[3],
		payloadLength: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// statePair is one (UUID, value) tuple recovered from a scan.
type statePair struct {
	uuid  string
	value float64
}

// scanStatePairs applies the permissive overlapping scan described in
// spec.md §4.5: walk the payload in 24-byte (UUID + float64) windows,
// advancing by 8 bytes after each attempt, and keep only windows whose
// UUID parses and whose value looks like plausible sensor data. Grounded
// directly on original_source/loxone_websocket_client.py's
// _try_parse_gen1_states, including its stride and plausibility bands.
func scanStatePairs(payload []byte) []statePair {
	var found []statePair
	for offset := 0; offset+24 <= len(payload); offset += 8 {
		id, ok := uuid.FromBytes(payload[offset : offset+16])
		if ok != nil {
			continue
		}
		bits := binary.LittleEndian.Uint64(payload[offset+16 : offset+24])
		value := math.Float64frombits(bits)
		if !plausibleSensorValue(value) {
			continue
		}
		found = append(found, statePair{uuid: id.String(), value: value})
	}
	return found
}

// plausibleSensorValue mirrors _is_reasonable_sensor_value: reject NaN,
// accept exact binary 0/1, accept the 0-1000 analog band, and reject
// values whose magnitude suggests a parsing artifact rather than real data.
func plausibleSensorValue(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if v == 0 || v == 1 {
		return true
	}
	if v >= 0 && v <= 1000 {
		return true
	}
	abs := math.Abs(v)
	return !(abs < 1e-30 || abs > 1e+30)
}
