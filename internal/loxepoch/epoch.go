// Package loxepoch wraps the Miniserver's custom epoch offset so that
// conversions between Unix time and Loxone time are never spelled out
// inline, where an off-by-offset bug would be easy to miss.
package loxepoch

import "time"

// Offset is the number of seconds between the Unix epoch
// (1970-01-01T00:00:00Z) and the Loxone epoch (2009-01-01T00:00:00Z).
const Offset int64 = 1_230_768_000

// ToLoxoneEpoch converts a Unix timestamp (seconds) to Loxone epoch seconds.
func ToLoxoneEpoch(unixSeconds int64) int64 {
	return unixSeconds - Offset
}

// FromLoxoneEpoch converts Loxone epoch seconds back to a Unix timestamp.
func FromLoxoneEpoch(loxoneSeconds int64) int64 {
	return loxoneSeconds + Offset
}

// Now returns the current time expressed in Loxone epoch seconds.
func Now() int64 {
	return ToLoxoneEpoch(time.Now().Unix())
}
