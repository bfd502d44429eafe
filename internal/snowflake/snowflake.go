// Package snowflake converts platform IDs to timestamps and back.
//
// Snowflakes are 64-bit integers whose upper bits encode the creation
// time in milliseconds since the platform epoch (2015-01-01 UTC).
// Numeric ordering of snowflakes therefore equals chronological ordering,
// which the sync engines rely on for pagination cursors.
package snowflake

import "time"

// Epoch is the platform epoch in Unix milliseconds (2015-01-01T00:00:00Z).
const Epoch int64 = 1420070400000

// timestampShift is the number of low bits reserved for worker/process/sequence.
const timestampShift = 22

// Time extracts the creation time encoded in a snowflake.
func Time(id int64) time.Time {
	ms := (id >> timestampShift) + Epoch
	return time.UnixMilli(ms).UTC()
}

// FromTime builds the smallest snowflake for the given instant.
// Useful as an exclusive pagination boundary: every ID created at or
// after t compares >= FromTime(t).
func FromTime(t time.Time) int64 {
	ms := t.UnixMilli() - Epoch
	return ms << timestampShift
}

// Day formats the creation date of a snowflake for progress logging.
func Day(id int64) string {
	return Time(id).Format("2006-01-02")
}
