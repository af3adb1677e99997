package contracts

import "time"

// TimestampLayout is the wire format for all message and metric timestamps.
// Fixed-width with zero padding so ISO strings sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// CompactTimestampLayout is used inside metric store object keys.
const CompactTimestampLayout = "20060102_150405"

// FormatTimestamp renders t in the wire format (always UTC).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a wire timestamp. Lenient on fractional-second
// precision so externally produced ISO-8601 strings are accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// LatencyMS computes (received - sent) in milliseconds from two wire
// timestamps. A malformed timestamp yields 0 and the parse error; the
// caller logs and continues. Negative deltas (clock skew) clamp to 0.
func LatencyMS(sentTS, receivedTS string) (float64, error) {
	sent, err := ParseTimestamp(sentTS)
	if err != nil {
		return 0, err
	}
	received, err := ParseTimestamp(receivedTS)
	if err != nil {
		return 0, err
	}

	ms := received.Sub(sent).Seconds() * 1000
	if ms < 0 {
		return 0, nil
	}
	return ms, nil
}
