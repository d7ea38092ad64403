package timeutil

import (
	"fmt"
	"time"
)

// StampLayout is the timestamp embedded in backup filenames.
const StampLayout = "20060102_150405"

// Stamp formats t for use in a backup filename.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}

// ParseStamp parses a backup filename timestamp produced by Stamp.
func ParseStamp(value string) (time.Time, error) {
	return time.Parse(StampLayout, value)
}

// ParseRFC3339 parses an RFC3339 timestamp, accepting fractional seconds.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
