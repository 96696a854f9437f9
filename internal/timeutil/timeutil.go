// Package timeutil parses and formats the timestamps found in
// listening-history exports and query parameters.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used for date-only
// bounds and day grouping.
const DateLayout = "2006-01-02"

// zonedLayouts carry an explicit offset; the parsed instant
// keeps it until the caller converts to UTC.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// naiveLayouts have no zone and are interpreted as UTC.
// Fractional seconds are accepted after the seconds field.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Parse parses a timestamp string into a UTC instant.
// Timestamps without a zone are interpreted as UTC. A bare
// calendar date parses as midnight UTC.
func Parse(s string) (time.Time, error) {
	t, _, err := ParseBound(s)
	return t, err
}

// ParseBound is Parse, additionally reporting whether s was a
// calendar date with no time component.
func ParseBound(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), false, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(
			layout, s, time.UTC,
		); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation(
		DateLayout, s, time.UTC,
	); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf(
		"unrecognized timestamp %q", s,
	)
}

// Format returns t as an RFC3339Nano UTC string, or "" for the
// zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Ptr returns a pointer to the formatted time, or nil for the
// zero time.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}
