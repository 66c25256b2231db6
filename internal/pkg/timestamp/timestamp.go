// Package timestamp parses loosely formatted date-time strings into UTC instants.
//
// Query strings regularly arrive with the "+" of a UTC offset decoded as a space
// ("2024-01-01T00:00:00 00:00"). Repair undoes that before parsing.
package timestamp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var ErrInvalid = errors.New("invalid timestamp")

const offsetLen = len("00:00")

var layouts = buildLayouts()

func buildLayouts() []string {
	var out []string
	for _, sep := range []string{"T", " "} {
		for _, clock := range []string{"15:04:05", "15:04"} {
			for _, zone := range []string{"Z07:00", "Z0700", "Z07", ""} {
				out = append(out, "2006-01-02"+sep+clock+zone)
			}
		}
	}
	return out
}

// Repair restores a "+" that was decoded to a space in front of a trailing HH:MM offset.
// The input is returned unchanged unless it holds a space, no "+", and ends in
// "<time> HH:MM".
func Repair(raw string) string {
	if !strings.Contains(raw, " ") || strings.Contains(raw, "+") {
		return raw
	}
	i := len(raw) - offsetLen - 1
	if i < 1 || raw[i] != ' ' || !isOffset(raw[i+1:]) {
		return raw
	}
	// "2024-01-01 10:30" is a naive date-time, not a corrupted offset.
	if !strings.Contains(raw[:i], ":") {
		return raw
	}
	return raw[:i] + "+" + raw[i+1:]
}

func isOffset(s string) bool {
	if len(s) != offsetLen || s[2] != ':' {
		return false
	}
	for _, idx := range []int{0, 1, 3, 4} {
		if s[idx] < '0' || s[idx] > '9' {
			return false
		}
	}
	return true
}

// Normalize parses raw into a UTC instant. Empty input yields nil and no error.
// Times without an offset are taken as UTC.
func Normalize(raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	s = Repair(s)

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	t = t.UTC()
	return &t, nil
}

// Bound converts an optional filter parameter. Unusable input means no bound.
func Bound(raw string) *time.Time {
	t, err := Normalize(raw)
	if err != nil {
		return nil
	}
	return t
}
