package models

import (
	"strconv"
	"strings"
	"time"
)

// FlexibleTime unmarshals RFC3339/RFC3339Nano strings, the backend's
// zone-less ISO-8601 timestamps, or epoch values in seconds,
// milliseconds, or microseconds. It marshals as RFC3339Nano via the
// embedded time.Time.
type FlexibleTime struct{ time.Time }

// bare isoformat() layouts emitted by the backend
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (ft *FlexibleTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		ft.Time = time.Time{}
		return nil
	}
	// String input
	if len(s) > 0 && (s[0] == '"' && s[len(s)-1] == '"') {
		val := strings.Trim(s, "\"")
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			ft.Time = t
			return nil
		}
		if t, err := time.Parse(time.RFC3339, val); err == nil {
			ft.Time = t
			return nil
		}
		for _, layout := range naiveLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				ft.Time = t.UTC()
				return nil
			}
		}
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			ft.Time = fromFlexibleEpoch(n)
			return nil
		}
		ft.Time = time.Time{}
		return nil
	}
	// Numeric input
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		ft.Time = fromFlexibleEpoch(n)
		return nil
	}
	// Unknown shape
	ft.Time = time.Time{}
	return nil
}

func fromFlexibleEpoch(n int64) time.Time {
	switch {
	case n >= 1_000_000_000_000_000: // >= 1e15: microseconds
		return time.UnixMicro(n)
	case n >= 1_000_000_000_000: // >= 1e12: milliseconds
		return time.UnixMilli(n)
	default:
		return time.Unix(n, 0)
	}
}

func (ft FlexibleTime) IsZero() bool      { return ft.Time.IsZero() }
func (ft FlexibleTime) AsTime() time.Time { return ft.Time }

// At wraps a concrete time for locally constructed values.
func At(t time.Time) FlexibleTime { return FlexibleTime{Time: t} }
