// Package history remembers which budget alerts were sent on which day so
// that each (month, category, threshold) fires at most once per calendar day.
package history

import (
	"encoding/json"
	"maps"

	"budgetwatch/internal/core"
)

// Map is month -> "<category>-<kind>" -> YYYY-MM-DD of the last notification.
type Map map[string]map[string]string

// Key builds the inner key for a category and threshold.
func Key(category core.Category, kind core.ThresholdKind) string {
	return string(category) + "-" + string(kind)
}

// WasNotifiedToday reports whether an alert for the key was already sent on today.
func WasNotifiedToday(h Map, month core.MonthYear, category core.Category, kind core.ThresholdKind, today core.Date) bool {
	return h[month.String()][Key(category, kind)] == today.String()
}

// RecordNotified returns a copy of h with the key set to today. h is not modified.
func RecordNotified(h Map, month core.MonthYear, category core.Category, kind core.ThresholdKind, today core.Date) Map {
	out := h.Clone()
	m := month.String()
	inner := out[m]
	if inner == nil {
		inner = make(map[string]string)
	} else {
		inner = maps.Clone(inner)
	}
	inner[Key(category, kind)] = today.String()
	out[m] = inner
	return out
}

// Clone copies the outer map. Inner maps are shared and must be cloned before writing.
func (h Map) Clone() Map {
	out := make(Map, len(h)+1)
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Merge combines two histories. When both hold a key the later date wins;
// YYYY-MM-DD strings order the same way the dates do.
func Merge(base, overlay Map) Map {
	out := make(Map, len(base)+len(overlay))
	for m, inner := range base {
		out[m] = maps.Clone(inner)
	}
	for m, inner := range overlay {
		dst := out[m]
		if dst == nil {
			dst = make(map[string]string, len(inner))
			out[m] = dst
		}
		for k, day := range inner {
			if day > dst[k] {
				dst[k] = day
			}
		}
	}
	return out
}

// Decode parses a stored history document. Empty input is an empty history.
func Decode(s string) (Map, error) {
	h := Map{}
	if s == "" {
		return h, nil
	}
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return Map{}, err
	}
	if h == nil {
		h = Map{}
	}
	return h, nil
}

func Encode(h Map) (string, error) {
	if h == nil {
		h = Map{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
