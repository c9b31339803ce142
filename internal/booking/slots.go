package booking

import (
	"strings"
	"time"
)

var slotLayouts = []string{"15:04", "3:04 PM", "3:04PM", "15:04:05"}

// slotKey normalises a slot label to minute granularity so "9:00" and
// "09:00" compare equal. ok is false for labels that are not clock times.
func slotKey(label string) (time.Time, bool) {
	label = strings.TrimSpace(label)
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(label)); err == nil {
			return t.Truncate(time.Minute), true
		}
	}
	return time.Time{}, false
}

func sameSlot(a, b string) bool {
	ka, okA := slotKey(a)
	kb, okB := slotKey(b)
	if okA && okB {
		return ka.Equal(kb)
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// PickSlot returns the first preferred slot that is available, in the order
// of preference. With no preferred slot available it falls back to the
// earliest available one. The returned label is always the server's.
func PickSlot(preferred, available []string) (string, bool) {
	if len(available) == 0 {
		return "", false
	}
	for _, p := range preferred {
		for _, s := range available {
			if sameSlot(p, s) {
				return s, true
			}
		}
	}

	best := available[0]
	bestKey, bestOK := slotKey(best)
	for _, s := range available[1:] {
		k, ok := slotKey(s)
		if ok && (!bestOK || k.Before(bestKey)) {
			best, bestKey, bestOK = s, k, true
		}
	}
	return best, true
}
