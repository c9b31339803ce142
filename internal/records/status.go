package records

import (
	"strings"
	"time"

	"github.com/example/op-booking/internal/portal"
)

var slotLayouts = []string{"15:04", "3:04 PM", "3:04PM"}

// SlipTime is when the booked slot starts. Date-only slips with an
// unreadable slot time count from midnight UTC.
func SlipTime(r portal.HealthRecord) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, r.SlipDate); err == nil {
		return t, true
	}
	d, err := time.Parse(time.DateOnly, r.SlipDate)
	if err != nil {
		return time.Time{}, false
	}
	slot := strings.ToUpper(strings.TrimSpace(r.SlotTime))
	for _, layout := range slotLayouts {
		if c, err := time.Parse(layout, slot); err == nil {
			return d.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute), true
		}
	}
	return d, true
}

func isPast(r portal.HealthRecord, now time.Time) bool {
	t, ok := SlipTime(r)
	return ok && t.Before(now)
}

// DisplayStatus is the label shown for a booking. Past bookings show their
// outcome; upcoming ones show the acknowledgement.
func DisplayStatus(r portal.HealthRecord, now time.Time) string {
	if isPast(r, now) {
		if r.Acknowledgement == portal.AckConfirmed {
			return "Completed"
		}
		return "Expired"
	}
	switch r.Acknowledgement {
	case portal.AckConfirmed:
		return "Confirmed"
	case portal.AckCancelled:
		return "Cancelled"
	}
	if t, ok := SlipTime(r); ok && !t.After(now.Add(time.Hour)) {
		return "Action Required"
	}
	return "Pending Confirmation"
}

// CanAcknowledge reports whether the booking still awaits the patient's
// confirm or cancel.
func CanAcknowledge(r portal.HealthRecord, now time.Time) bool {
	t, ok := SlipTime(r)
	return r.Acknowledgement == portal.AckPending && ok && t.After(now)
}
