package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickSlot(t *testing.T) {
	available := []string{"10:30", "09:00", "09:30"}
	cases := []struct {
		name      string
		preferred []string
		available []string
		want      string
		ok        bool
	}{
		{"none available", []string{"09:00"}, nil, "", false},
		{"earliest without preference", nil, available, "09:00", true},
		{"first preference wins", []string{"10:30", "09:30"}, available, "10:30", true},
		{"skips unavailable", []string{"11:00", "9:30"}, available, "09:30", true},
		{"falls back to earliest", []string{"17:00"}, available, "09:00", true},
		{"twelve hour labels", []string{"2:00 pm"}, []string{"01:00 PM", "02:00 PM"}, "02:00 PM", true},
		{"opaque labels", []string{"slot-b"}, []string{"slot-a", "slot-b"}, "slot-b", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PickSlot(tc.preferred, tc.available)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
