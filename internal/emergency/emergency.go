// Package emergency books an immediate walk-in at the emergency department.
package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/op-booking/internal/internaltypes"
	"github.com/example/op-booking/internal/opslip"
	"github.com/example/op-booking/internal/portal"
	"github.com/example/op-booking/internal/session"
)

const (
	Doctor     = "Emergency Department"
	Department = "Emergency"
	Symptom    = "Emergency Consultation"
	Notes      = "Emergency appointment - Please proceed to the emergency department."
)

type API interface {
	BookEmergency(ctx context.Context, req portal.EmergencyRequest) (portal.EmergencyResponse, error)
}

type Booker struct {
	API        API
	Session    interface{ User() (session.User, bool) }
	Letterhead opslip.Letterhead
	Log        zerolog.Logger
	Now        func() time.Time
}

// Book requests an emergency slot for the logged-in patient. confirmed is
// the patient's explicit acknowledgement that this is an emergency.
func (b *Booker) Book(ctx context.Context, confirmed bool) (opslip.Slip, error) {
	user, ok := b.Session.User()
	if !ok {
		return opslip.Slip{}, internaltypes.Invalid("Please log in to book an emergency appointment")
	}
	if !confirmed {
		return opslip.Slip{}, internaltypes.Invalid("Please confirm that you need an emergency appointment")
	}

	resp, err := b.API.BookEmergency(ctx, portal.EmergencyRequest{PatientName: user.Name, Doctor: Doctor})
	if err != nil {
		return opslip.Slip{}, err
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	issued := now()
	appt := resp.Appointment
	slip := opslip.Slip{
		Letterhead:    b.Letterhead,
		Issued:        issued,
		AppointmentID: appt.ID,
		PatientName:   user.Name,
		PatientID:     user.AadhaarNumber,
		Date:          appt.Date,
		Time:          appt.Time,
		Department:    Department,
		Doctor:        Doctor,
		Symptoms:      []string{Symptom},
		Notes:         Notes,
	}
	if slip.Date == "" {
		slip.Date = issued.Format(time.DateOnly)
	}
	if slip.Time == "" {
		slip.Time = "ASAP"
	}
	if slip.AppointmentID == "" {
		slip.AppointmentID = fmt.Sprintf("EMG-%d", issued.UnixMilli())
	}
	b.Log.Info().Str("appointment_id", slip.AppointmentID).Msg("emergency appointment booked")
	return slip, nil
}
