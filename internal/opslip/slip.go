// Package opslip renders the outpatient slip handed to a patient after a
// successful booking.
package opslip

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/example/op-booking/internal/portal"
)

const notAvailable = "N/A"

// Letterhead is the hospital identity printed on every slip.
type Letterhead struct {
	Name          string
	Address       string
	HelpdeskEmail string
}

type Slip struct {
	Letterhead

	Issued        time.Time
	AppointmentID string
	PatientName   string
	PatientID     string
	Date          string // YYYY-MM-DD
	Time          string
	Department    string
	Doctor        string
	Symptoms      []string
	Notes         string
}

// FromAppointment builds the slip for a stored appointment. Patient fields
// fall back to the session identity when the server leaves them out.
func FromAppointment(lh Letterhead, a portal.Appointment, patientName, patientID string, issued time.Time) Slip {
	s := Slip{
		Letterhead:    lh,
		Issued:        issued,
		AppointmentID: a.ID,
		PatientName:   a.PatientName,
		PatientID:     a.UserAadhaar,
		Date:          a.Date,
		Time:          a.Time,
		Department:    a.Department,
		Doctor:        a.Doctor,
		Symptoms:      append([]string(nil), a.SymptomList...),
		Notes:         a.Notes,
	}
	if s.PatientName == "" {
		s.PatientName = patientName
	}
	if s.PatientID == "" {
		s.PatientID = patientID
	}
	return s
}

// DepartmentLabel is the department as printed: upper case, General
// Medicine when unknown.
func (s Slip) DepartmentLabel() string {
	if s.Department == "" || s.Department == notAvailable {
		return "GENERAL MEDICINE"
	}
	return strings.ToUpper(s.Department)
}

// DateLabel formats the appointment date as "Monday, March 10, 2025".
func (s Slip) DateLabel() string {
	if s.Date == "" {
		return notAvailable
	}
	d, err := time.Parse(time.DateOnly, s.Date)
	if err != nil {
		return s.Date
	}
	return d.Format("Monday, January 2, 2006")
}

func (s Slip) IssuedLabel() string {
	return s.Issued.Format("Jan 2, 2006, 03:04 PM")
}

// FileName is the suggested download name.
func (s Slip) FileName() string {
	id := s.AppointmentID
	if id == "" {
		id = "slip"
	}
	return "op-slip-" + id + ".pdf"
}

func (s Slip) footer() []string {
	lines := []string{
		"This is an electronically generated document and does not require a physical signature.",
		"Please bring this slip and a valid ID on the day of your appointment.",
	}
	if s.HelpdeskEmail != "" {
		lines = append(lines, "For any queries, please contact our helpdesk at "+s.HelpdeskEmail+".")
	}
	return lines
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return notAvailable
	}
	return v
}

// WriteText prints the slip for a terminal.
func (s Slip) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Name)
	if s.Address != "" {
		fmt.Fprintf(&b, "%s\n", s.Address)
	}
	b.WriteString("OUTPATIENT DEPARTMENT SLIP\n\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Appointment ID", orNA(s.AppointmentID)},
		{"Issued", s.IssuedLabel()},
		{"Patient Name", orNA(s.PatientName)},
		{"Patient ID", orNA(s.PatientID)},
		{"Department", s.DepartmentLabel()},
		{"Appointment Date", s.DateLabel()},
		{"Time Slot", orNA(s.Time)},
		{"Doctor", orNA(s.Doctor)},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	b.WriteString("\nSymptoms:\n")
	if len(s.Symptoms) == 0 {
		b.WriteString("  No symptoms reported\n")
	}
	for _, sym := range s.Symptoms {
		fmt.Fprintf(&b, "  - %s\n", sym)
	}
	if s.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n  %s\n", s.Notes)
	}
	b.WriteString("\n")
	for _, l := range s.footer() {
		b.WriteString(l + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
