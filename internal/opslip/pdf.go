package opslip

import (
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders the slip as a single A4 page. Only core fonts are used so
// no font files are needed at runtime.
func (s Slip) WritePDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("OP Slip "+s.AppointmentID, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageW - left - right

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(width, 9, tr(s.Name), "", 1, "C", false, 0, "")
	if s.Address != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(width, 6, tr(s.Address), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(width, 8, "OUTPATIENT DEPARTMENT SLIP", "B", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(width/2, 6, tr("Appointment ID: "+orNA(s.AppointmentID)), "", 0, "L", false, 0, "")
	pdf.CellFormat(width/2, 6, "Issued: "+s.IssuedLabel(), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(width, 8, title, "", 1, "L", false, 0, "")
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(width-45, 6, tr(value), "", 1, "L", false, 0, "")
	}

	section("Patient Information")
	row("Patient Name", orNA(s.PatientName))
	row("Patient ID", orNA(s.PatientID))
	row("Department", s.DepartmentLabel())
	pdf.Ln(3)

	section("Appointment Details")
	row("Appointment Date", s.DateLabel())
	row("Time Slot", orNA(s.Time))
	row("Doctor", orNA(s.Doctor))
	pdf.Ln(3)

	section("Symptoms")
	pdf.SetFont("Helvetica", "", 10)
	symptoms := "No symptoms reported"
	if len(s.Symptoms) > 0 {
		symptoms = strings.Join(s.Symptoms, ", ")
	}
	pdf.MultiCell(width, 6, tr(symptoms), "", "L", false)

	if s.Notes != "" {
		pdf.Ln(2)
		section("Additional Notes")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(width, 6, tr(s.Notes), "", "L", false)
	}

	pdf.Ln(20)
	y := pdf.GetY()
	pdf.Line(left, y, left+60, y)
	pdf.Line(left+width-60, y, left+width, y)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(60, 5, "Patient's Signature", "", 0, "C", false, 0, "")
	pdf.CellFormat(width-120, 5, "", "", 0, "C", false, 0, "")
	pdf.CellFormat(60, 5, "Doctor's Signature", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 7)
	for _, l := range s.footer() {
		pdf.CellFormat(width, 4, tr(l), "", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}
