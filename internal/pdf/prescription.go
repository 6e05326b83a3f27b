// Package pdf renders printable clinical documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

const ContentType = "application/pdf"

// PrescriptionData is everything printed on a prescription.
type PrescriptionData struct {
	ID string

	ClinicName    string
	ClinicAddress string
	ClinicPhone   string
	// PNG bytes; optional
	ClinicLogo []byte

	PatientName string
	PatientDOB  *time.Time

	DoctorName     string
	Specialization string
	LicenseNumber  string

	IssuedAt     time.Time
	Location     *time.Location
	Medications  string
	Instructions string
}

// RenderPrescription lays out a single A4 page.
func RenderPrescription(d PrescriptionData) ([]byte, error) {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Prescription "+d.ID, true)
	pdf.SetCreator("clinic-api", true)
	pdf.SetMargins(20, 20, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Prescription %s - %s", d.ID, d.ClinicName)), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// ---------- Header ----------
	if len(d.ClinicLogo) > 0 {
		pdf.RegisterImageOptionsReader("logo", gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(d.ClinicLogo))
		pdf.ImageOptions("logo", 20, 16, 22, 0, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetX(46)
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 8, tr(d.ClinicName))
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 10)
	if len(d.ClinicLogo) > 0 {
		pdf.SetX(46)
	}
	contact := strings.TrimSpace(strings.Join(nonEmpty(d.ClinicAddress, d.ClinicPhone), " | "))
	pdf.Cell(0, 6, tr(contact))
	pdf.Ln(14)

	pdf.SetDrawColor(180, 180, 180)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Medical Prescription", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ---------- Patient / doctor ----------
	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(40, 7, tr(label))
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 7, tr(value))
		pdf.Ln(7)
	}

	field("Patient:", d.PatientName)
	if d.PatientDOB != nil {
		field("Date of birth:", d.PatientDOB.Format("2006-01-02"))
	}
	field("Doctor:", d.DoctorName)
	if d.Specialization != "" {
		field("Specialization:", d.Specialization)
	}
	if d.LicenseNumber != "" {
		field("License:", d.LicenseNumber)
	}
	field("Date:", d.IssuedAt.In(loc).Format("2006-01-02 15:04 MST"))
	pdf.Ln(6)

	// ---------- Body ----------
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Medications")
	pdf.Ln(9)
	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, tr(d.Medications), "", "L", false)

	if strings.TrimSpace(d.Instructions) != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "Instructions")
		pdf.Ln(9)
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 6, tr(d.Instructions), "", "L", false)
	}

	// ---------- Signature ----------
	pdf.Ln(24)
	pdf.Line(110, pdf.GetY(), 190, pdf.GetY())
	pdf.SetX(110)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(80, 6, tr(d.DoctorName), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render prescription: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
