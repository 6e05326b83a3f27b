package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPrescription(t *testing.T) {
	dob := time.Date(1985, 2, 3, 0, 0, 0, 0, time.UTC)
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	out, err := RenderPrescription(PrescriptionData{
		ID:             "rx-1",
		ClinicName:     "Clínica Central",
		ClinicAddress:  "Av. Paulista 1000",
		PatientName:    "João Silva",
		PatientDOB:     &dob,
		DoctorName:     "Dr. Ana",
		Specialization: "Cardiology",
		LicenseNumber:  "CRM-123",
		IssuedAt:       time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Location:       loc,
		Medications:    "Amoxicillin 500mg\nIbuprofen 200mg",
		Instructions:   "Take after meals.",
	})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 1000)
}

func TestRenderPrescription_WithLogo(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var logo bytes.Buffer
	require.NoError(t, png.Encode(&logo, img))

	out, err := RenderPrescription(PrescriptionData{
		ID:          "rx-2",
		ClinicName:  "Central",
		ClinicLogo:  logo.Bytes(),
		PatientName: "Maria",
		DoctorName:  "Dr. Ana",
		IssuedAt:    time.Now(),
		Medications: "Paracetamol",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
