package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type AppointmentListDTO struct {
	ID             uuid.UUID `json:"id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	ClinicID       uuid.UUID `json:"clinic_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PatientName    string    `json:"patient_name"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	Specialization string    `json:"specialization"`
}

func NewAppointmentListDTO(ap models.Appointment) AppointmentListDTO {
	out := AppointmentListDTO{
		ID:          ap.ID,
		ScheduledAt: ap.ScheduledAt,
		Status:      ap.Status,
		Notes:       ap.Notes,
		ClinicID:    ap.ClinicID,
		PatientID:   ap.PatientID,
		DoctorID:    ap.DoctorID,
	}
	if ap.Patient != nil {
		out.PatientName = ap.Patient.FullName()
	}
	if ap.Doctor != nil {
		out.Specialization = ap.Doctor.Specialization
		if ap.Doctor.User != nil {
			out.DoctorName = ap.Doctor.User.Name
		}
	}
	return out
}
