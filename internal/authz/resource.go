package authz

import (
	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// Resource describes who a record belongs to, following its ownership chain.
type Resource struct {
	ClinicIDs []uuid.UUID
	DoctorIDs []uuid.UUID
	PatientID uuid.UUID
}

func (r *Resource) addClinic(id uuid.UUID) {
	if id != uuid.Nil {
		r.ClinicIDs = append(r.ClinicIDs, id)
	}
}

func (r *Resource) addDoctor(id uuid.UUID) {
	if id != uuid.Nil {
		r.DoctorIDs = append(r.DoctorIDs, id)
	}
}

func InClinic(clinicID uuid.UUID) Resource {
	var r Resource
	r.addClinic(clinicID)
	return r
}

func ClinicResource(c *models.Clinic) Resource {
	return InClinic(c.ID)
}

func UserResource(u *models.User) Resource {
	var r Resource
	if u.ClinicID != nil {
		r.addClinic(*u.ClinicID)
	}
	return r
}

func DoctorResource(d *models.Doctor) Resource {
	r := InClinic(d.ClinicID)
	r.addDoctor(d.ID)
	return r
}

func ServiceResource(s *models.Service) Resource {
	return InClinic(s.ClinicID)
}

// PatientResource links a patient to its registering clinic and to every
// clinic and doctor it has an appointment with.
func PatientResource(p *models.Patient, appointments []models.Appointment) Resource {
	r := Resource{PatientID: p.ID}
	if p.RegisteredClinicID != nil {
		r.addClinic(*p.RegisteredClinicID)
	}
	for _, a := range appointments {
		r.addClinic(a.ClinicID)
		r.addDoctor(a.DoctorID)
	}
	return r
}

func AppointmentResource(a *models.Appointment) Resource {
	r := Resource{PatientID: a.PatientID}
	r.addClinic(a.ClinicID)
	r.addDoctor(a.DoctorID)
	return r
}

// ConsultationResource and PrescriptionResource inherit from the appointment.
func ConsultationResource(a *models.Appointment) Resource {
	return AppointmentResource(a)
}

func PrescriptionResource(a *models.Appointment) Resource {
	return AppointmentResource(a)
}

func InvoiceResource(inv *models.Invoice) Resource {
	r := Resource{PatientID: inv.PatientID}
	if inv.ClinicID != nil {
		r.addClinic(*inv.ClinicID)
	}
	return r
}
