package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

func create(t testing.TB, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func Clinic(t testing.TB, db *gorm.DB, name string) *models.Clinic {
	t.Helper()
	c := &models.Clinic{Name: name, Address: "Main St 1", Phone: "555-0100", Timezone: "UTC"}
	create(t, db, c)
	return c
}

// User creates a login for role. Staff users are bound to clinic.
func User(t testing.TB, db *gorm.DB, clinic *models.Clinic, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:         string(role) + " user",
		Email:        uuid.NewString()[:8] + "@example.com",
		PasswordHash: "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinval",
		Role:         role,
	}
	if clinic != nil {
		u.ClinicID = &clinic.ID
	}
	create(t, db, u)
	return u
}

func Doctor(t testing.TB, db *gorm.DB, clinic *models.Clinic) *models.Doctor {
	t.Helper()
	u := User(t, db, clinic, models.RoleDoctor)
	d := &models.Doctor{
		UserID:         u.ID,
		ClinicID:       clinic.ID,
		Specialization: "General Practice",
		LicenseNumber:  "CRM-" + uuid.NewString()[:6],
	}
	create(t, db, d)
	d.User = u
	return d
}

// Patient creates a self-registered patient with its own login.
func Patient(t testing.TB, db *gorm.DB) *models.Patient {
	t.Helper()
	u := User(t, db, nil, models.RolePatient)
	dob := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	p := &models.Patient{
		UserID:      &u.ID,
		FirstName:   "Maria",
		LastName:    "Souza",
		Phone:       "555-0199",
		Email:       u.Email,
		DateOfBirth: &dob,
	}
	create(t, db, p)
	return p
}

// RegisteredPatient is a patient created by the staff of clinic.
func RegisteredPatient(t testing.TB, db *gorm.DB, clinic *models.Clinic) *models.Patient {
	t.Helper()
	p := Patient(t, db)
	p.RegisteredClinicID = &clinic.ID
	if err := db.Model(p).Update("registered_clinic_id", clinic.ID).Error; err != nil {
		t.Fatalf("register patient: %v", err)
	}
	return p
}

func Service(t testing.TB, db *gorm.DB, clinic *models.Clinic, price float64, active bool) *models.Service {
	t.Helper()
	s := &models.Service{ClinicID: clinic.ID, Name: "Consultation", Price: price, IsActive: active}
	create(t, db, s)
	return s
}

func Appointment(t testing.TB, db *gorm.DB, p *models.Patient, d *models.Doctor, status string) *models.Appointment {
	t.Helper()
	a := &models.Appointment{
		PatientID:   p.ID,
		DoctorID:    d.ID,
		ClinicID:    d.ClinicID,
		ScheduledAt: time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second),
		Status:      status,
	}
	create(t, db, a)
	return a
}
