package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/dbtest"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/infra/repository"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestCreateAppointment(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewAppointmentGormRepository(db)
	policy := authz.DefaultPolicy()
	uc := NewCreateAppointment(repo, policy, nil)

	clinic := dbtest.Clinic(t, db, "Central")
	other := dbtest.Clinic(t, db, "Other")
	doctor := dbtest.Doctor(t, db, clinic)
	patient := dbtest.Patient(t, db)

	reception := authz.Principal{Role: models.RoleReceptionist, ClinicID: clinic.ID}
	foreignReception := authz.Principal{Role: models.RoleReceptionist, ClinicID: other.ID}
	self := authz.Principal{Role: models.RolePatient, UserID: *patient.UserID, PatientID: patient.ID}

	at := time.Now().Add(48 * time.Hour).Truncate(time.Minute)

	t.Run("patient books for self", func(t *testing.T) {
		ap, err := uc.Execute(context.Background(), self, CreateAppointmentInput{
			DoctorID:    doctor.ID,
			ScheduledAt: at,
		})
		require.NoError(t, err)
		assert.Equal(t, patient.ID, ap.PatientID)
		assert.Equal(t, clinic.ID, ap.ClinicID)
		assert.Equal(t, "SCHEDULED", ap.Status)
	})

	t.Run("overlapping slot for the same doctor", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), reception, CreateAppointmentInput{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: at.Add(15 * time.Minute),
		})
		assert.True(t, httperr.IsBusiness(err, "time_conflict"), "got %v", err)
	})

	t.Run("receptionist of another clinic", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), foreignReception, CreateAppointmentInput{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: at.Add(2 * time.Hour),
		})
		assert.ErrorIs(t, err, httperr.ErrForbidden)
	})

	t.Run("receptionist cannot book a patient unknown to the clinic", func(t *testing.T) {
		unlinked := dbtest.Patient(t, db)
		_, err := uc.Execute(context.Background(), reception, CreateAppointmentInput{
			PatientID:   unlinked.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: at.Add(5 * time.Hour),
		})
		assert.ErrorIs(t, err, httperr.ErrForbidden)

		registered := dbtest.RegisteredPatient(t, db, clinic)
		ap, err := uc.Execute(context.Background(), reception, CreateAppointmentInput{
			PatientID:   registered.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: at.Add(5 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, registered.ID, ap.PatientID)
	})

	t.Run("patient booking for someone else", func(t *testing.T) {
		stranger := dbtest.Patient(t, db)
		_, err := uc.Execute(context.Background(), self, CreateAppointmentInput{
			PatientID:   stranger.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: at.Add(3 * time.Hour),
		})
		assert.ErrorIs(t, err, httperr.ErrForbidden)
	})

	t.Run("doctor and clinic must match", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), reception, CreateAppointmentInput{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			ClinicID:    other.ID,
			ScheduledAt: at.Add(4 * time.Hour),
		})
		assert.True(t, httperr.IsBusiness(err, "doctor_not_in_clinic"))
	})

	t.Run("past date", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), reception, CreateAppointmentInput{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: time.Now().Add(-time.Hour),
		})
		assert.True(t, httperr.IsBusiness(err, "scheduled_in_past"))
	})

	t.Run("unknown doctor", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), reception, CreateAppointmentInput{
			PatientID:   patient.ID,
			DoctorID:    patient.ID,
			ScheduledAt: at,
		})
		assert.True(t, httperr.IsNotFound(err))
	})
}

func TestUpdateAppointment(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewAppointmentGormRepository(db)
	uc := NewUpdateAppointment(repo, authz.DefaultPolicy(), nil)

	clinic := dbtest.Clinic(t, db, "Central")
	doctor := dbtest.Doctor(t, db, clinic)
	patient := dbtest.Patient(t, db)

	docPr := authz.Principal{Role: models.RoleDoctor, UserID: doctor.UserID, ClinicID: clinic.ID, DoctorID: doctor.ID}
	patPr := authz.Principal{Role: models.RolePatient, UserID: *patient.UserID, PatientID: patient.ID}

	t.Run("doctor confirms then patient cancels", func(t *testing.T) {
		ap := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")

		got, err := uc.Execute(context.Background(), docPr, ap.ID, UpdateAppointmentInput{Status: ptr("CONFIRMED")})
		require.NoError(t, err)
		assert.Equal(t, "CONFIRMED", got.Status)

		got, err = uc.Execute(context.Background(), patPr, ap.ID, UpdateAppointmentInput{Status: ptr("CANCELLED")})
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", got.Status)

		var stored models.Appointment
		require.NoError(t, db.First(&stored, "id = ?", ap.ID).Error)
		assert.Equal(t, "CANCELLED", stored.Status)
		assert.NotNil(t, stored.CancelledAt)

		_, err = uc.Execute(context.Background(), docPr, ap.ID, UpdateAppointmentInput{Notes: ptr("late")})
		assert.True(t, httperr.IsBusiness(err, "invalid_state"))
	})

	t.Run("completion is not reachable through update", func(t *testing.T) {
		ap := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")
		_, err := uc.Execute(context.Background(), docPr, ap.ID, UpdateAppointmentInput{Status: ptr("COMPLETED")})
		assert.True(t, httperr.IsBusiness(err, "invalid_transition"))
	})

	t.Run("reschedule checks conflicts", func(t *testing.T) {
		first := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")
		second := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")
		require.NoError(t, db.Model(second).Update("scheduled_at", first.ScheduledAt.Add(3*time.Hour)).Error)

		_, err := uc.Execute(context.Background(), docPr, second.ID, UpdateAppointmentInput{
			ScheduledAt: ptr(first.ScheduledAt.Add(10 * time.Minute)),
		})
		assert.True(t, httperr.IsBusiness(err, "time_conflict"), "got %v", err)

		moved := first.ScheduledAt.Add(6 * time.Hour)
		got, err := uc.Execute(context.Background(), docPr, second.ID, UpdateAppointmentInput{ScheduledAt: &moved})
		require.NoError(t, err)
		assert.True(t, moved.Equal(got.ScheduledAt))
	})

	t.Run("other doctor cannot update", func(t *testing.T) {
		ap := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")
		otherDoc := dbtest.Doctor(t, db, clinic)
		pr := authz.Principal{Role: models.RoleDoctor, ClinicID: clinic.ID, DoctorID: otherDoc.ID}

		_, err := uc.Execute(context.Background(), pr, ap.ID, UpdateAppointmentInput{Status: ptr("CANCELLED")})
		assert.ErrorIs(t, err, httperr.ErrForbidden)
	})
}

// completingRepo completes the appointment right after it is read, as a
// consultation finishing between the read and the write would.
type completingRepo struct {
	*repository.AppointmentGormRepository
	db *gorm.DB
}

func (r completingRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	ap, err := r.AppointmentGormRepository.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.Appointment{}).Where("id = ?", id).Update("status", "COMPLETED").Error; err != nil {
		return nil, err
	}
	return ap, nil
}

func TestUpdateAppointment_DoesNotOverwriteConcurrentCompletion(t *testing.T) {
	db := dbtest.New(t)
	repo := completingRepo{AppointmentGormRepository: repository.NewAppointmentGormRepository(db), db: db}
	uc := NewUpdateAppointment(repo, authz.DefaultPolicy(), nil)

	clinic := dbtest.Clinic(t, db, "Central")
	doctor := dbtest.Doctor(t, db, clinic)
	patient := dbtest.Patient(t, db)
	reception := authz.Principal{Role: models.RoleReceptionist, ClinicID: clinic.ID}

	for _, status := range []string{"CANCELLED", "CONFIRMED"} {
		t.Run(status, func(t *testing.T) {
			ap := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")

			_, err := uc.Execute(context.Background(), reception, ap.ID, UpdateAppointmentInput{Status: ptr(status)})
			assert.True(t, httperr.IsBusiness(err, "invalid_state"), "got %v", err)

			var stored models.Appointment
			require.NoError(t, db.First(&stored, "id = ?", ap.ID).Error)
			assert.Equal(t, "COMPLETED", stored.Status)
			assert.Nil(t, stored.CancelledAt)
		})
	}
}

func TestDeleteAppointment(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewAppointmentGormRepository(db)
	uc := NewDeleteAppointment(repo, authz.DefaultPolicy(), nil)

	clinic := dbtest.Clinic(t, db, "Central")
	doctor := dbtest.Doctor(t, db, clinic)
	patient := dbtest.Patient(t, db)
	admin := authz.Principal{Role: models.RoleAdmin, ClinicID: clinic.ID}

	withConsultation := dbtest.Appointment(t, db, patient, doctor, "COMPLETED")
	require.NoError(t, db.Create(&models.Consultation{
		AppointmentID: withConsultation.ID,
		Diagnosis:     "flu",
		Treatment:     "rest",
	}).Error)

	err := uc.Execute(context.Background(), admin, withConsultation.ID)
	assert.True(t, httperr.IsBusiness(err, "appointment_has_consultation"))

	plain := dbtest.Appointment(t, db, patient, doctor, "SCHEDULED")
	err = uc.Execute(context.Background(), authz.Principal{Role: models.RoleReceptionist, ClinicID: clinic.ID}, plain.ID)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	require.NoError(t, uc.Execute(context.Background(), admin, plain.ID))
	assert.True(t, httperr.IsNotFound(uc.Execute(context.Background(), admin, plain.ID)))
}

func TestListAppointments_Scoped(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewAppointmentGormRepository(db)
	uc := NewListAppointments(repo, authz.DefaultPolicy())

	clinic := dbtest.Clinic(t, db, "Central")
	docA := dbtest.Doctor(t, db, clinic)
	docB := dbtest.Doctor(t, db, clinic)
	alice := dbtest.Patient(t, db)
	bob := dbtest.Patient(t, db)

	dbtest.Appointment(t, db, alice, docA, "SCHEDULED")
	dbtest.Appointment(t, db, bob, docB, "SCHEDULED")
	cancelled := dbtest.Appointment(t, db, bob, docA, "CANCELLED")

	ctx := context.Background()

	docPr := authz.Principal{Role: models.RoleDoctor, ClinicID: clinic.ID, DoctorID: docA.ID}
	mine, err := uc.Execute(ctx, docPr, ListAppointmentsInput{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, a := range mine {
		assert.Equal(t, docA.ID, a.DoctorID)
		assert.NotEmpty(t, a.PatientName)
		assert.Equal(t, docA.User.Name, a.DoctorName)
	}

	// asking for another doctor's agenda yields nothing
	none, err := uc.Execute(ctx, docPr, ListAppointmentsInput{DoctorID: docB.ID})
	require.NoError(t, err)
	assert.Empty(t, none)

	patPr := authz.Principal{Role: models.RolePatient, PatientID: bob.ID}
	bobs, err := uc.Execute(ctx, patPr, ListAppointmentsInput{Status: "CANCELLED"})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, cancelled.ID, bobs[0].ID)

	admin := authz.Principal{Role: models.RoleAdmin, ClinicID: clinic.ID}
	all, err := uc.Execute(ctx, admin, ListAppointmentsInput{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")
	inRange, err := uc.Execute(ctx, admin, ListAppointmentsInput{From: tomorrow, To: tomorrow})
	require.NoError(t, err)
	assert.Len(t, inRange, 3)

	past, err := uc.Execute(ctx, admin, ListAppointmentsInput{To: "2000-01-01"})
	require.NoError(t, err)
	assert.Empty(t, past)

	_, err = uc.Execute(ctx, admin, ListAppointmentsInput{From: "01/02/2026"})
	assert.True(t, httperr.IsBusiness(err, "invalid_date"))

	other := dbtest.Clinic(t, db, "Other")
	foreign, err := uc.Execute(ctx, authz.Principal{Role: models.RoleAdmin, ClinicID: other.ID}, ListAppointmentsInput{})
	require.NoError(t, err)
	assert.Empty(t, foreign)
}
