package authz

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

var (
	allEntities = []Entity{
		EntityClinic, EntityUser, EntityDoctor, EntityPatient, EntityService,
		EntityAppointment, EntityConsultation, EntityPrescription, EntityInvoice,
	}
	actionLetters = map[Action]string{
		ActionCreate: "C",
		ActionRead:   "R",
		ActionUpdate: "U",
		ActionDelete: "D",
		ActionList:   "L",
	}
)

type fixture struct {
	clinic, otherClinic uuid.UUID
	doctor, patient     uuid.UUID
}

func newFixture() fixture {
	return fixture{
		clinic:      uuid.New(),
		otherClinic: uuid.New(),
		doctor:      uuid.New(),
		patient:     uuid.New(),
	}
}

func (f fixture) principal(role models.Role) Principal {
	pr := Principal{UserID: uuid.New(), Role: role}
	switch role {
	case models.RolePatient:
		pr.PatientID = f.patient
	case models.RoleDoctor:
		pr.ClinicID = f.clinic
		pr.DoctorID = f.doctor
	default:
		pr.ClinicID = f.clinic
	}
	return pr
}

// own is linked to the principal through every ownership chain.
func (f fixture) own() Resource {
	return Resource{
		ClinicIDs: []uuid.UUID{f.clinic},
		DoctorIDs: []uuid.UUID{f.doctor},
		PatientID: f.patient,
	}
}

func (f fixture) foreign() Resource {
	return Resource{
		ClinicIDs: []uuid.UUID{f.otherClinic},
		DoctorIDs: []uuid.UUID{uuid.New()},
		PatientID: uuid.New(),
	}
}

func TestDefaultPolicy_Matrix(t *testing.T) {
	p := DefaultPolicy()
	f := newFixture()

	// allowed actions on a record the caller is linked to
	expected := map[models.Role]map[Entity]string{
		models.RoleAdmin: {
			EntityClinic: "RU", EntityUser: "CRUDL", EntityDoctor: "CRUDL",
			EntityPatient: "CRUDL", EntityService: "CRUDL", EntityAppointment: "CRUDL",
			EntityConsultation: "RL", EntityPrescription: "RL", EntityInvoice: "CRUDL",
		},
		models.RoleReceptionist: {
			EntityClinic: "R", EntityDoctor: "RL", EntityPatient: "CRUL",
			EntityService: "RL", EntityAppointment: "CRUL", EntityInvoice: "CRUL",
		},
		models.RoleDoctor: {
			EntityClinic: "R", EntityDoctor: "RUL", EntityPatient: "RL",
			EntityService: "RL", EntityAppointment: "RUL",
			EntityConsultation: "CRL", EntityPrescription: "CRL",
		},
		models.RolePatient: {
			EntityClinic: "R", EntityDoctor: "RL", EntityPatient: "RU",
			EntityService: "RL", EntityAppointment: "CRUL",
			EntityConsultation: "RL", EntityPrescription: "RL", EntityInvoice: "RL",
		},
	}

	// allowed actions on a record of another clinic, doctor and patient
	crossTenant := map[models.Role]map[Entity]string{
		models.RolePatient: {EntityClinic: "R", EntityDoctor: "RL", EntityService: "RL"},
	}

	for role, perEntity := range expected {
		pr := f.principal(role)
		for _, entity := range allEntities {
			for action, letter := range actionLetters {
				name := string(role) + "/" + string(entity) + "/" + string(action)

				want := strings.Contains(perEntity[entity], letter)
				err := p.Authorize(pr, entity, action, f.own())
				if want {
					assert.NoError(t, err, name)
				} else {
					assert.ErrorIs(t, err, httperr.ErrForbidden, name)
				}

				wantForeign := strings.Contains(crossTenant[role][entity], letter)
				err = p.Authorize(pr, entity, action, f.foreign())
				if wantForeign {
					assert.NoError(t, err, name+" (foreign)")
				} else {
					assert.ErrorIs(t, err, httperr.ErrForbidden, name+" (foreign)")
				}
			}
		}
	}
}

func TestDefaultPolicy_DoctorDeletion(t *testing.T) {
	p := DefaultPolicy()
	f := newFixture()
	doctor := &models.Doctor{ID: f.doctor, ClinicID: f.clinic}

	err := p.Authorize(f.principal(models.RoleReceptionist), EntityDoctor, ActionDelete, DoctorResource(doctor))
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	err = p.Authorize(f.principal(models.RoleAdmin), EntityDoctor, ActionDelete, DoctorResource(doctor))
	assert.NoError(t, err)

	other := &models.Doctor{ID: uuid.New(), ClinicID: f.otherClinic}
	err = p.Authorize(f.principal(models.RoleAdmin), EntityDoctor, ActionDelete, DoctorResource(other))
	assert.ErrorIs(t, err, httperr.ErrForbidden)
}

func TestDefaultPolicy_DoctorSeesPatientOnlyWithSharedAppointment(t *testing.T) {
	p := DefaultPolicy()
	f := newFixture()
	pr := f.principal(models.RoleDoctor)

	patient := &models.Patient{ID: uuid.New()}
	assert.ErrorIs(t, p.Authorize(pr, EntityPatient, ActionRead, PatientResource(patient, nil)), httperr.ErrForbidden)

	shared := []models.Appointment{{ClinicID: f.clinic, DoctorID: f.doctor, PatientID: patient.ID}}
	assert.NoError(t, p.Authorize(pr, EntityPatient, ActionRead, PatientResource(patient, shared)))
}

func TestDefaultPolicy_PatientOwnershipChain(t *testing.T) {
	p := DefaultPolicy()
	f := newFixture()
	pr := f.principal(models.RolePatient)

	own := &models.Appointment{ClinicID: f.clinic, DoctorID: f.doctor, PatientID: f.patient}
	other := &models.Appointment{ClinicID: f.clinic, DoctorID: f.doctor, PatientID: uuid.New()}

	assert.NoError(t, p.Authorize(pr, EntityPrescription, ActionRead, PrescriptionResource(own)))
	assert.ErrorIs(t, p.Authorize(pr, EntityPrescription, ActionRead, PrescriptionResource(other)), httperr.ErrForbidden)

	inv := &models.Invoice{PatientID: f.patient}
	assert.NoError(t, p.Authorize(pr, EntityInvoice, ActionRead, InvoiceResource(inv)))
	assert.ErrorIs(t, p.Authorize(pr, EntityInvoice, ActionUpdate, InvoiceResource(inv)), httperr.ErrForbidden)
	assert.NoError(t, p.Authorize(pr, EntityPayment, ActionCreate, InvoiceResource(inv)))
}

func TestPolicy_ListFilter(t *testing.T) {
	p := DefaultPolicy()
	f := newFixture()

	tests := []struct {
		role   models.Role
		entity Entity
		want   Filter
		denied bool
	}{
		{models.RoleAdmin, EntityAppointment, Filter{ClinicID: f.clinic}, false},
		{models.RoleReceptionist, EntityInvoice, Filter{ClinicID: f.clinic}, false},
		{models.RoleDoctor, EntityAppointment, Filter{DoctorID: f.doctor}, false},
		{models.RoleDoctor, EntityDoctor, Filter{ClinicID: f.clinic}, false},
		{models.RolePatient, EntityInvoice, Filter{PatientID: f.patient}, false},
		{models.RolePatient, EntityDoctor, Filter{}, false},
		{models.RoleReceptionist, EntityConsultation, Filter{}, true},
		{models.RoleDoctor, EntityInvoice, Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.entity), func(t *testing.T) {
			got, err := p.ListFilter(f.principal(tt.role), tt.entity)
			if tt.denied {
				require.ErrorIs(t, err, httperr.ErrForbidden)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_UnknownRoleIsDenied(t *testing.T) {
	p := DefaultPolicy()
	pr := Principal{UserID: uuid.New(), Role: models.Role("GUEST")}
	assert.ErrorIs(t, p.Authorize(pr, EntityClinic, ActionRead, Resource{}), httperr.ErrForbidden)
}
