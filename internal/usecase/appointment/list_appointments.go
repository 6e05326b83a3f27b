package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/dto"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
)

// ListAppointmentsInput carries the query string filters. From and To are
// calendar days (YYYY-MM-DD) in the clinic's timezone, both inclusive.
type ListAppointmentsInput struct {
	Status    string
	From      string
	To        string
	DoctorID  uuid.UUID
	PatientID uuid.UUID
}

type ListAppointments struct {
	repo   domain.Repository
	policy *authz.Policy
}

func NewListAppointments(
	repo domain.Repository,
	policy *authz.Policy,
) *ListAppointments {
	return &ListAppointments{
		repo:   repo,
		policy: policy,
	}
}

func (uc *ListAppointments) Execute(
	ctx context.Context,
	pr authz.Principal,
	in ListAppointmentsInput,
) ([]dto.AppointmentListDTO, error) {

	scope, err := uc.policy.ListFilter(pr, authz.EntityAppointment)
	if err != nil {
		return nil, err
	}

	f := domain.ListFilter{
		ClinicID:  scope.ClinicID,
		DoctorID:  scope.DoctorID,
		PatientID: scope.PatientID,
	}

	var ok bool
	if f.DoctorID, ok = narrow(f.DoctorID, in.DoctorID); !ok {
		return []dto.AppointmentListDTO{}, nil
	}
	if f.PatientID, ok = narrow(f.PatientID, in.PatientID); !ok {
		return []dto.AppointmentListDTO{}, nil
	}

	if in.Status != "" {
		if f.Status, err = domain.ParseStatus(in.Status); err != nil {
			return nil, err
		}
	}

	// --------------------------------------------------
	// Date range in the clinic's timezone
	// --------------------------------------------------
	loc := time.UTC
	if pr.ClinicID != uuid.Nil {
		clinic, err := uc.repo.GetClinic(ctx, pr.ClinicID)
		if err != nil {
			return nil, err
		}
		loc = timezone.Location(clinic.Timezone)
	}

	if f.From, f.To, err = timezone.DayRange(in.From, in.To, loc); err != nil {
		return nil, httperr.ErrBusinessf("invalid_date", "dates must use the YYYY-MM-DD format")
	}

	appointments, err := uc.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AppointmentListDTO, 0, len(appointments))
	for _, ap := range appointments {
		out = append(out, dto.NewAppointmentListDTO(ap))
	}

	return out, nil
}

// narrow combines a policy restriction with a requested filter. ok is
// false when they contradict each other.
func narrow(scoped, requested uuid.UUID) (uuid.UUID, bool) {
	switch {
	case requested == uuid.Nil:
		return scoped, true
	case scoped == uuid.Nil || scoped == requested:
		return requested, true
	}
	return uuid.Nil, false
}
