package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
)

type DeleteAppointment struct {
	repo   domain.Repository
	policy *authz.Policy
	audit  *audit.Dispatcher
}

func NewDeleteAppointment(
	repo domain.Repository,
	policy *authz.Policy,
	audit *audit.Dispatcher,
) *DeleteAppointment {
	return &DeleteAppointment{repo: repo, policy: policy, audit: audit}
}

// Execute removes an appointment that has no clinical record attached.
func (uc *DeleteAppointment) Execute(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
) error {

	ap, err := uc.repo.GetAppointment(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityAppointment,
		authz.ActionDelete,
		authz.AppointmentResource(ap),
	); err != nil {
		return err
	}

	has, err := uc.repo.HasConsultation(ctx, ap.ID)
	if err != nil {
		return err
	}
	if has {
		return httperr.ErrBusinessf("appointment_has_consultation",
			"appointments with a consultation cannot be deleted")
	}

	if err := uc.repo.DeleteAppointment(ctx, ap.ID); err != nil {
		return err
	}

	uc.audit.Dispatch(audit.Event{
		ClinicID: &ap.ClinicID,
		UserID:   pr.UserRef(),
		Action:   "appointment_deleted",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})
	return nil
}
