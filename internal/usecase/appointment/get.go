package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type GetAppointment struct {
	repo   domain.Repository
	policy *authz.Policy
}

func NewGetAppointment(repo domain.Repository, policy *authz.Policy) *GetAppointment {
	return &GetAppointment{repo: repo, policy: policy}
}

func (uc *GetAppointment) Execute(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityAppointment,
		authz.ActionRead,
		authz.AppointmentResource(ap),
	); err != nil {
		return nil, err
	}

	return ap, nil
}
