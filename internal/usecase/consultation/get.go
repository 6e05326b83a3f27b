package consultation

import (
	"context"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/consultation"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type GetConsultation struct {
	repo   domain.Repository
	policy *authz.Policy
}

func NewGetConsultation(repo domain.Repository, policy *authz.Policy) *GetConsultation {
	return &GetConsultation{repo: repo, policy: policy}
}

func (uc *GetConsultation) Execute(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
) (*models.Consultation, error) {

	c, err := uc.repo.GetConsultation(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityConsultation,
		authz.ActionRead,
		authz.ConsultationResource(c.Appointment),
	); err != nil {
		return nil, err
	}

	return c, nil
}

type ListConsultations struct {
	repo   domain.Repository
	policy *authz.Policy
}

func NewListConsultations(repo domain.Repository, policy *authz.Policy) *ListConsultations {
	return &ListConsultations{repo: repo, policy: policy}
}

func (uc *ListConsultations) Execute(
	ctx context.Context,
	pr authz.Principal,
) ([]models.Consultation, error) {

	f, err := uc.policy.ListFilter(pr, authz.EntityConsultation)
	if err != nil {
		return nil, err
	}

	return uc.repo.ListConsultations(ctx, domain.ListFilter{
		ClinicID:  f.ClinicID,
		DoctorID:  f.DoctorID,
		PatientID: f.PatientID,
	})
}
