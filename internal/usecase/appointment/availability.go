package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
)

type AvailabilityInput struct {
	DoctorID uuid.UUID
	Date     string // YYYY-MM-DD in the clinic timezone
}

type GetAvailability struct {
	repo   domain.Repository
	policy *authz.Policy
}

func NewGetAvailability(repo domain.Repository, policy *authz.Policy) *GetAvailability {
	return &GetAvailability{repo: repo, policy: policy}
}

// Execute lists the free slots of a doctor on a calendar day. Anyone who
// may read the doctor may see its free slots.
func (uc *GetAvailability) Execute(
	ctx context.Context,
	pr authz.Principal,
	in AvailabilityInput,
) ([]domain.TimeSlot, error) {

	doctor, err := uc.repo.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityDoctor,
		authz.ActionRead,
		authz.DoctorResource(doctor),
	); err != nil {
		return nil, err
	}

	clinic, err := uc.repo.GetClinic(ctx, doctor.ClinicID)
	if err != nil {
		return nil, err
	}

	day, err := timezone.ParseDay(in.Date, timezone.Location(clinic.Timezone))
	if err != nil {
		return nil, httperr.ErrBusinessf("invalid_date", "date must be YYYY-MM-DD")
	}

	wh, err := uc.repo.GetWorkingHours(ctx, doctor.ID, day.Weekday())
	if err != nil {
		return nil, err
	}
	if wh == nil || !wh.Active {
		return []domain.TimeSlot{}, nil
	}

	busy, err := uc.repo.ListBusy(ctx, doctor.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	return domain.FreeSlots(day, *wh, busy), nil
}
