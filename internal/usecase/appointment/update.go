package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// UpdateAppointmentInput holds a partial update; nil fields are kept.
type UpdateAppointmentInput struct {
	ScheduledAt *time.Time
	Notes       *string
	Status      *string
}

type UpdateAppointment struct {
	repo   domain.Repository
	policy *authz.Policy
	audit  *audit.Dispatcher
	now    func() time.Time
}

func NewUpdateAppointment(
	repo domain.Repository,
	policy *authz.Policy,
	audit *audit.Dispatcher,
) *UpdateAppointment {
	return &UpdateAppointment{
		repo:   repo,
		policy: policy,
		audit:  audit,
		now:    time.Now,
	}
}

func (uc *UpdateAppointment) Execute(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
	in UpdateAppointmentInput,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityAppointment,
		authz.ActionUpdate,
		authz.AppointmentResource(ap),
	); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	action := "appointment_updated"
	from := domain.Status(ap.Status)

	// --------------------------------------------------
	// Details (open appointments only)
	// --------------------------------------------------
	if in.ScheduledAt != nil {
		at := in.ScheduledAt.UTC()
		if err := domain.Reschedule(ap, at); err != nil {
			return nil, err
		}
		if !at.After(now) {
			return nil, httperr.ErrBusinessf("scheduled_in_past", "appointments must be scheduled in the future")
		}
		if err := uc.repo.AssertNoTimeConflict(ctx, ap.DoctorID, at, ap.ID); err != nil {
			return nil, err
		}
		action = "appointment_rescheduled"
	}

	if in.Notes != nil {
		if !domain.Status(ap.Status).Open() {
			return nil, httperr.ErrBusiness("invalid_state")
		}
		ap.Notes = *in.Notes
	}

	// --------------------------------------------------
	// Status
	// --------------------------------------------------
	if in.Status != nil {
		target, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		if target != domain.Status(ap.Status) {
			if err := domain.Transition(ap, target, now); err != nil {
				return nil, err
			}
			action = "appointment_" + statusVerb(target)
		}
	}

	if err := uc.repo.UpdateAppointment(ctx, ap, from); err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		ClinicID: &ap.ClinicID,
		UserID:   pr.UserRef(),
		Action:   action,
		Entity:   "appointment",
		EntityID: &ap.ID,
	})

	return ap, nil
}

func statusVerb(s domain.Status) string {
	switch s {
	case domain.StatusConfirmed:
		return "confirmed"
	case domain.StatusCancelled:
		return "cancelled"
	}
	return "updated"
}
