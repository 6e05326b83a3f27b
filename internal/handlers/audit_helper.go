package handlers

import (
	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
)

// writeAudit queues an audit row for a mutation performed by pr.
func writeAudit(
	d *audit.Dispatcher,
	pr authz.Principal,
	clinicID *uuid.UUID,
	action string,
	entity string,
	entityID uuid.UUID,
	meta any,
) {

	if clinicID == nil {
		clinicID = pr.ClinicRef()
	}

	id := entityID
	d.Dispatch(audit.Event{
		ClinicID: clinicID,
		UserID:   pr.UserRef(),
		Action:   action,
		Entity:   entity,
		EntityID: &id,
		Metadata: meta,
	})
}

func ref(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
