package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// Principal is the authenticated caller of a request. It is built once by
// the auth middleware and passed explicitly to handlers and use cases.
type Principal struct {
	UserID    uuid.UUID
	Role      models.Role
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	TokenID   string
}

// ClinicRef returns the clinic id as a nullable column value.
func (p Principal) ClinicRef() *uuid.UUID {
	if p.ClinicID == uuid.Nil {
		return nil
	}
	id := p.ClinicID
	return &id
}

func (p Principal) UserRef() *uuid.UUID {
	id := p.UserID
	return &id
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
