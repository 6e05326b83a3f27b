package authz

import (
	"slices"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type Entity string

const (
	EntityClinic       Entity = "clinic"
	EntityUser         Entity = "user"
	EntityDoctor       Entity = "doctor"
	EntityPatient      Entity = "patient"
	EntityService      Entity = "service"
	EntityAppointment  Entity = "appointment"
	EntityConsultation Entity = "consultation"
	EntityPrescription Entity = "prescription"
	EntityInvoice      Entity = "invoice"
	EntityPayment      Entity = "payment"
	EntityReport       Entity = "report"
	EntityAuditLog     Entity = "audit_log"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

var (
	CRUDL = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionList}
	CRUL  = []Action{ActionCreate, ActionRead, ActionUpdate, ActionList}
	CRL   = []Action{ActionCreate, ActionRead, ActionList}
	RUL   = []Action{ActionRead, ActionUpdate, ActionList}
	RL    = []Action{ActionRead, ActionList}
)

// Scope is a set of predicates; a rule grants access when any of its
// scopes matches the target resource.
type Scope uint8

const (
	ScopeAny Scope = 1 << iota
	ScopeClinic
	ScopeDoctor
	ScopePatient
)

func (s Scope) Has(f Scope) bool { return s&f != 0 }

type Rule struct {
	Role    models.Role
	Entity  Entity
	Actions []Action
	Scope   Scope
}

type ruleKey struct {
	role   models.Role
	entity Entity
	action Action
}

// Policy is the role x entity x action table evaluated once per request.
type Policy struct {
	rules map[ruleKey]Scope
}

func NewPolicy(rules []Rule) *Policy {
	p := &Policy{rules: make(map[ruleKey]Scope)}
	for _, r := range rules {
		for _, a := range r.Actions {
			k := ruleKey{r.Role, r.Entity, a}
			p.rules[k] |= r.Scope
		}
	}
	return p
}

func DefaultPolicy() *Policy {
	return NewPolicy(DefaultRules)
}

var DefaultRules = []Rule{
	// ADMIN: everything inside the own clinic
	{models.RoleAdmin, EntityClinic, []Action{ActionRead, ActionUpdate}, ScopeClinic},
	{models.RoleAdmin, EntityUser, CRUDL, ScopeClinic},
	{models.RoleAdmin, EntityDoctor, CRUDL, ScopeClinic},
	{models.RoleAdmin, EntityPatient, CRUDL, ScopeClinic},
	{models.RoleAdmin, EntityService, CRUDL, ScopeClinic},
	{models.RoleAdmin, EntityAppointment, CRUDL, ScopeClinic},
	{models.RoleAdmin, EntityInvoice, CRUDL, ScopeClinic},
	{models.RoleAdmin, EntityConsultation, RL, ScopeClinic},
	{models.RoleAdmin, EntityPrescription, RL, ScopeClinic},
	{models.RoleAdmin, EntityPayment, []Action{ActionCreate}, ScopeClinic},
	{models.RoleAdmin, EntityReport, []Action{ActionRead}, ScopeClinic},
	{models.RoleAdmin, EntityAuditLog, []Action{ActionList}, ScopeClinic},

	// RECEPTIONIST: front desk of the own clinic
	{models.RoleReceptionist, EntityClinic, []Action{ActionRead}, ScopeClinic},
	{models.RoleReceptionist, EntityPatient, CRUL, ScopeClinic},
	{models.RoleReceptionist, EntityAppointment, CRUL, ScopeClinic},
	{models.RoleReceptionist, EntityInvoice, CRUL, ScopeClinic},
	{models.RoleReceptionist, EntityDoctor, RL, ScopeClinic},
	{models.RoleReceptionist, EntityService, RL, ScopeClinic},
	{models.RoleReceptionist, EntityPayment, []Action{ActionCreate}, ScopeClinic},

	// DOCTOR: own agenda and the patients seen in it
	{models.RoleDoctor, EntityClinic, []Action{ActionRead}, ScopeClinic},
	{models.RoleDoctor, EntityAppointment, RUL, ScopeDoctor},
	{models.RoleDoctor, EntityPatient, RL, ScopeDoctor},
	{models.RoleDoctor, EntityConsultation, CRL, ScopeDoctor},
	{models.RoleDoctor, EntityPrescription, CRL, ScopeDoctor},
	{models.RoleDoctor, EntityDoctor, RL, ScopeClinic},
	{models.RoleDoctor, EntityDoctor, []Action{ActionUpdate}, ScopeDoctor},
	{models.RoleDoctor, EntityService, RL, ScopeClinic},

	// PATIENT: own records, plus the public catalogue of every clinic
	{models.RolePatient, EntityClinic, []Action{ActionRead}, ScopeAny},
	{models.RolePatient, EntityDoctor, RL, ScopeAny},
	{models.RolePatient, EntityService, RL, ScopeAny},
	{models.RolePatient, EntityPatient, []Action{ActionRead, ActionUpdate}, ScopePatient},
	{models.RolePatient, EntityAppointment, CRUL, ScopePatient},
	{models.RolePatient, EntityConsultation, RL, ScopePatient},
	{models.RolePatient, EntityPrescription, RL, ScopePatient},
	{models.RolePatient, EntityInvoice, RL, ScopePatient},
	{models.RolePatient, EntityPayment, []Action{ActionCreate}, ScopePatient},
}

// ScopeFor returns the scopes granted to role for action on entity.
func (p *Policy) ScopeFor(role models.Role, entity Entity, action Action) (Scope, bool) {
	s, ok := p.rules[ruleKey{role, entity, action}]
	return s, ok && s != 0
}

// Allows reports whether the role may perform action on entity at all.
func (p *Policy) Allows(role models.Role, entity Entity, action Action) bool {
	_, ok := p.ScopeFor(role, entity, action)
	return ok
}

// Authorize decides a single-entity operation against the target resource.
func (p *Policy) Authorize(pr Principal, entity Entity, action Action, res Resource) error {
	scope, ok := p.ScopeFor(pr.Role, entity, action)
	if !ok || !scope.matches(pr, res) {
		return httperr.ErrForbidden
	}
	return nil
}

// Filter restricts a list query to what the principal may see.
// A zero-valued field means no restriction on that column.
type Filter struct {
	ClinicID  uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
}

func (f Filter) Unrestricted() bool {
	return f == Filter{}
}

// ListFilter translates the list scope of (role, entity) into query filters.
// The widest granted scope wins.
func (p *Policy) ListFilter(pr Principal, entity Entity) (Filter, error) {
	scope, ok := p.ScopeFor(pr.Role, entity, ActionList)
	if !ok {
		return Filter{}, httperr.ErrForbidden
	}
	switch {
	case scope.Has(ScopeAny):
		return Filter{}, nil
	case scope.Has(ScopeClinic) && pr.ClinicID != uuid.Nil:
		return Filter{ClinicID: pr.ClinicID}, nil
	case scope.Has(ScopeDoctor) && pr.DoctorID != uuid.Nil:
		return Filter{DoctorID: pr.DoctorID}, nil
	case scope.Has(ScopePatient) && pr.PatientID != uuid.Nil:
		return Filter{PatientID: pr.PatientID}, nil
	}
	return Filter{}, httperr.ErrForbidden
}

func (s Scope) matches(pr Principal, res Resource) bool {
	if s.Has(ScopeAny) {
		return true
	}
	if s.Has(ScopeClinic) && pr.ClinicID != uuid.Nil && slices.Contains(res.ClinicIDs, pr.ClinicID) {
		return true
	}
	if s.Has(ScopeDoctor) && pr.DoctorID != uuid.Nil && slices.Contains(res.DoctorIDs, pr.DoctorID) {
		return true
	}
	if s.Has(ScopePatient) && pr.PatientID != uuid.Nil && res.PatientID == pr.PatientID {
		return true
	}
	return false
}
