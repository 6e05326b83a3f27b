package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	domain "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// ======================================================
// INPUT
// ======================================================

type CreateInvoiceInput struct {
	PatientID uuid.UUID
	Amount    float64
}

// UpdateInvoiceInput changes the amount or cancels; nil fields are kept.
type UpdateInvoiceInput struct {
	Amount *float64
	Status *string
}

type ListInvoicesInput struct {
	Status    string
	PatientID uuid.UUID
	From      time.Time
	To        time.Time
}

// ======================================================
// USE CASE
// ======================================================

// Invoices groups the invoice operations that do not involve a gateway.
type Invoices struct {
	repo   domain.Repository
	policy *authz.Policy
	locks  cache.Store
	audit  *audit.Dispatcher
	now    func() time.Time
}

func NewInvoices(
	repo domain.Repository,
	policy *authz.Policy,
	locks cache.Store,
	audit *audit.Dispatcher,
) *Invoices {
	return &Invoices{
		repo:   repo,
		policy: policy,
		locks:  locks,
		audit:  audit,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create raises a manual invoice in the caller's clinic.
func (uc *Invoices) Create(
	ctx context.Context,
	pr authz.Principal,
	in CreateInvoiceInput,
) (*models.Invoice, error) {

	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	patient, err := uc.repo.GetPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		PatientID: in.PatientID,
		ClinicID:  pr.ClinicRef(),
		Amount:    domain.Round(in.Amount),
		Status:    string(domain.StatusPending),
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityInvoice,
		authz.ActionCreate,
		authz.InvoiceResource(inv),
	); err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityPatient,
		authz.ActionRead,
		authz.PatientResource(patient, patient.Appointments),
	); err != nil {
		return nil, err
	}

	if err := uc.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	uc.dispatch(pr, inv, "invoice_created", map[string]any{"amount": inv.Amount})
	return inv, nil
}

func (uc *Invoices) Get(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
) (*models.Invoice, error) {

	inv, err := uc.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityInvoice,
		authz.ActionRead,
		authz.InvoiceResource(inv),
	); err != nil {
		return nil, err
	}
	return inv, nil
}

func (uc *Invoices) Update(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
	in UpdateInvoiceInput,
) (*models.Invoice, error) {

	inv, err := uc.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityInvoice,
		authz.ActionUpdate,
		authz.InvoiceResource(inv),
	); err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Amount
	// --------------------------------------------------
	if in.Amount != nil {
		if err := domain.ValidateAmount(*in.Amount); err != nil {
			return nil, err
		}
		if err := domain.CanChangeAmount(domain.Status(inv.Status)); err != nil {
			return nil, err
		}
		previous := inv.Amount
		inv.Amount = domain.Round(*in.Amount)
		if err := uc.repo.UpdateAmount(ctx, inv); err != nil {
			return nil, err
		}
		// a lock left behind is also caught by the checkout amount check
		if uc.locks != nil {
			_ = uc.locks.Del(ctx, cache.PrefixCheckout+inv.ID.String())
		}
		uc.dispatch(pr, inv, "invoice_amount_changed", map[string]any{"from": previous, "to": inv.Amount})
	}

	// --------------------------------------------------
	// Status (cancel only; payment goes through checkout)
	// --------------------------------------------------
	if in.Status != nil {
		target, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		switch {
		case target == domain.Status(inv.Status):
		case target == domain.StatusCancelled:
			if err := domain.CanCancel(domain.Status(inv.Status)); err != nil {
				return nil, err
			}
			if err := uc.repo.Cancel(ctx, inv, uc.now()); err != nil {
				return nil, err
			}
			uc.dispatch(pr, inv, "invoice_cancelled", nil)
		default:
			return nil, httperr.ErrBusinessf("invalid_transition", "invoices are paid through checkout")
		}
	}

	return inv, nil
}

func (uc *Invoices) Delete(
	ctx context.Context,
	pr authz.Principal,
	id uuid.UUID,
) error {

	inv, err := uc.repo.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.policy.Authorize(
		pr,
		authz.EntityInvoice,
		authz.ActionDelete,
		authz.InvoiceResource(inv),
	); err != nil {
		return err
	}

	if err := domain.CanDelete(domain.Status(inv.Status)); err != nil {
		return err
	}

	if err := uc.repo.DeleteInvoice(ctx, inv.ID); err != nil {
		return err
	}

	uc.dispatch(pr, inv, "invoice_deleted", nil)
	return nil
}

func (uc *Invoices) List(
	ctx context.Context,
	pr authz.Principal,
	in ListInvoicesInput,
) ([]models.Invoice, error) {

	scope, err := uc.policy.ListFilter(pr, authz.EntityInvoice)
	if err != nil {
		return nil, err
	}

	f := domain.ListFilter{
		ClinicID:  scope.ClinicID,
		PatientID: scope.PatientID,
		From:      in.From,
		To:        in.To,
	}

	if in.PatientID != uuid.Nil {
		if f.PatientID != uuid.Nil && f.PatientID != in.PatientID {
			return []models.Invoice{}, nil
		}
		f.PatientID = in.PatientID
	}

	if in.Status != "" {
		if f.Status, err = domain.ParseStatus(in.Status); err != nil {
			return nil, err
		}
	}

	return uc.repo.ListInvoices(ctx, f)
}

func (uc *Invoices) dispatch(pr authz.Principal, inv *models.Invoice, action string, meta map[string]any) {
	ev := audit.Event{
		ClinicID: inv.ClinicID,
		UserID:   pr.UserRef(),
		Action:   action,
		Entity:   "invoice",
		EntityID: &inv.ID,
	}
	if meta != nil {
		ev.Metadata = meta
	}
	uc.audit.Dispatch(ev)
}
