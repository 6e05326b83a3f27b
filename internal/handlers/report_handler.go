package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domaininv "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
	"github.com/BruksfildServices01/clinic-api/internal/report"
)

type ReportHandler struct {
	db     *gorm.DB
	policy *authz.Policy
	log    zerolog.Logger
}

func NewReportHandler(db *gorm.DB, policy *authz.Policy, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{db: db, policy: policy, log: log}
}

// Invoices exports the clinic invoices as a spreadsheet.
func (h *ReportHandler) Invoices(c *gin.Context) {
	pr := middleware.Principal(c)

	if err := h.policy.Authorize(pr, authz.EntityReport, authz.ActionRead, authz.InClinic(pr.ClinicID)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	ctx := c.Request.Context()

	var clinic models.Clinic
	if err := h.db.WithContext(ctx).First(&clinic, "id = ?", pr.ClinicID).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}
	loc := locationFromClinic(&clinic)

	from, to, err := timezone.DayRange(c.Query("from"), c.Query("to"), loc)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Use YYYY-MM-DD for from and to.")
		return
	}

	q := h.db.WithContext(ctx).
		Preload("Patient", withDeleted).
		Where("clinic_id = ?", clinic.ID)

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, err := domaininv.ParseStatus(raw)
		if err != nil {
			httperr.From(c, h.log, err)
			return
		}
		q = q.Where("status = ?", string(status))
	}
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}

	var invoices []models.Invoice
	if err := q.Order("created_at ASC").Find(&invoices).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	rows := make([]report.InvoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		row := report.InvoiceRow{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt,
			Amount:    inv.Amount,
			Status:    inv.Status,
			PaidAt:    inv.PaidAt,
		}
		if inv.Patient != nil {
			row.Patient = inv.Patient.FullName()
		}
		if inv.StripePaymentID != nil {
			row.PaymentID = *inv.StripePaymentID
		}
		rows = append(rows, row)
	}

	doc, err := report.InvoicesXLSX(rows, loc)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().In(loc).Format("20060102"))
	httpresp.Attachment(c, filename, report.ContentType, doc)
}
