package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
	ucInvoice "github.com/BruksfildServices01/clinic-api/internal/usecase/invoice"
	ucPayment "github.com/BruksfildServices01/clinic-api/internal/usecase/payment"
)

// ======================================================
// HANDLER
// ======================================================

type InvoiceHandler struct {
	db         *gorm.DB
	invoices   *ucInvoice.Invoices
	checkoutUC *ucPayment.InitiateCheckout
	log        zerolog.Logger
}

func NewInvoiceHandler(
	db *gorm.DB,
	invoices *ucInvoice.Invoices,
	checkoutUC *ucPayment.InitiateCheckout,
	log zerolog.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{db: db, invoices: invoices, checkoutUC: checkoutUC, log: log}
}

type CreateInvoiceRequest struct {
	PatientID string   `json:"patient_id" binding:"required,uuid"`
	Amount    *float64 `json:"amount" binding:"required"`
}

type UpdateInvoiceRequest struct {
	Amount *float64 `json:"amount"`
	Status *string  `json:"status"`
}

// ======================================================
// CRUD
// ======================================================

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	patientID, _ := bodyID(req.PatientID)

	inv, err := h.invoices.Create(c.Request.Context(), middleware.Principal(c), ucInvoice.CreateInvoiceInput{
		PatientID: patientID,
		Amount:    *req.Amount,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.Created(c, inv)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.OK(c, inv)
}

func (h *InvoiceHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	patientID, ok := queryID(c, "patient_id")
	if !ok {
		return
	}

	loc := h.location(c.Request.Context(), pr.ClinicID)
	from, to, err := timezone.DayRange(c.Query("from"), c.Query("to"), loc)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Use YYYY-MM-DD for from and to.")
		return
	}

	list, err := h.invoices.List(c.Request.Context(), pr, ucInvoice.ListInvoicesInput{
		Status:    strings.TrimSpace(c.Query("status")),
		PatientID: patientID,
		From:      from,
		To:        to,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, list)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Amount == nil && req.Status == nil {
		httperr.BadRequest(c, "invalid_request", "Nothing to update.")
		return
	}

	inv, err := h.invoices.Update(c.Request.Context(), middleware.Principal(c), id, ucInvoice.UpdateInvoiceInput{
		Amount: req.Amount,
		Status: req.Status,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.OK(c, inv)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.invoices.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.NoContent(c)
}

// ======================================================
// CHECKOUT
// ======================================================

func (h *InvoiceHandler) Checkout(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.checkoutUC.Execute(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// location resolves the calendar used for day filters. Principals without
// a clinic use the default zone.
func (h *InvoiceHandler) location(ctx context.Context, clinicID uuid.UUID) *time.Location {
	return clinicLocation(ctx, h.db, clinicID)
}

func clinicLocation(ctx context.Context, db *gorm.DB, clinicID uuid.UUID) *time.Location {
	if clinicID == uuid.Nil {
		return locationFromClinic(nil)
	}
	var clinic models.Clinic
	if err := db.WithContext(ctx).Select("id", "timezone").First(&clinic, "id = ?", clinicID).Error; err != nil {
		return locationFromClinic(nil)
	}
	return locationFromClinic(&clinic)
}
