package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	ucConsultation "github.com/BruksfildServices01/clinic-api/internal/usecase/consultation"
)

type ConsultationHandler struct {
	completeUC *ucConsultation.Complete
	getUC      *ucConsultation.GetConsultation
	listUC     *ucConsultation.ListConsultations
	log        zerolog.Logger
}

func NewConsultationHandler(
	completeUC *ucConsultation.Complete,
	getUC *ucConsultation.GetConsultation,
	listUC *ucConsultation.ListConsultations,
	log zerolog.Logger,
) *ConsultationHandler {
	return &ConsultationHandler{completeUC: completeUC, getUC: getUC, listUC: listUC, log: log}
}

type CreateConsultationRequest struct {
	AppointmentID string `json:"appointment_id" binding:"required,uuid"`
	Diagnosis     string `json:"diagnosis" binding:"required"`
	Treatment     string `json:"treatment" binding:"required"`
}

type consultationResponse struct {
	*models.Consultation
	InvoiceID *uuid.UUID `json:"invoice_id,omitempty"`
}

// Create records the consultation of an appointment, which completes the
// appointment and raises its invoice.
func (h *ConsultationHandler) Create(c *gin.Context) {
	var req CreateConsultationRequest
	if !bindJSON(c, &req) {
		return
	}

	appointmentID, _ := bodyID(req.AppointmentID)

	res, err := h.completeUC.Execute(c.Request.Context(), middleware.Principal(c), ucConsultation.CompleteInput{
		AppointmentID: appointmentID,
		Diagnosis:     req.Diagnosis,
		Treatment:     req.Treatment,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.Created(c, consultationResponse{
		Consultation: res.Consultation,
		InvoiceID:    res.InvoiceID,
	})
}

func (h *ConsultationHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	cons, err := h.getUC.Execute(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, cons)
}

func (h *ConsultationHandler) List(c *gin.Context) {
	list, err := h.listUC.Execute(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, list)
}
