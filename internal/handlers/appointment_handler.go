package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	ucAppointment "github.com/BruksfildServices01/clinic-api/internal/usecase/appointment"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	createUC *ucAppointment.CreateAppointment
	getUC    *ucAppointment.GetAppointment
	updateUC *ucAppointment.UpdateAppointment
	deleteUC *ucAppointment.DeleteAppointment
	listUC   *ucAppointment.ListAppointments
	log      zerolog.Logger
}

func NewAppointmentHandler(
	createUC *ucAppointment.CreateAppointment,
	getUC *ucAppointment.GetAppointment,
	updateUC *ucAppointment.UpdateAppointment,
	deleteUC *ucAppointment.DeleteAppointment,
	listUC *ucAppointment.ListAppointments,
	log zerolog.Logger,
) *AppointmentHandler {
	return &AppointmentHandler{
		createUC: createUC,
		getUC:    getUC,
		updateUC: updateUC,
		deleteUC: deleteUC,
		listUC:   listUC,
		log:      log,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateAppointmentRequest struct {
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id" binding:"required,uuid"`
	ClinicID    string `json:"clinic_id" binding:"omitempty,uuid"`
	ScheduledAt string `json:"scheduled_at" binding:"required"`
	Notes       string `json:"notes" binding:"max=500"`
}

type UpdateAppointmentRequest struct {
	ScheduledAt *string `json:"scheduled_at"`
	Notes       *string `json:"notes" binding:"omitempty,max=500"`
	Status      *string `json:"status"`
}

// ======================================================
// CREATE
// ======================================================

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		httperr.BadRequest(c, "invalid_scheduled_at", "scheduled_at must be an RFC3339 timestamp.")
		return
	}

	in := ucAppointment.CreateAppointmentInput{
		ScheduledAt: scheduledAt,
		Notes:       strings.TrimSpace(req.Notes),
	}
	in.DoctorID, _ = bodyID(req.DoctorID)
	if req.ClinicID != "" {
		in.ClinicID, _ = bodyID(req.ClinicID)
	}
	if req.PatientID != "" {
		if in.PatientID, err = bodyID(req.PatientID); err != nil {
			httperr.BadRequest(c, "invalid_patient_id", "patient_id must be a UUID.")
			return
		}
	}

	ap, err := h.createUC.Execute(c.Request.Context(), middleware.Principal(c), in)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.Created(c, ap)
}

// ======================================================
// GET / LIST
// ======================================================

func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ap, err := h.getUC.Execute(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ap)
}

func (h *AppointmentHandler) List(c *gin.Context) {
	var in ucAppointment.ListAppointmentsInput
	var ok bool

	if in.DoctorID, ok = queryID(c, "doctor_id"); !ok {
		return
	}
	if in.PatientID, ok = queryID(c, "patient_id"); !ok {
		return
	}
	in.Status = c.Query("status")
	in.From = c.Query("from")
	in.To = c.Query("to")

	list, err := h.listUC.Execute(c.Request.Context(), middleware.Principal(c), in)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, list)
}

// ======================================================
// UPDATE
// ======================================================

// Update reschedules, edits notes or moves the status along its allowed
// transitions. COMPLETED is reached only by recording a consultation.
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	in := ucAppointment.UpdateAppointmentInput{
		Notes:  req.Notes,
		Status: req.Status,
	}
	if req.ScheduledAt != nil {
		at, err := time.Parse(time.RFC3339, *req.ScheduledAt)
		if err != nil {
			httperr.BadRequest(c, "invalid_scheduled_at", "scheduled_at must be an RFC3339 timestamp.")
			return
		}
		in.ScheduledAt = &at
	}
	if in.ScheduledAt == nil && in.Notes == nil && in.Status == nil {
		httperr.BadRequest(c, "invalid_request", "Nothing to update.")
		return
	}

	ap, err := h.updateUC.Execute(c.Request.Context(), middleware.Principal(c), id, in)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ap)
}

// ======================================================
// DELETE
// ======================================================

func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.deleteUC.Execute(c.Request.Context(), middleware.Principal(c), id); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.NoContent(c)
}
