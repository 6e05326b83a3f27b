package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domainappt "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/validators"
)

type PatientHandler struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  *audit.Dispatcher
	log    zerolog.Logger
}

func NewPatientHandler(db *gorm.DB, policy *authz.Policy, audit *audit.Dispatcher, log zerolog.Logger) *PatientHandler {
	return &PatientHandler{db: db, policy: policy, audit: audit, log: log}
}

// --------- Requests ---------

type CreatePatientRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=80"`
	LastName    string `json:"last_name" binding:"required,max=80"`
	Phone       string `json:"phone" binding:"required,max=20"`
	Email       string `json:"email" binding:"omitempty,email,max=100"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address" binding:"max=255"`
}

type UpdatePatientRequest struct {
	FirstName   *string `json:"first_name" binding:"omitempty,min=1,max=80"`
	LastName    *string `json:"last_name" binding:"omitempty,min=1,max=80"`
	Phone       *string `json:"phone" binding:"omitempty,max=20"`
	Email       *string `json:"email" binding:"omitempty,email,max=100"`
	DateOfBirth *string `json:"date_of_birth"`
	Address     *string `json:"address" binding:"omitempty,max=255"`
}

// ======================================================
// LIST
// ======================================================

func (h *PatientHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	scope, err := h.policy.ListFilter(pr, authz.EntityPatient)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	q := scopePatients(h.db.WithContext(c.Request.Context()).Model(&models.Patient{}), scope)

	if query := strings.ToLower(strings.TrimSpace(c.Query("query"))); query != "" {
		like := "%" + query + "%"
		q = q.Where(
			"(LOWER(patients.first_name || ' ' || patients.last_name) LIKE ? OR patients.phone LIKE ? OR LOWER(patients.email) LIKE ?)",
			like, like, like,
		)
	}

	var patients []models.Patient
	if err := q.Order("patients.last_name ASC, patients.first_name ASC").Find(&patients).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, patients)
}

// ======================================================
// CREATE
// ======================================================

// Create registers a walk-in patient on behalf of the caller's clinic.
func (h *PatientHandler) Create(c *gin.Context) {
	pr := middleware.Principal(c)

	if err := h.policy.Authorize(pr, authz.EntityPatient, authz.ActionCreate, authz.InClinic(pr.ClinicID)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	var req CreatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	dob, err := parseBirthDate(req.DateOfBirth)
	if err != nil {
		httperr.BadRequest(c, "invalid_date_of_birth", "date_of_birth must be a past date (YYYY-MM-DD).")
		return
	}

	patient := models.Patient{
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Phone:              strings.TrimSpace(req.Phone),
		Email:              validators.CanonicalEmail(req.Email),
		DateOfBirth:        dob,
		Address:            req.Address,
		RegisteredClinicID: pr.ClinicRef(),
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&patient).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, nil, "patient_created", "patient", patient.ID, nil)
	httpresp.Created(c, patient)
}

// ======================================================
// GET
// ======================================================

// Get answers the patient with the appointments the caller may see, each
// with its doctor and consultation.
func (h *PatientHandler) Get(c *gin.Context) {
	pr := middleware.Principal(c)
	patient, _, ok := h.load(c, authz.ActionRead)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).
		Where("patient_id = ?", patient.ID).
		Scopes(appointmentsVisibleTo(h.policy, pr)).
		Preload("Doctor", withDeleted).
		Preload("Doctor.User", withDeleted).
		Preload("Consultation").
		Find(&patient.Appointments).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	if patient.Appointments == nil {
		patient.Appointments = []models.Appointment{}
	}
	c.JSON(http.StatusOK, patient)
}

// ======================================================
// UPDATE
// ======================================================

func (h *PatientHandler) Update(c *gin.Context) {
	pr := middleware.Principal(c)
	patient, _, ok := h.load(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req UpdatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.FirstName != nil {
		patient.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		patient.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		patient.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		patient.Email = validators.CanonicalEmail(*req.Email)
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.DateOfBirth != nil {
		dob, err := parseBirthDate(*req.DateOfBirth)
		if err != nil {
			httperr.BadRequest(c, "invalid_date_of_birth", "date_of_birth must be a past date (YYYY-MM-DD).")
			return
		}
		patient.DateOfBirth = dob
	}

	if err := h.db.WithContext(c.Request.Context()).
		Model(patient).
		Select("FirstName", "LastName", "Phone", "Email", "Address", "DateOfBirth", "UpdatedAt").
		Updates(patient).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, nil, "patient_updated", "patient", patient.ID, nil)
	c.JSON(http.StatusOK, patient)
}

// ======================================================
// DELETE
// ======================================================

// Delete soft deletes a patient known only to the caller's clinic and
// cancels its open appointments. Records and invoices stay.
func (h *PatientHandler) Delete(c *gin.Context) {
	pr := middleware.Principal(c)
	patient, res, ok := h.load(c, authz.ActionDelete)
	if !ok {
		return
	}

	if slices.ContainsFunc(res.ClinicIDs, func(id uuid.UUID) bool { return id != pr.ClinicID }) {
		httperr.BadRequest(c, "patient_shared", "The patient is also treated by another clinic.")
		return
	}

	var cancelled int64
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		upd := tx.Model(&models.Appointment{}).
			Where("patient_id = ? AND status IN ?", patient.ID, domainappt.OpenStatuses()).
			Updates(map[string]any{
				"status":       string(domainappt.StatusCancelled),
				"cancelled_at": now,
				"updated_at":   now,
			})
		if upd.Error != nil {
			return upd.Error
		}
		cancelled = upd.RowsAffected

		if err := tx.Delete(patient).Error; err != nil {
			return err
		}
		if patient.UserID != nil {
			return tx.Delete(&models.User{}, "id = ?", *patient.UserID).Error
		}
		return nil
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, nil, "patient_deleted", "patient", patient.ID, gin.H{
		"cancelled_appointments": cancelled,
	})
	httpresp.NoContent(c)
}

func (h *PatientHandler) load(c *gin.Context, action authz.Action) (*models.Patient, authz.Resource, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, authz.Resource{}, false
	}

	ctx := c.Request.Context()
	var patient models.Patient
	if err := h.db.WithContext(ctx).First(&patient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("patient")
		}
		httperr.From(c, h.log, err)
		return nil, authz.Resource{}, false
	}

	res, err := patientResource(ctx, h.db, &patient)
	if err != nil {
		httperr.From(c, h.log, err)
		return nil, authz.Resource{}, false
	}

	if err := h.policy.Authorize(middleware.Principal(c), authz.EntityPatient, action, res); err != nil {
		httperr.From(c, h.log, err)
		return nil, authz.Resource{}, false
	}
	return &patient, res, true
}
