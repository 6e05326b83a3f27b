package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domainappt "github.com/BruksfildServices01/clinic-api/internal/domain/appointment"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	ucAppointment "github.com/BruksfildServices01/clinic-api/internal/usecase/appointment"
)

// WorkingHoursHandler manages a doctor's weekly agenda and answers its
// free slots.
type WorkingHoursHandler struct {
	db             *gorm.DB
	policy         *authz.Policy
	audit          *audit.Dispatcher
	availabilityUC *ucAppointment.GetAvailability
	log            zerolog.Logger
}

func NewWorkingHoursHandler(
	db *gorm.DB,
	policy *authz.Policy,
	audit *audit.Dispatcher,
	availabilityUC *ucAppointment.GetAvailability,
	log zerolog.Logger,
) *WorkingHoursHandler {
	return &WorkingHoursHandler{db: db, policy: policy, audit: audit, availabilityUC: availabilityUC, log: log}
}

type WorkingDayConfig struct {
	Weekday    *int   `json:"weekday" binding:"required,min=0,max=6"`
	Active     bool   `json:"active"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	LunchStart string `json:"lunch_start"`
	LunchEnd   string `json:"lunch_end"`
}

type WorkingHoursUpdateRequest struct {
	Days []WorkingDayConfig `json:"days" binding:"required,dive"`
}

func (h *WorkingHoursHandler) Get(c *gin.Context) {
	doctor, ok := h.loadDoctor(c, authz.ActionRead)
	if !ok {
		return
	}

	hours := []models.WorkingHours{}
	if err := h.db.WithContext(c.Request.Context()).
		Where("doctor_id = ?", doctor.ID).
		Order("weekday ASC").
		Find(&hours).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, hours)
}

// Update replaces the whole weekly agenda.
func (h *WorkingHoursHandler) Update(c *gin.Context) {
	doctor, ok := h.loadDoctor(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req WorkingHoursUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	seen := map[int]bool{}
	toCreate := make([]models.WorkingHours, 0, len(req.Days))
	for _, d := range req.Days {
		wh := models.WorkingHours{
			DoctorID:   doctor.ID,
			Weekday:    *d.Weekday,
			Active:     d.Active,
			StartTime:  d.StartTime,
			EndTime:    d.EndTime,
			LunchStart: d.LunchStart,
			LunchEnd:   d.LunchEnd,
		}
		if seen[wh.Weekday] {
			httperr.BadRequest(c, "duplicate_weekday", "Each weekday may appear once.")
			return
		}
		seen[wh.Weekday] = true

		if err := domainappt.ValidateWorkingDay(wh); err != nil {
			httperr.From(c, h.log, err)
			return
		}
		toCreate = append(toCreate, wh)
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doctor_id = ?", doctor.ID).Delete(&models.WorkingHours{}).Error; err != nil {
			return err
		}
		if len(toCreate) == 0 {
			return nil
		}
		return tx.Create(&toCreate).Error
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, middleware.Principal(c), &doctor.ClinicID, "working_hours_updated", "doctor", doctor.ID, gin.H{
		"days": len(toCreate),
	})

	c.JSON(http.StatusOK, toCreate)
}

// Availability answers the free slots of the doctor on ?date=YYYY-MM-DD.
func (h *WorkingHoursHandler) Availability(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		httperr.BadRequest(c, "missing_params", "date is required.")
		return
	}

	slots, err := h.availabilityUC.Execute(c.Request.Context(), middleware.Principal(c), ucAppointment.AvailabilityInput{
		DoctorID: id,
		Date:     date,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  date,
		"slots": slots,
	})
}

func (h *WorkingHoursHandler) loadDoctor(c *gin.Context, action authz.Action) (*models.Doctor, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var doctor models.Doctor
	if err := h.db.WithContext(c.Request.Context()).First(&doctor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("doctor")
		}
		httperr.From(c, h.log, err)
		return nil, false
	}

	if err := h.policy.Authorize(middleware.Principal(c), authz.EntityDoctor, action, authz.DoctorResource(&doctor)); err != nil {
		httperr.From(c, h.log, err)
		return nil, false
	}
	return &doctor, true
}
