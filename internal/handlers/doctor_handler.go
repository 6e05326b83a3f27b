package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
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

// ======================================================
// HANDLER
// ======================================================

type DoctorHandler struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  *audit.Dispatcher
	log    zerolog.Logger
}

func NewDoctorHandler(db *gorm.DB, policy *authz.Policy, audit *audit.Dispatcher, log zerolog.Logger) *DoctorHandler {
	return &DoctorHandler{db: db, policy: policy, audit: audit, log: log}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateDoctorRequest struct {
	Name           string `json:"name" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8"`
	Specialization string `json:"specialization" binding:"required,max=120"`
	LicenseNumber  string `json:"license_number" binding:"max=60"`
}

type UpdateDoctorRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=1,max=100"`
	Specialization *string `json:"specialization" binding:"omitempty,min=1,max=120"`
	LicenseNumber  *string `json:"license_number" binding:"omitempty,max=60"`
}

// ======================================================
// LIST
// ======================================================

func (h *DoctorHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	scope, err := h.policy.ListFilter(pr, authz.EntityDoctor)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	clinicID, ok := queryID(c, "clinic_id")
	if !ok {
		return
	}

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Doctor{}).
		Preload("User")

	if scope.ClinicID != uuid.Nil {
		if clinicID != uuid.Nil && clinicID != scope.ClinicID {
			httpresp.List(c, []models.Doctor{})
			return
		}
		clinicID = scope.ClinicID
	}
	if clinicID != uuid.Nil {
		q = q.Where("doctors.clinic_id = ?", clinicID)
	}

	if spec := strings.ToLower(strings.TrimSpace(c.Query("specialization"))); spec != "" {
		q = q.Where("LOWER(doctors.specialization) LIKE ?", "%"+spec+"%")
	}
	if query := strings.ToLower(strings.TrimSpace(c.Query("query"))); query != "" {
		q = q.Joins("JOIN users ON users.id = doctors.user_id").
			Where("LOWER(users.name) LIKE ?", "%"+query+"%")
	}

	var doctors []models.Doctor
	if err := q.Order("doctors.created_at ASC").Find(&doctors).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, doctors)
}

// ======================================================
// CREATE
// ======================================================

// Create adds a doctor login and profile to the caller's clinic.
func (h *DoctorHandler) Create(c *gin.Context) {
	pr := middleware.Principal(c)

	if err := h.policy.Authorize(pr, authz.EntityDoctor, authz.ActionCreate, authz.InClinic(pr.ClinicID)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	var req CreateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	user, doctor, err := createStaffUser(c, h.db, pr.ClinicID, staffInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           models.RoleDoctor,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	doctor.User = user
	writeAudit(h.audit, pr, &doctor.ClinicID, "doctor_created", "doctor", doctor.ID, nil)
	httpresp.Created(c, doctor)
}

// ======================================================
// GET
// ======================================================

// Get answers the doctor with the appointments the caller may see, each
// with its patient and consultation.
func (h *DoctorHandler) Get(c *gin.Context) {
	pr := middleware.Principal(c)
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var doctor models.Doctor
	if err := h.db.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Appointments", appointmentsVisibleTo(h.policy, pr)).
		Preload("Appointments.Patient", withDeleted).
		Preload("Appointments.Consultation").
		First(&doctor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("doctor")
		}
		httperr.From(c, h.log, err)
		return
	}

	if err := h.policy.Authorize(pr, authz.EntityDoctor, authz.ActionRead, authz.DoctorResource(&doctor)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	if doctor.Appointments == nil {
		doctor.Appointments = []models.Appointment{}
	}
	c.JSON(http.StatusOK, doctor)
}

// ======================================================
// UPDATE
// ======================================================

func (h *DoctorHandler) Update(c *gin.Context) {
	pr := middleware.Principal(c)
	doctor, ok := h.load(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req UpdateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if req.Specialization != nil {
			doctor.Specialization = strings.TrimSpace(*req.Specialization)
		}
		if req.LicenseNumber != nil {
			doctor.LicenseNumber = strings.TrimSpace(*req.LicenseNumber)
		}
		if err := tx.Model(doctor).
			Select("Specialization", "LicenseNumber", "UpdatedAt").
			Updates(doctor).Error; err != nil {
			return err
		}

		if req.Name != nil && doctor.User != nil {
			doctor.User.Name = strings.TrimSpace(*req.Name)
			return tx.Model(doctor.User).Update("name", doctor.User.Name).Error
		}
		return nil
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, &doctor.ClinicID, "doctor_updated", "doctor", doctor.ID, req)
	c.JSON(http.StatusOK, doctor)
}

// ======================================================
// DELETE (cascade)
// ======================================================

// Delete retires a doctor: its profile and login are soft deleted and its
// open appointments cancelled. Patients and clinical history stay.
func (h *DoctorHandler) Delete(c *gin.Context) {
	pr := middleware.Principal(c)
	doctor, ok := h.load(c, authz.ActionDelete)
	if !ok {
		return
	}

	var cancelled int64
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		cancelled, err = retireDoctor(tx, doctor, time.Now().UTC())
		return err
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, &doctor.ClinicID, "doctor_deleted", "doctor", doctor.ID, gin.H{
		"cancelled_appointments": cancelled,
	})

	c.JSON(http.StatusOK, gin.H{
		"id":                     doctor.ID,
		"deleted":                true,
		"cancelled_appointments": cancelled,
	})
}

// retireDoctor runs inside the caller's transaction.
func retireDoctor(tx *gorm.DB, doctor *models.Doctor, now time.Time) (int64, error) {
	res := tx.Model(&models.Appointment{}).
		Where("doctor_id = ? AND status IN ?", doctor.ID, domainappt.OpenStatuses()).
		Updates(map[string]any{
			"status":       string(domainappt.StatusCancelled),
			"cancelled_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return 0, res.Error
	}

	if err := tx.Delete(doctor).Error; err != nil {
		return 0, err
	}
	if err := tx.Delete(&models.User{}, "id = ?", doctor.UserID).Error; err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (h *DoctorHandler) load(c *gin.Context, action authz.Action) (*models.Doctor, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var doctor models.Doctor
	if err := h.db.WithContext(c.Request.Context()).
		Preload("User").
		First(&doctor, "id = ?", id).Error; err != nil {
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

// ======================================================
// STAFF ACCOUNTS
// ======================================================

type staffInput struct {
	Name           string
	Email          string
	Password       string
	Role           models.Role
	Specialization string
	LicenseNumber  string
}

// createStaffUser creates a clinic login and, for doctors, its profile.
func createStaffUser(c *gin.Context, db *gorm.DB, clinicID uuid.UUID, in staffInput) (*models.User, *models.Doctor, error) {
	if !in.Role.IsStaff() {
		return nil, nil, httperr.ErrBusinessf("invalid_role", "role must be ADMIN, DOCTOR or RECEPTIONIST")
	}
	if in.Role == models.RoleDoctor && strings.TrimSpace(in.Specialization) == "" {
		return nil, nil, httperr.ErrBusinessf("invalid_request", "specialization is required for doctors")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		ClinicID:     &clinicID,
		Name:         strings.TrimSpace(in.Name),
		Email:        validators.CanonicalEmail(in.Email),
		PasswordHash: string(hashed),
		Role:         in.Role,
	}
	var doctor *models.Doctor

	err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if httperr.IsUniqueViolation(err) {
				return httperr.ErrBusiness("email_already_registered")
			}
			return err
		}
		if in.Role != models.RoleDoctor {
			return nil
		}
		doctor = &models.Doctor{
			UserID:         user.ID,
			ClinicID:       clinicID,
			Specialization: strings.TrimSpace(in.Specialization),
			LicenseNumber:  strings.TrimSpace(in.LicenseNumber),
		}
		return tx.Create(doctor).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return user, doctor, nil
}
