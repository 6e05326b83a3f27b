package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// UserHandler manages the staff logins of a clinic.
type UserHandler struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  *audit.Dispatcher
	log    zerolog.Logger
}

func NewUserHandler(db *gorm.DB, policy *authz.Policy, audit *audit.Dispatcher, log zerolog.Logger) *UserHandler {
	return &UserHandler{db: db, policy: policy, audit: audit, log: log}
}

type CreateUserRequest struct {
	Name     string      `json:"name" binding:"required,max=100"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     models.Role `json:"role" binding:"required,oneof=ADMIN DOCTOR RECEPTIONIST"`

	// doctors only
	Specialization string `json:"specialization" binding:"max=120"`
	LicenseNumber  string `json:"license_number" binding:"max=60"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

func (h *UserHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	scope, err := h.policy.ListFilter(pr, authz.EntityUser)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if !scope.Unrestricted() {
		q = q.Where("clinic_id = ?", scope.ClinicID)
	}
	if role := strings.ToUpper(strings.TrimSpace(c.Query("role"))); role != "" {
		if !models.Role(role).Valid() {
			httperr.BadRequest(c, "invalid_role", "Unknown role.")
			return
		}
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Order("created_at ASC").Find(&users).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, users)
}

func (h *UserHandler) Create(c *gin.Context) {
	pr := middleware.Principal(c)

	if err := h.policy.Authorize(pr, authz.EntityUser, authz.ActionCreate, authz.InClinic(pr.ClinicID)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, doctor, err := createStaffUser(c, h.db, pr.ClinicID, staffInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		Role:           req.Role,
		Specialization: req.Specialization,
		LicenseNumber:  req.LicenseNumber,
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, user.ClinicID, "user_created", "user", user.ID, gin.H{"role": user.Role})

	resp := gin.H{"user": user}
	if doctor != nil {
		resp["doctor"] = doctor
	}
	httpresp.Created(c, resp)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, ok := h.load(c, authz.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	pr := middleware.Principal(c)
	user, ok := h.load(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	changes := map[string]any{}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
		changes["name"] = user.Name
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			httperr.From(c, h.log, err)
			return
		}
		changes["password_hash"] = string(hashed)
	}

	if len(changes) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(user).Updates(changes).Error; err != nil {
			httperr.From(c, h.log, err)
			return
		}
	}

	writeAudit(h.audit, pr, user.ClinicID, "user_updated", "user", user.ID, gin.H{
		"name_changed":     req.Name != nil,
		"password_changed": req.Password != nil,
	})
	c.JSON(http.StatusOK, user)
}

// Delete soft deletes a login and the profile attached to it. Deleting a
// doctor's login retires the doctor.
func (h *UserHandler) Delete(c *gin.Context) {
	pr := middleware.Principal(c)
	user, ok := h.load(c, authz.ActionDelete)
	if !ok {
		return
	}

	if user.ID == pr.UserID {
		httperr.BadRequest(c, "cannot_delete_self", "You cannot delete your own account.")
		return
	}

	var cancelled int64
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if user.Role == models.RoleDoctor {
			var doctor models.Doctor
			err := tx.Where("user_id = ?", user.ID).First(&doctor).Error
			if err == nil {
				cancelled, err = retireDoctor(tx, &doctor, time.Now().UTC())
				return err
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, user.ClinicID, "user_deleted", "user", user.ID, gin.H{
		"role":                   user.Role,
		"cancelled_appointments": cancelled,
	})
	httpresp.NoContent(c)
}

func (h *UserHandler) load(c *gin.Context, action authz.Action) (*models.User, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("user")
		}
		httperr.From(c, h.log, err)
		return nil, false
	}

	if err := h.policy.Authorize(middleware.Principal(c), authz.EntityUser, action, authz.UserResource(&user)); err != nil {
		httperr.From(c, h.log, err)
		return nil, false
	}
	return &user, true
}
