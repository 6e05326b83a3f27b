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
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
	"github.com/BruksfildServices01/clinic-api/internal/validators"
)

type AuthHandler struct {
	db      *gorm.DB
	issuer  *authz.Issuer
	cache   cache.Store
	audit   *audit.Dispatcher
	log     zerolog.Logger
	checkMX bool
}

func NewAuthHandler(
	db *gorm.DB,
	issuer *authz.Issuer,
	store cache.Store,
	audit *audit.Dispatcher,
	log zerolog.Logger,
	checkMX bool,
) *AuthHandler {
	return &AuthHandler{db: db, issuer: issuer, cache: store, audit: audit, log: log, checkMX: checkMX}
}

// --------- Requests ---------

type RegisterClinicRequest struct {
	ClinicName    string `json:"clinic_name" binding:"required,max=120"`
	ClinicAddress string `json:"clinic_address" binding:"max=255"`
	ClinicPhone   string `json:"clinic_phone" binding:"max=20"`
	Timezone      string `json:"timezone"`

	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterPatientRequest struct {
	FirstName   string `json:"first_name" binding:"required,max=80"`
	LastName    string `json:"last_name" binding:"required,max=80"`
	Phone       string `json:"phone" binding:"max=20"`
	DateOfBirth string `json:"date_of_birth"`
	Address     string `json:"address" binding:"max=255"`

	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	DoctorID  *uuid.UUID   `json:"doctor_id,omitempty"`
	PatientID *uuid.UUID   `json:"patient_id,omitempty"`
}

// --------- Handlers ---------

// RegisterClinic bootstraps a tenant: the clinic and its first ADMIN.
func (h *AuthHandler) RegisterClinic(c *gin.Context) {
	var req RegisterClinicRequest
	if !bindJSON(c, &req) {
		return
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = timezone.DefaultTimezone
	}
	if !timezone.IsValid(tz) {
		httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
		return
	}

	email, ok := h.normalizeEmail(c, req.Email)
	if !ok {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	clinic := models.Clinic{
		Name:     strings.TrimSpace(req.ClinicName),
		Address:  req.ClinicAddress,
		Phone:    req.ClinicPhone,
		Timezone: tz,
	}
	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         models.RoleAdmin,
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clinic).Error; err != nil {
			return err
		}
		user.ClinicID = &clinic.ID
		if err := tx.Create(&user).Error; err != nil {
			if httperr.IsUniqueViolation(err) {
				return httperr.ErrBusiness("email_already_registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	resp, err := h.token(&user, uuid.Nil, uuid.Nil)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	pr := authz.Principal{UserID: user.ID, Role: user.Role, ClinicID: clinic.ID}
	writeAudit(h.audit, pr, &clinic.ID, "clinic_registered", "clinic", clinic.ID, nil)

	httpresp.Created(c, gin.H{
		"clinic":     clinic,
		"user":       resp.User,
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}

// Register is patient self sign up.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	dob, err := parseBirthDate(req.DateOfBirth)
	if err != nil {
		httperr.BadRequest(c, "invalid_date_of_birth", "date_of_birth must be a past date (YYYY-MM-DD).")
		return
	}

	email, ok := h.normalizeEmail(c, req.Email)
	if !ok {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.FirstName + " " + req.LastName),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         models.RolePatient,
	}
	patient := models.Patient{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Phone:       req.Phone,
		Email:       email,
		DateOfBirth: dob,
		Address:     req.Address,
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if httperr.IsUniqueViolation(err) {
				return httperr.ErrBusiness("email_already_registered")
			}
			return err
		}
		patient.UserID = &user.ID
		return tx.Create(&patient).Error
	})
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	resp, err := h.token(&user, uuid.Nil, patient.ID)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	pr := authz.Principal{UserID: user.ID, Role: user.Role, PatientID: patient.ID}
	writeAudit(h.audit, pr, nil, "patient_registered", "patient", patient.ID, nil)

	httpresp.Created(c, gin.H{
		"patient":    patient,
		"user":       resp.User,
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	email := validators.CanonicalEmail(req.Email)
	ctx := c.Request.Context()

	var user models.User
	if err := h.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error; err != nil {

		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
			return
		}
		httperr.From(c, h.log, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		httperr.Unauthorized(c, "invalid_credentials", "Invalid email or password.")
		return
	}

	doctorID, patientID, err := h.profileIDs(c, &user)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	resp, err := h.token(&user, doctorID, patientID)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented token until it would have expired anyway.
func (h *AuthHandler) Logout(c *gin.Context) {
	pr := middleware.Principal(c)

	ttl := time.Until(middleware.TokenExpiry(c))
	if pr.TokenID != "" && ttl > 0 {
		if err := h.cache.Set(c.Request.Context(), cache.PrefixRevokedToken+pr.TokenID, "1", ttl); err != nil {
			httperr.From(c, h.log, err)
			return
		}
	}

	writeAudit(h.audit, pr, nil, "user_logout", "user", pr.UserID, nil)
	httpresp.NoContent(c)
}

// --------- Helpers ---------

func (h *AuthHandler) normalizeEmail(c *gin.Context, raw string) (string, bool) {
	email, err := validators.CheckEmail(c.Request.Context(), raw, h.checkMX)
	switch {
	case errors.Is(err, validators.ErrEmailDomain):
		httperr.BadRequest(c, "invalid_email_domain", "The email domain does not accept mail.")
		return "", false
	case err != nil:
		httperr.BadRequest(c, "invalid_email", "Invalid email address.")
		return "", false
	}
	return email, true
}

func (h *AuthHandler) profileIDs(c *gin.Context, user *models.User) (uuid.UUID, uuid.UUID, error) {
	ctx := c.Request.Context()

	switch user.Role {
	case models.RoleDoctor:
		var d models.Doctor
		err := h.db.WithContext(ctx).Select("id").Where("user_id = ?", user.ID).First(&d).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, uuid.Nil, nil
		}
		return d.ID, uuid.Nil, err
	case models.RolePatient:
		var p models.Patient
		err := h.db.WithContext(ctx).Select("id").Where("user_id = ?", user.ID).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, uuid.Nil, nil
		}
		return uuid.Nil, p.ID, err
	}
	return uuid.Nil, uuid.Nil, nil
}

func (h *AuthHandler) token(user *models.User, doctorID, patientID uuid.UUID) (*tokenResponse, error) {
	token, exp, err := h.issuer.Issue(user, doctorID, patientID)
	if err != nil {
		return nil, err
	}
	return &tokenResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      user,
		DoctorID:  ref(doctorID),
		PatientID: ref(patientID),
	}, nil
}
