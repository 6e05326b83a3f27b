package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

type MeHandler struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewMeHandler(db *gorm.DB, log zerolog.Logger) *MeHandler {
	return &MeHandler{db: db, log: log}
}

func (h *MeHandler) GetMe(c *gin.Context) {
	pr := middleware.Principal(c)
	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.Preload("Clinic").First(&user, "id = ?", pr.UserID).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	resp := gin.H{
		"user":   user,
		"clinic": user.Clinic,
	}

	switch pr.Role {
	case models.RoleDoctor:
		var d models.Doctor
		if err := db.Where("user_id = ?", user.ID).First(&d).Error; err == nil {
			resp["doctor"] = d
		}
	case models.RolePatient:
		var p models.Patient
		if err := db.Where("user_id = ?", user.ID).First(&p).Error; err == nil {
			resp["patient"] = p
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ======================================================
// DEVICE TOKENS
// ======================================================

type DeviceTokenRequest struct {
	Token    string `json:"token" binding:"required,max=512"`
	Platform string `json:"platform" binding:"omitempty,oneof=android ios web"`
}

// RegisterDeviceToken binds a push token to the caller. A token seen
// before moves to the new owner.
func (h *MeHandler) RegisterDeviceToken(c *gin.Context) {
	pr := middleware.Principal(c)

	var req DeviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	dt := models.DeviceToken{
		UserID:   pr.UserID,
		Token:    strings.TrimSpace(req.Token),
		Platform: req.Platform,
	}

	if err := h.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform"}),
		}).
		Create(&dt).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.NoContent(c)
}

func (h *MeHandler) DeleteDeviceToken(c *gin.Context) {
	pr := middleware.Principal(c)

	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND token = ?", pr.UserID, c.Param("token")).
		Delete(&models.DeviceToken{}).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.NoContent(c)
}
