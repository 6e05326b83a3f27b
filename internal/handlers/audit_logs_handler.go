package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
)

// ======================================================
// HANDLER
// ======================================================

type AuditLogsHandler struct {
	db     *gorm.DB
	policy *authz.Policy
	log    zerolog.Logger
}

func NewAuditLogsHandler(db *gorm.DB, policy *authz.Policy, log zerolog.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{db: db, policy: policy, log: log}
}

func (h *AuditLogsHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	scope, err := h.policy.ListFilter(pr, authz.EntityAuditLog)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	offset := (page - 1) * limit
	ctx := c.Request.Context()

	// --------------------------------------------------
	// Base query, always bound to the clinic
	// --------------------------------------------------

	q := h.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("clinic_id = ?", scope.ClinicID)

	// --------------------------------------------------
	// Optional filters
	// --------------------------------------------------

	if action := c.Query("action"); action != "" {
		q = q.Where("action = ?", action)
	}

	if entity := c.Query("entity"); entity != "" {
		q = q.Where("entity = ?", entity)
	}

	from, to, err := timezone.DayRange(c.Query("from"), c.Query("to"), clinicLocation(ctx, h.db, scope.ClinicID))
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Use YYYY-MM-DD for from and to.")
		return
	}
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	logs := []models.AuditLog{}
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
		"logs":  logs,
	})
}
