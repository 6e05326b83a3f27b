package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	domaininv "github.com/BruksfildServices01/clinic-api/internal/domain/invoice"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
)

// ServiceHandler manages the price list of a clinic.
type ServiceHandler struct {
	db     *gorm.DB
	policy *authz.Policy
	audit  *audit.Dispatcher
	log    zerolog.Logger
}

func NewServiceHandler(db *gorm.DB, policy *authz.Policy, audit *audit.Dispatcher, log zerolog.Logger) *ServiceHandler {
	return &ServiceHandler{db: db, policy: policy, audit: audit, log: log}
}

// --------- Requests ---------

type CreateServiceRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Description string   `json:"description" binding:"max=255"`
	Price       *float64 `json:"price" binding:"required"`
	IsActive    *bool    `json:"is_active"`
}

type UpdateServiceRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=255"`
	Price       *float64 `json:"price"`
	IsActive    *bool    `json:"is_active"`
}

// --------- Handlers ---------

func (h *ServiceHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	scope, err := h.policy.ListFilter(pr, authz.EntityService)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	clinicID, ok := queryID(c, "clinic_id")
	if !ok {
		return
	}
	if scope.ClinicID != uuid.Nil {
		if clinicID != uuid.Nil && clinicID != scope.ClinicID {
			httpresp.List(c, []models.Service{})
			return
		}
		clinicID = scope.ClinicID
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Service{})
	if clinicID != uuid.Nil {
		q = q.Where("clinic_id = ?", clinicID)
	}

	switch strings.TrimSpace(c.Query("active")) {
	case "":
	case "true":
		q = q.Where("is_active = ?", true)
	case "false":
		q = q.Where("is_active = ?", false)
	default:
		httperr.BadRequest(c, "invalid_active", "active must be true or false.")
		return
	}

	if query := strings.ToLower(strings.TrimSpace(c.Query("query"))); query != "" {
		like := "%" + query + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var services []models.Service
	if err := q.Order("created_at DESC").Find(&services).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, services)
}

func (h *ServiceHandler) Create(c *gin.Context) {
	pr := middleware.Principal(c)

	if err := h.policy.Authorize(pr, authz.EntityService, authz.ActionCreate, authz.InClinic(pr.ClinicID)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	var req CreateServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := domaininv.ValidateAmount(*req.Price); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	service := models.Service{
		ClinicID:    pr.ClinicID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Price:       domaininv.Round(*req.Price),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&service).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, &service.ClinicID, "service_created", "service", service.ID, nil)
	httpresp.Created(c, service)
}

func (h *ServiceHandler) Get(c *gin.Context) {
	service, ok := h.load(c, authz.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, service)
}

func (h *ServiceHandler) Update(c *gin.Context) {
	pr := middleware.Principal(c)
	service, ok := h.load(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req UpdateServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Name != nil {
		service.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		service.Description = *req.Description
	}
	if req.Price != nil {
		if err := domaininv.ValidateAmount(*req.Price); err != nil {
			httperr.From(c, h.log, err)
			return
		}
		service.Price = domaininv.Round(*req.Price)
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(c.Request.Context()).
		Model(service).
		Select("Name", "Description", "Price", "IsActive", "UpdatedAt").
		Updates(service).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, &service.ClinicID, "service_updated", "service", service.ID, req)
	c.JSON(http.StatusOK, service)
}

func (h *ServiceHandler) Delete(c *gin.Context) {
	pr := middleware.Principal(c)
	service, ok := h.load(c, authz.ActionDelete)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(service).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, &service.ClinicID, "service_deleted", "service", service.ID, nil)
	httpresp.NoContent(c)
}

func (h *ServiceHandler) load(c *gin.Context, action authz.Action) (*models.Service, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var service models.Service
	if err := h.db.WithContext(c.Request.Context()).First(&service, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("service")
		}
		httperr.From(c, h.log, err)
		return nil, false
	}

	if err := h.policy.Authorize(middleware.Principal(c), authz.EntityService, action, authz.ServiceResource(&service)); err != nil {
		httperr.From(c, h.log, err)
		return nil, false
	}
	return &service, true
}
