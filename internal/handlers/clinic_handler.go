package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/imaging"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/storage"
	"github.com/BruksfildServices01/clinic-api/internal/timezone"
)

type ClinicHandler struct {
	db      *gorm.DB
	policy  *authz.Policy
	audit   *audit.Dispatcher
	storage storage.Store
	log     zerolog.Logger
}

func NewClinicHandler(
	db *gorm.DB,
	policy *authz.Policy,
	audit *audit.Dispatcher,
	store storage.Store,
	log zerolog.Logger,
) *ClinicHandler {
	return &ClinicHandler{db: db, policy: policy, audit: audit, storage: store, log: log}
}

type UpdateClinicRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=120"`
	Address  *string `json:"address" binding:"omitempty,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Timezone *string `json:"timezone"`
}

func (h *ClinicHandler) load(c *gin.Context, action authz.Action) (*models.Clinic, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var clinic models.Clinic
	if err := h.db.WithContext(c.Request.Context()).First(&clinic, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("clinic")
		}
		httperr.From(c, h.log, err)
		return nil, false
	}

	pr := middleware.Principal(c)
	if err := h.policy.Authorize(pr, authz.EntityClinic, action, authz.ClinicResource(&clinic)); err != nil {
		httperr.From(c, h.log, err)
		return nil, false
	}
	return &clinic, true
}

func (h *ClinicHandler) Get(c *gin.Context) {
	clinic, ok := h.load(c, authz.ActionRead)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, clinic)
}

func (h *ClinicHandler) Update(c *gin.Context) {
	clinic, ok := h.load(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req UpdateClinicRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Name != nil {
		clinic.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		clinic.Address = *req.Address
	}
	if req.Phone != nil {
		clinic.Phone = *req.Phone
	}
	if req.Timezone != nil {
		if !timezone.IsValid(*req.Timezone) {
			httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
			return
		}
		clinic.Timezone = *req.Timezone
	}

	if err := h.db.WithContext(c.Request.Context()).Save(clinic).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, middleware.Principal(c), &clinic.ID, "clinic_updated", "clinic", clinic.ID, req)
	c.JSON(http.StatusOK, clinic)
}

// UploadLogo stores the multipart "logo" image as WebP for clients and as
// PNG for printed documents.
func (h *ClinicHandler) UploadLogo(c *gin.Context) {
	clinic, ok := h.load(c, authz.ActionUpdate)
	if !ok {
		return
	}

	if h.storage == nil {
		httperr.Write(c, http.StatusServiceUnavailable, "storage_disabled", "File storage is not configured.")
		return
	}

	fh, err := c.FormFile("logo")
	if err != nil {
		httperr.BadRequest(c, "invalid_request", "Multipart field \"logo\" is required.")
		return
	}
	if fh.Size > imaging.MaxUploadBytes {
		httperr.BadRequest(c, "file_too_large", "Logo must be at most 5 MB.")
		return
	}

	f, err := fh.Open()
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}
	defer f.Close()

	logo, err := imaging.NormalizeLogo(f)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedImage) {
			httperr.BadRequest(c, "unsupported_image", "Upload a PNG, JPEG, GIF or WebP image.")
			return
		}
		httperr.From(c, h.log, err)
		return
	}

	ctx := c.Request.Context()
	webpURL, err := h.storage.Put(ctx, storage.ClinicLogoKey(clinic.ID.String(), "webp"), "image/webp", logo.WebP)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}
	pngKey := storage.ClinicLogoKey(clinic.ID.String(), "png")
	if _, err := h.storage.Put(ctx, pngKey, "image/png", logo.PNG); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	clinic.LogoURL = webpURL
	clinic.LogoKey = pngKey
	if err := h.db.WithContext(ctx).Model(clinic).Select("LogoURL", "LogoKey").Updates(clinic).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, middleware.Principal(c), &clinic.ID, "clinic_logo_updated", "clinic", clinic.ID, gin.H{
		"width":  logo.Width,
		"height": logo.Height,
	})
	c.JSON(http.StatusOK, clinic)
}
