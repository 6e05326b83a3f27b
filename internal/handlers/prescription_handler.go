package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/httpresp"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/pdf"
	"github.com/BruksfildServices01/clinic-api/internal/storage"
)

// ======================================================
// HANDLER
// ======================================================

type PrescriptionHandler struct {
	db      *gorm.DB
	policy  *authz.Policy
	audit   *audit.Dispatcher
	storage storage.Store
	log     zerolog.Logger
}

func NewPrescriptionHandler(
	db *gorm.DB,
	policy *authz.Policy,
	audit *audit.Dispatcher,
	store storage.Store,
	log zerolog.Logger,
) *PrescriptionHandler {
	return &PrescriptionHandler{db: db, policy: policy, audit: audit, storage: store, log: log}
}

type CreatePrescriptionRequest struct {
	ConsultationID string `json:"consultation_id" binding:"required,uuid"`
	Medications    string `json:"medications" binding:"required"`
	Instructions   string `json:"instructions"`
}

// ======================================================
// CREATE
// ======================================================

func (h *PrescriptionHandler) Create(c *gin.Context) {
	pr := middleware.Principal(c)

	var req CreatePrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Medications) == "" {
		httperr.BadRequest(c, "invalid_request", "medications must not be blank.")
		return
	}

	consultationID, _ := bodyID(req.ConsultationID)
	ctx := c.Request.Context()

	var cons models.Consultation
	if err := h.db.WithContext(ctx).
		Preload("Appointment").
		First(&cons, "id = ?", consultationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("consultation")
		}
		httperr.From(c, h.log, err)
		return
	}

	if err := h.policy.Authorize(pr, authz.EntityPrescription, authz.ActionCreate, authz.PrescriptionResource(cons.Appointment)); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	rx := models.Prescription{
		ConsultationID: cons.ID,
		Medications:    strings.TrimSpace(req.Medications),
		Instructions:   strings.TrimSpace(req.Instructions),
	}
	if err := h.db.WithContext(ctx).Create(&rx).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	writeAudit(h.audit, pr, &cons.Appointment.ClinicID, "prescription_created", "prescription", rx.ID, nil)
	httpresp.Created(c, rx)
}

// ======================================================
// GET / LIST
// ======================================================

func (h *PrescriptionHandler) Get(c *gin.Context) {
	rx, ok := h.load(c)
	if !ok {
		return
	}
	httpresp.OK(c, rx)
}

func (h *PrescriptionHandler) List(c *gin.Context) {
	pr := middleware.Principal(c)

	scope, err := h.policy.ListFilter(pr, authz.EntityPrescription)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	consultationID, ok := queryID(c, "consultation_id")
	if !ok {
		return
	}

	q := h.db.WithContext(c.Request.Context()).
		Model(&models.Prescription{}).
		Joins("JOIN consultations ON consultations.id = prescriptions.consultation_id").
		Joins("JOIN appointments ON appointments.id = consultations.appointment_id")

	if scope.ClinicID != uuid.Nil {
		q = q.Where("appointments.clinic_id = ?", scope.ClinicID)
	}
	if scope.DoctorID != uuid.Nil {
		q = q.Where("appointments.doctor_id = ?", scope.DoctorID)
	}
	if scope.PatientID != uuid.Nil {
		q = q.Where("appointments.patient_id = ?", scope.PatientID)
	}
	if consultationID != uuid.Nil {
		q = q.Where("prescriptions.consultation_id = ?", consultationID)
	}

	var list []models.Prescription
	if err := q.Order("prescriptions.created_at DESC").Find(&list).Error; err != nil {
		httperr.From(c, h.log, err)
		return
	}

	httpresp.List(c, list)
}

// ======================================================
// PDF
// ======================================================

// PDF answers the printable prescription. A stored copy is streamed when
// available, otherwise the document is rendered and stored for next time.
func (h *PrescriptionHandler) PDF(c *gin.Context) {
	rx, ok := h.load(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	filename := fmt.Sprintf("prescription-%s.pdf", rx.ID)

	if rx.PDFKey != "" && h.storage != nil {
		body, err := h.storage.Get(ctx, rx.PDFKey)
		if err == nil {
			defer body.Close()
			if err := httpresp.StreamAttachment(c, filename, pdf.ContentType, body); err != nil {
				h.log.Warn().Err(err).Str("prescription_id", rx.ID.String()).Msg("pdf stream interrupted")
			}
			return
		}
		h.log.Warn().Err(err).Str("key", rx.PDFKey).Msg("stored pdf unavailable, rendering again")
	}

	doc, err := h.render(ctx, rx)
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	h.persist(ctx, rx, doc)

	writeAudit(h.audit, middleware.Principal(c), &rx.Consultation.Appointment.ClinicID, "prescription_exported", "prescription", rx.ID, nil)

	httpresp.Attachment(c, filename, pdf.ContentType, doc)
}

func (h *PrescriptionHandler) render(ctx context.Context, rx *models.Prescription) ([]byte, error) {
	ap := rx.Consultation.Appointment

	var clinic models.Clinic
	if err := h.db.WithContext(ctx).First(&clinic, "id = ?", ap.ClinicID).Error; err != nil {
		return nil, err
	}

	data := pdf.PrescriptionData{
		ID:            rx.ID.String(),
		ClinicName:    clinic.Name,
		ClinicAddress: clinic.Address,
		ClinicPhone:   clinic.Phone,
		IssuedAt:      rx.CreatedAt,
		Location:      locationFromClinic(&clinic),
		Medications:   rx.Medications,
		Instructions:  rx.Instructions,
	}
	if ap.Patient != nil {
		data.PatientName = ap.Patient.FullName()
		data.PatientDOB = ap.Patient.DateOfBirth
	}
	if ap.Doctor != nil {
		data.Specialization = ap.Doctor.Specialization
		data.LicenseNumber = ap.Doctor.LicenseNumber
		if ap.Doctor.User != nil {
			data.DoctorName = ap.Doctor.User.Name
		}
	}
	data.ClinicLogo = h.logo(ctx, &clinic)

	return pdf.RenderPrescription(data)
}

// logo fetches the stored PNG logo; a missing logo only drops it from the
// header.
func (h *PrescriptionHandler) logo(ctx context.Context, clinic *models.Clinic) []byte {
	if clinic.LogoKey == "" || h.storage == nil {
		return nil
	}
	body, err := h.storage.Get(ctx, clinic.LogoKey)
	if err != nil {
		h.log.Warn().Err(err).Str("clinic_id", clinic.ID.String()).Msg("clinic logo unavailable")
		return nil
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil
	}
	return buf.Bytes()
}

// persist stores the rendered document. Failures are logged only.
func (h *PrescriptionHandler) persist(ctx context.Context, rx *models.Prescription, doc []byte) {
	if h.storage == nil {
		return
	}

	key := storage.PrescriptionKey(rx.ID.String())
	url, err := h.storage.Put(ctx, key, pdf.ContentType, doc)
	if err != nil {
		h.log.Warn().Err(err).Str("prescription_id", rx.ID.String()).Msg("pdf upload failed")
		return
	}

	if err := h.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ?", rx.ID).
		Updates(map[string]any{"pdf_url": url, "pdf_key": key}).Error; err != nil {
		h.log.Warn().Err(err).Str("prescription_id", rx.ID.String()).Msg("pdf url not saved")
		return
	}
	rx.PDFURL = url
	rx.PDFKey = key
}

func (h *PrescriptionHandler) load(c *gin.Context) (*models.Prescription, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}

	var rx models.Prescription
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Consultation.Appointment.Patient", withDeleted).
		Preload("Consultation.Appointment.Doctor", withDeleted).
		Preload("Consultation.Appointment.Doctor.User", withDeleted).
		First(&rx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = httperr.ErrNotFound("prescription")
		}
		httperr.From(c, h.log, err)
		return nil, false
	}

	if rx.Consultation == nil || rx.Consultation.Appointment == nil {
		httperr.From(c, h.log, fmt.Errorf("prescription %s has no appointment", rx.ID))
		return nil, false
	}

	if err := h.policy.Authorize(
		middleware.Principal(c),
		authz.EntityPrescription,
		authz.ActionRead,
		authz.PrescriptionResource(rx.Consultation.Appointment),
	); err != nil {
		httperr.From(c, h.log, err)
		return nil, false
	}
	return &rx, true
}
