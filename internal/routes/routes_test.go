package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/config"
	"github.com/BruksfildServices01/clinic-api/internal/dbtest"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/payment"
	"github.com/BruksfildServices01/clinic-api/internal/storage"
)

// ======================================================
// FAKES
// ======================================================

type fakeGateway struct {
	mu       sync.Mutex
	created  int
	sessions map[string]*payment.Session
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateCheckout(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created++
	s := &payment.Session{ID: "cs_" + uuid.NewString()[:8], URL: "https://pay.example/checkout", InvoiceID: req.InvoiceID}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, payment.ErrLookupUnsupported
	}
	cp := *s
	return &cp, nil
}

// ParseWebhook trusts requests carrying X-Test-Signature: ok; the body is
// the paid session id.
func (g *fakeGateway) ParseWebhook(_ context.Context, payload []byte, header http.Header) (*payment.Event, error) {
	if header.Get("X-Test-Signature") != "ok" {
		return nil, payment.ErrInvalidSignature
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[string(payload)]
	if !ok {
		return &payment.Event{Ignored: true}, nil
	}
	s.Paid = true
	s.PaymentID = "pi_" + s.ID
	return &payment.Event{Session: *s}, nil
}

// ======================================================
// ENVIRONMENT
// ======================================================

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	issuer *authz.Issuer
	gw     *fakeGateway
	clinic *models.Clinic
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.New(t)
	cfg := &config.Config{
		Env:                    "test",
		JWTSecret:              "test-secret",
		JWTTTL:                 time.Hour,
		CORSOrigins:            []string{"http://localhost:3000"},
		LoginRateLimit:         100,
		DefaultConsultationFee: 50,
		InvoiceDedupWindow:     5 * time.Minute,
		Currency:               "usd",
		PaymentSuccessURL:      "http://localhost/ok?invoice_id={INVOICE_ID}",
		PaymentCancelURL:       "http://localhost/cancel",
		CheckoutLockTTL:        30 * time.Minute,
	}

	env := &testEnv{
		db:     db,
		router: gin.New(),
		issuer: authz.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		gw:     &fakeGateway{sessions: map[string]*payment.Session{}},
		clinic: dbtest.Clinic(t, db, "Downtown Clinic"),
	}

	RegisterRoutes(env.router, Deps{
		DB:      db,
		Config:  cfg,
		Log:     zerolog.Nop(),
		Cache:   cache.NewMemory(),
		Policy:  authz.DefaultPolicy(),
		Issuer:  env.issuer,
		Gateway: env.gw,
		Storage: storage.NewMemory(),
	})
	return env
}

func (e *testEnv) token(t *testing.T, user *models.User, doctorID, patientID uuid.UUID) string {
	t.Helper()
	tok, _, err := e.issuer.Issue(user, doctorID, patientID)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) staffToken(t *testing.T, role models.Role) string {
	return e.token(t, dbtest.User(t, e.db, e.clinic, role), uuid.Nil, uuid.Nil)
}

func (e *testEnv) doctorToken(t *testing.T, d *models.Doctor) string {
	return e.token(t, d.User, d.ID, uuid.Nil)
}

func (e *testEnv) patientToken(t *testing.T, p *models.Patient) string {
	var u models.User
	require.NoError(t, e.db.First(&u, "id = ?", *p.UserID).Error)
	return e.token(t, &u, uuid.Nil, p.ID)
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// ======================================================
// TESTS
// ======================================================

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/patients", "/api/invoices", "/api/me"} {
		w := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := env.do(http.MethodGet, "/api/patients", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConsultationCompletesAppointmentAndRaisesInvoice(t *testing.T) {
	env := newTestEnv(t)
	doctor := dbtest.Doctor(t, env.db, env.clinic)
	patient := dbtest.Patient(t, env.db)
	dbtest.Service(t, env.db, env.clinic, 80, true)
	ap := dbtest.Appointment(t, env.db, patient, doctor, "SCHEDULED")
	tok := env.doctorToken(t, doctor)

	body := gin.H{"appointment_id": ap.ID, "diagnosis": "Flu", "treatment": "Rest"}
	w := env.do(http.MethodPost, "/api/consultations", tok, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		ID        uuid.UUID  `json:"id"`
		InvoiceID *uuid.UUID `json:"invoice_id"`
	}
	decode(t, w, &out)
	require.NotNil(t, out.InvoiceID)

	var inv models.Invoice
	require.NoError(t, env.db.First(&inv, "id = ?", *out.InvoiceID).Error)
	assert.Equal(t, 80.0, inv.Amount)
	assert.Equal(t, "PENDING", inv.Status)
	assert.Equal(t, patient.ID, inv.PatientID)
	require.NotNil(t, inv.ConsultationID)
	assert.Equal(t, out.ID, *inv.ConsultationID)

	w = env.do(http.MethodGet, "/api/appointments/"+ap.ID.String(), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"COMPLETED"`)

	w = env.do(http.MethodPost, "/api/consultations", tok, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "consultation_exists")

	var count int64
	env.db.Model(&models.Invoice{}).Where("patient_id = ?", patient.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestConsultationForeignDoctorForbidden(t *testing.T) {
	env := newTestEnv(t)
	doctor := dbtest.Doctor(t, env.db, env.clinic)
	other := dbtest.Doctor(t, env.db, env.clinic)
	patient := dbtest.Patient(t, env.db)
	ap := dbtest.Appointment(t, env.db, patient, doctor, "SCHEDULED")

	w := env.do(http.MethodPost, "/api/consultations", env.doctorToken(t, other),
		gin.H{"appointment_id": ap.ID, "diagnosis": "Flu", "treatment": "Rest"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var reloaded models.Appointment
	require.NoError(t, env.db.First(&reloaded, "id = ?", ap.ID).Error)
	assert.Equal(t, "SCHEDULED", reloaded.Status)
}

func TestDeleteDoctorCascade(t *testing.T) {
	env := newTestEnv(t)
	doctor := dbtest.Doctor(t, env.db, env.clinic)
	patient := dbtest.Patient(t, env.db)

	done := dbtest.Appointment(t, env.db, patient, doctor, "COMPLETED")
	cons := &models.Consultation{AppointmentID: done.ID, Diagnosis: "Flu", Treatment: "Rest"}
	require.NoError(t, env.db.Create(cons).Error)
	inv := &models.Invoice{PatientID: patient.ID, ClinicID: &env.clinic.ID, ConsultationID: &cons.ID, Amount: 50, Status: "PENDING"}
	require.NoError(t, env.db.Create(inv).Error)

	open := dbtest.Appointment(t, env.db, patient, doctor, "SCHEDULED")
	confirmed := dbtest.Appointment(t, env.db, patient, doctor, "CONFIRMED")

	path := "/api/doctors/" + doctor.ID.String()

	w := env.do(http.MethodDelete, path, env.staffToken(t, models.RoleReceptionist), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodDelete, path, env.staffToken(t, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Cancelled int64 `json:"cancelled_appointments"`
	}
	decode(t, w, &out)
	assert.Equal(t, int64(2), out.Cancelled)

	for _, id := range []uuid.UUID{open.ID, confirmed.ID} {
		var ap models.Appointment
		require.NoError(t, env.db.First(&ap, "id = ?", id).Error)
		assert.Equal(t, "CANCELLED", ap.Status)
	}

	var kept models.Appointment
	require.NoError(t, env.db.First(&kept, "id = ?", done.ID).Error)
	assert.Equal(t, "COMPLETED", kept.Status)

	require.NoError(t, env.db.First(&models.Patient{}, "id = ?", patient.ID).Error)
	require.NoError(t, env.db.First(&models.Consultation{}, "id = ?", cons.ID).Error)
	require.NoError(t, env.db.First(&models.Invoice{}, "id = ?", inv.ID).Error)

	err := env.db.First(&models.Doctor{}, "id = ?", doctor.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	err = env.db.First(&models.User{}, "id = ?", doctor.UserID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPrescriptionPDF(t *testing.T) {
	env := newTestEnv(t)
	doctor := dbtest.Doctor(t, env.db, env.clinic)
	patient := dbtest.Patient(t, env.db)
	stranger := dbtest.Patient(t, env.db)

	ap := dbtest.Appointment(t, env.db, patient, doctor, "COMPLETED")
	cons := &models.Consultation{AppointmentID: ap.ID, Diagnosis: "Otitis", Treatment: "Antibiotics"}
	require.NoError(t, env.db.Create(cons).Error)

	w := env.do(http.MethodPost, "/api/prescriptions", env.doctorToken(t, doctor), gin.H{
		"consultation_id": cons.ID,
		"medications":     "Amoxicillin 500mg, 3x a day for 7 days",
		"instructions":    "Take after meals",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rx models.Prescription
	decode(t, w, &rx)
	path := "/api/prescriptions/" + rx.ID.String() + "/pdf"

	w = env.do(http.MethodPost, path, env.patientToken(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, path, env.staffToken(t, models.RoleReceptionist), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	owner := env.patientToken(t, patient)
	w = env.do(http.MethodPost, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="prescription-`+rx.ID.String()+`.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	first := w.Body.Bytes()

	var stored models.Prescription
	require.NoError(t, env.db.First(&stored, "id = ?", rx.ID).Error)
	assert.Equal(t, storage.PrescriptionKey(rx.ID.String()), stored.PDFKey)
	assert.NotEmpty(t, stored.PDFURL)

	w = env.do(http.MethodPost, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, w.Body.Bytes())
}

func TestCheckoutReusesOpenSession(t *testing.T) {
	env := newTestEnv(t)
	patient := dbtest.Patient(t, env.db)
	inv := &models.Invoice{PatientID: patient.ID, ClinicID: &env.clinic.ID, Amount: 120, Status: "PENDING"}
	require.NoError(t, env.db.Create(inv).Error)

	tok := env.staffToken(t, models.RoleReceptionist)
	path := "/api/invoices/" + inv.ID.String() + "/checkout"

	type result struct {
		SessionID string `json:"session_id"`
		Reused    bool   `json:"reused"`
	}

	w := env.do(http.MethodPost, path, tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first result
	decode(t, w, &first)
	assert.False(t, first.Reused)

	w = env.do(http.MethodPost, path, env.patientToken(t, patient), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second result
	decode(t, w, &second)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.True(t, second.Reused)
	assert.Equal(t, 1, env.gw.created)
}

func TestWebhookSettlesInvoice(t *testing.T) {
	env := newTestEnv(t)
	patient := dbtest.Patient(t, env.db)
	inv := &models.Invoice{PatientID: patient.ID, ClinicID: &env.clinic.ID, Amount: 75, Status: "PENDING"}
	require.NoError(t, env.db.Create(inv).Error)

	w := env.do(http.MethodPost, "/api/invoices/"+inv.ID.String()+"/checkout", env.patientToken(t, patient), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session struct {
		SessionID string `json:"session_id"`
	}
	decode(t, w, &session)

	post := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(session.SessionID))
		req.Header.Set("X-Test-Signature", signature)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, post("forged").Code)

	require.Equal(t, http.StatusOK, post("ok").Code)
	var paid models.Invoice
	require.NoError(t, env.db.First(&paid, "id = ?", inv.ID).Error)
	assert.Equal(t, "PAID", paid.Status)
	require.NotNil(t, paid.PaidAt)
	firstPaidAt := *paid.PaidAt

	// redelivery is a no-op
	require.Equal(t, http.StatusOK, post("ok").Code)
	require.NoError(t, env.db.First(&paid, "id = ?", inv.ID).Error)
	assert.True(t, firstPaidAt.Equal(*paid.PaidAt))
}

func TestInvoiceReportIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	patient := dbtest.Patient(t, env.db)
	require.NoError(t, env.db.Create(&models.Invoice{PatientID: patient.ID, ClinicID: &env.clinic.ID, Amount: 40, Status: "PENDING"}).Error)

	w := env.do(http.MethodGet, "/api/reports/invoices.xlsx", env.staffToken(t, models.RoleReceptionist), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/reports/invoices.xlsx", env.staffToken(t, models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestWorkingHoursAndAvailability(t *testing.T) {
	env := newTestEnv(t)
	doctor := dbtest.Doctor(t, env.db, env.clinic)
	patient := dbtest.Patient(t, env.db)
	path := "/api/doctors/" + doctor.ID.String() + "/working-hours"

	agenda := gin.H{"days": []gin.H{
		{"weekday": 1, "active": true, "start_time": "08:00", "end_time": "10:00"},
		{"weekday": 0, "active": false},
	}}

	w := env.do(http.MethodPut, path, env.staffToken(t, models.RoleReceptionist), agenda)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPut, path, env.doctorToken(t, doctor), gin.H{"days": []gin.H{
		{"weekday": 1, "active": true, "start_time": "10:00", "end_time": "08:00"},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, path, env.doctorToken(t, doctor), agenda)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, path, env.staffToken(t, models.RoleReceptionist), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hours []models.WorkingHours
	decode(t, w, &hours)
	assert.Len(t, hours, 2)

	// 2030-01-07 is a Monday
	w = env.do(http.MethodGet, "/api/doctors/"+doctor.ID.String()+"/availability?date=2030-01-07", env.patientToken(t, patient), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Slots []struct {
			Start string `json:"start"`
		} `json:"slots"`
	}
	decode(t, w, &out)
	assert.Len(t, out.Slots, 4)
}
