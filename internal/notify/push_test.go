package notify

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/clinic-api/internal/dbtest"
	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/outbox"
)

type fakeSender struct {
	sent []*messaging.MulticastMessage
	err  error
}

func (f *fakeSender) SendEachForMulticast(_ context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, m)
	return &messaging.BatchResponse{SuccessCount: len(m.Tokens)}, nil
}

func invoiceEvent(t *testing.T, eventType string, patientID uuid.UUID) models.OutboxEvent {
	t.Helper()
	inv := &models.Invoice{ID: uuid.New(), PatientID: patientID, Amount: 120, Status: "PENDING"}
	db := dbtest.New(t)
	require.NoError(t, outbox.Append(db, outbox.AggregateInvoice, inv.ID.String(), eventType, outbox.InvoicePayload(inv)))
	var ev models.OutboxEvent
	require.NoError(t, db.First(&ev).Error)
	return ev
}

func TestPushSink_NotifiesPatientDevices(t *testing.T) {
	db := dbtest.New(t)

	user := models.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", Role: models.RolePatient}
	require.NoError(t, db.Create(&user).Error)
	patient := models.Patient{UserID: &user.ID, FirstName: "Ana", LastName: "Lima"}
	require.NoError(t, db.Create(&patient).Error)
	require.NoError(t, db.Create(&models.DeviceToken{UserID: user.ID, Token: "device-1"}).Error)

	sender := &fakeSender{}
	sink := NewPushSink(db, sender, zerolog.Nop())

	require.NoError(t, sink.Handle(context.Background(), invoiceEvent(t, outbox.EventInvoiceCreated, patient.ID)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"device-1"}, sender.sent[0].Tokens)
	assert.Equal(t, "New invoice", sender.sent[0].Notification.Title)
	assert.Contains(t, sender.sent[0].Notification.Body, "120.00")
}

func TestPushSink_IgnoresOtherEventsAndMissingDevices(t *testing.T) {
	db := dbtest.New(t)
	sender := &fakeSender{err: errors.New("must not be called")}
	sink := NewPushSink(db, sender, zerolog.Nop())

	ev := models.OutboxEvent{EventType: outbox.EventConsultationCompleted, Payload: "{}"}
	assert.NoError(t, sink.Handle(context.Background(), ev))

	assert.NoError(t, sink.Handle(context.Background(), invoiceEvent(t, outbox.EventInvoicePaid, uuid.New())))
}
