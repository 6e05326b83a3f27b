// Package outbox records domain events in the business transaction and
// relays them to external sinks afterwards.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

const (
	AggregateConsultation = "consultation"
	AggregateInvoice      = "invoice"

	EventConsultationCompleted = "consultation.completed"
	EventInvoiceCreated        = "invoice.created"
	EventInvoicePaid           = "invoice.paid"
	EventInvoiceCancelled      = "invoice.cancelled"
)

type ConsultationCompleted struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	ClinicID       uuid.UUID `json:"clinic_id"`
	CompletedAt    time.Time `json:"completed_at"`
}

type InvoiceChanged struct {
	InvoiceID      uuid.UUID  `json:"invoice_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ClinicID       *uuid.UUID `json:"clinic_id,omitempty"`
	ConsultationID *uuid.UUID `json:"consultation_id,omitempty"`
	Amount         float64    `json:"amount"`
	Status         string     `json:"status"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
}

func InvoicePayload(inv *models.Invoice) InvoiceChanged {
	return InvoiceChanged{
		InvoiceID:      inv.ID,
		PatientID:      inv.PatientID,
		ClinicID:       inv.ClinicID,
		ConsultationID: inv.ConsultationID,
		Amount:         inv.Amount,
		Status:         inv.Status,
		PaidAt:         inv.PaidAt,
	}
}

// Append stores an event using tx, so it commits or rolls back together
// with the change it describes.
func Append(tx *gorm.DB, aggregateType, aggregateID, eventType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	ev := models.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       string(b),
	}
	return tx.Create(&ev).Error
}
