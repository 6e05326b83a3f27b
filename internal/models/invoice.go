package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invoice struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	PatientID uuid.UUID `gorm:"type:uuid;index;not null" json:"patient_id"`
	Patient   *Patient  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"patient,omitempty"`

	ClinicID *uuid.UUID `gorm:"type:uuid;index" json:"clinic_id,omitempty"`

	// one invoice per consultation; nil for manual invoices
	ConsultationID *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"consultation_id,omitempty"`

	Amount float64 `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status string  `gorm:"size:20;index;not null" json:"status"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// gateway payment id, whichever provider settled it
	StripePaymentID   *string    `gorm:"column:stripe_payment_id;size:255;uniqueIndex" json:"stripe_payment_id,omitempty"`
	PaymentProvider   string     `gorm:"size:20" json:"payment_provider,omitempty"`
	CheckoutSessionID string     `gorm:"size:255;index" json:"checkout_session_id,omitempty"`
	CheckoutStartedAt *time.Time `json:"checkout_started_at,omitempty"`
	// amount the open checkout session was created for
	CheckoutAmount *float64 `gorm:"type:decimal(10,2)" json:"checkout_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
