package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Prescription struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ConsultationID uuid.UUID     `gorm:"type:uuid;index;not null" json:"consultation_id"`
	Consultation   *Consultation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"consultation,omitempty"`

	Medications  string `gorm:"type:text;not null" json:"medications"`
	Instructions string `gorm:"type:text" json:"instructions,omitempty"`

	// populated the first time the document is generated and stored
	PDFURL string `gorm:"column:pdf_url;size:512" json:"pdf_url,omitempty"`
	PDFKey string `gorm:"column:pdf_key;size:255" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (p *Prescription) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
