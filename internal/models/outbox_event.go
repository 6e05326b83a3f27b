package models

import "time"

// OutboxEvent is written in the same transaction as the change it
// describes and relayed to the configured sinks afterwards.
type OutboxEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	AggregateType string `gorm:"size:50;not null" json:"aggregate_type"`
	AggregateID   string `gorm:"size:64;not null" json:"aggregate_id"`
	EventType     string `gorm:"size:80;not null" json:"event_type"`
	Payload       string `gorm:"type:text;not null" json:"payload"`

	ProcessedAt *time.Time `gorm:"index" json:"processed_at,omitempty"`
	RetryCount  int        `gorm:"not null;default:0" json:"retry_count"`
	LastError   string     `gorm:"type:text" json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
