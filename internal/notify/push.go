// Package notify delivers push notifications to patients' devices through
// Firebase Cloud Messaging.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/models"
	"github.com/BruksfildServices01/clinic-api/internal/outbox"
)

// Sender is the subset of the FCM client used here.
type Sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

func NewFirebaseSender(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app.Messaging(ctx)
}

// PushSink is an outbox sink that notifies the patient of invoice events.
type PushSink struct {
	db     *gorm.DB
	sender Sender
	log    zerolog.Logger
}

func NewPushSink(db *gorm.DB, sender Sender, log zerolog.Logger) *PushSink {
	return &PushSink{db: db, sender: sender, log: log}
}

func (s *PushSink) Name() string { return "push" }

func (s *PushSink) Handle(ctx context.Context, ev models.OutboxEvent) error {
	var title, body string
	switch ev.EventType {
	case outbox.EventInvoiceCreated:
		title = "New invoice"
	case outbox.EventInvoicePaid:
		title = "Payment received"
	default:
		return nil
	}

	var payload outbox.InvoiceChanged
	if err := json.Unmarshal([]byte(ev.Payload), &payload); err != nil {
		return fmt.Errorf("decode %s: %w", ev.EventType, err)
	}
	if ev.EventType == outbox.EventInvoiceCreated {
		body = fmt.Sprintf("An invoice of %.2f is waiting for payment.", payload.Amount)
	} else {
		body = fmt.Sprintf("Your payment of %.2f was confirmed. Thank you!", payload.Amount)
	}

	tokens, err := s.patientTokens(ctx, payload.PatientID.String())
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	resp, err := s.sender.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: map[string]string{
			"event_type": ev.EventType,
			"invoice_id": payload.InvoiceID.String(),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:    "default",
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: title, Body: body},
					Sound: "default",
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}

	s.pruneStale(ctx, tokens, resp)
	return nil
}

func (s *PushSink) patientTokens(ctx context.Context, patientID string) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).
		Model(&models.DeviceToken{}).
		Joins("JOIN patients ON patients.user_id = device_tokens.user_id").
		Where("patients.id = ?", patientID).
		Pluck("device_tokens.token", &tokens).Error
	return tokens, err
}

// pruneStale removes tokens FCM reports as no longer registered.
func (s *PushSink) pruneStale(ctx context.Context, tokens []string, resp *messaging.BatchResponse) {
	if resp == nil || resp.FailureCount == 0 {
		return
	}
	var stale []string
	for i, r := range resp.Responses {
		if i < len(tokens) && !r.Success && messaging.IsUnregistered(r.Error) {
			stale = append(stale, tokens[i])
		}
	}
	if len(stale) == 0 {
		return
	}
	if err := s.db.WithContext(ctx).Where("token IN ?", stale).Delete(&models.DeviceToken{}).Error; err != nil {
		s.log.Warn().Err(err).Msg("failed to prune device tokens")
	}
}
