package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/clock"
	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/kafka"
	"github.com/Mnunley1/gearboxe-reservations/internal/monitoring"
	"github.com/Mnunley1/gearboxe-reservations/internal/repository"
)

const provider = "stripe"

const (
	EventTypePaymentSucceeded = "payment_succeeded"
	EventTypePaymentFailed    = "payment_failed"
)

// ProviderEvent is the decoded body of a payment provider delivery.
type ProviderEvent struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	RegistrationID string `json:"registration_id"`
	PaymentRef     string `json:"payment_ref"`
}

type WebhookUseCase interface {
	HandleDelivery(ctx context.Context, payload []byte, signature string) error
	HandlePaymentSucceeded(ctx context.Context, providerEventID, registrationID, paymentRef string) error
	HandlePaymentFailed(ctx context.Context, registrationID string) error
	ResendConfirmation(ctx context.Context, registrationID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// CapacityInvalidator drops the cached availability snapshot for an event
// whenever a webhook outcome frees a slot.
type CapacityInvalidator interface {
	InvalidateCapacity(ctx context.Context, eventID string) error
}

type WebhookService struct {
	registrations      repository.RegistrationRepository
	webhookEvents      repository.WebhookEventRepository
	producer           Producer
	capacity           CapacityInvalidator
	clock              clock.Clock
	notificationsTopic string
	signingSecret      string
	tolerance          time.Duration
}

func NewWebhookService(
	registrations repository.RegistrationRepository,
	webhookEvents repository.WebhookEventRepository,
	producer Producer,
	capacity CapacityInvalidator,
	clk clock.Clock,
	notificationsTopic string,
	signingSecret string,
	tolerance time.Duration,
) *WebhookService {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &WebhookService{
		registrations:      registrations,
		webhookEvents:      webhookEvents,
		producer:           producer,
		capacity:           capacity,
		clock:              clk,
		notificationsTopic: notificationsTopic,
		signingSecret:      signingSecret,
		tolerance:          tolerance,
	}
}

// HandleDelivery verifies the provider signature before any state is touched,
// then dispatches on the event type.
func (s *WebhookService) HandleDelivery(ctx context.Context, payload []byte, signature string) error {
	if err := VerifySignature(payload, signature, s.signingSecret, s.tolerance, s.clock.Now()); err != nil {
		monitoring.TrackWebhookEvent("unknown", "unverified")
		return err
	}

	var event ProviderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	switch event.Type {
	case EventTypePaymentSucceeded:
		return s.HandlePaymentSucceeded(ctx, event.ID, event.RegistrationID, event.PaymentRef)
	case EventTypePaymentFailed:
		return s.HandlePaymentFailed(ctx, event.RegistrationID)
	default:
		log.Printf("ignoring webhook event %s of type %q", event.ID, event.Type)
		monitoring.TrackWebhookEvent(event.Type, "ignored")
		return nil
	}
}

// HandlePaymentSucceeded completes a hold exactly once. Redeliveries hit
// either the provider-event dedup row or the conditional update and leave the
// minted token untouched.
func (s *WebhookService) HandlePaymentSucceeded(ctx context.Context, providerEventID, registrationID, paymentRef string) error {
	if providerEventID != "" {
		seen, err := s.webhookEvents.Seen(ctx, provider, providerEventID)
		if err != nil {
			return err
		}
		if seen {
			monitoring.TrackWebhookEvent(EventTypePaymentSucceeded, "duplicate")
			return nil
		}
	}

	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, domain.ErrRegistrationNotFound) {
			// The provider retries on errors and an unknown reference is not
			// retryable, so acknowledge and move on.
			log.Printf("payment succeeded for unknown registration %s, ignoring", registrationID)
			monitoring.TrackWebhookEvent(EventTypePaymentSucceeded, "unknown_registration")
			return nil
		}
		return err
	}

	if reg.PaymentStatus == domain.PaymentStatusCompleted {
		s.recordDelivery(ctx, providerEventID, EventTypePaymentSucceeded, registrationID)
		monitoring.TrackWebhookEvent(EventTypePaymentSucceeded, "duplicate")
		return nil
	}
	if reg.PaymentStatus == domain.PaymentStatusFailed {
		// The sweep reaped the hold before the success landed. The slot may
		// already belong to someone else, so the payment is acknowledged
		// without completing anything; the charge gets reconciled out of band.
		log.Printf("payment succeeded for reaped registration %s, ignoring", registrationID)
		s.recordDelivery(ctx, providerEventID, EventTypePaymentSucceeded, registrationID)
		monitoring.TrackWebhookEvent(EventTypePaymentSucceeded, "expired")
		return nil
	}

	token, err := newCheckInToken()
	if err != nil {
		return err
	}

	completed, err := s.registrations.CompletePayment(ctx, registrationID, paymentRef, token)
	if err != nil {
		if errors.Is(err, domain.ErrRegistrationNotFound) {
			// The row left pending between the read and the write: another
			// delivery completed it, or the sweep failed it. Either way the
			// first writer's outcome stands.
			monitoring.TrackWebhookEvent(EventTypePaymentSucceeded, "duplicate")
			s.recordDelivery(ctx, providerEventID, EventTypePaymentSucceeded, registrationID)
			return nil
		}
		return err
	}

	s.recordDelivery(ctx, providerEventID, EventTypePaymentSucceeded, registrationID)
	s.scheduleNotification(ctx, "confirmation_scheduled", completed)
	monitoring.TrackWebhookEvent(EventTypePaymentSucceeded, "ok")
	return nil
}

// HandlePaymentFailed moves a pending hold to failed. Completed registrations
// are never downgraded by a late failure. A freed slot drops the event's
// cached availability snapshot.
func (s *WebhookService) HandlePaymentFailed(ctx context.Context, registrationID string) error {
	updated, err := s.registrations.FailPayment(ctx, registrationID)
	if err != nil {
		return err
	}
	if !updated {
		log.Printf("payment failed for registration %s had no effect", registrationID)
		monitoring.TrackWebhookEvent(EventTypePaymentFailed, "noop")
		return nil
	}
	s.invalidateCapacityFor(ctx, registrationID)
	monitoring.TrackWebhookEvent(EventTypePaymentFailed, "ok")
	return nil
}

func (s *WebhookService) invalidateCapacityFor(ctx context.Context, registrationID string) {
	if s.capacity == nil {
		return
	}
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		log.Printf("lookup registration %s for capacity invalidation: %v", registrationID, err)
		return
	}
	if err := s.capacity.InvalidateCapacity(ctx, reg.EventID); err != nil {
		log.Printf("invalidate capacity cache for event %s: %v", reg.EventID, err)
	}
}

// ResendConfirmation republishes the confirmation notification for a completed
// registration.
func (s *WebhookService) ResendConfirmation(ctx context.Context, registrationID string) error {
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return err
	}
	if reg.PaymentStatus != domain.PaymentStatusCompleted {
		return domain.ErrNotPaid
	}
	s.scheduleNotification(ctx, "confirmation_resend", reg)
	return nil
}

func (s *WebhookService) recordDelivery(ctx context.Context, providerEventID, eventType, registrationID string) {
	if providerEventID == "" {
		return
	}
	if err := s.webhookEvents.Record(ctx, provider, providerEventID, eventType, registrationID); err != nil {
		log.Printf("record webhook event %s: %v", providerEventID, err)
	}
}

// scheduleNotification is fire and forget; a mailer outage must never fail or
// roll back the payment completion it was triggered from.
func (s *WebhookService) scheduleNotification(ctx context.Context, eventType string, reg *domain.Registration) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	event := kafka.RegistrationEvent{
		Type:           eventType,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		VehicleID:      reg.VehicleID,
		UserID:         reg.UserID,
		Status:         string(reg.PaymentStatus),
		CheckInToken:   reg.CheckInToken,
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, reg.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s notification for registration %s: %v", eventType, reg.ID, err)
	}
}

// newCheckInToken mints the unguessable identifier handed to the vendor at
// payment completion.
func newCheckInToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ WebhookUseCase = (*WebhookService)(nil)
