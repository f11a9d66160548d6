package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Mnunley1/gearboxe-reservations/internal/clock"
	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/kafka"
	"github.com/Mnunley1/gearboxe-reservations/internal/monitoring"
	"github.com/Mnunley1/gearboxe-reservations/internal/repository"
	"github.com/google/uuid"
)

type ReservationUseCase interface {
	CreateOrRefreshHold(ctx context.Context, input CreateHoldInput) (*domain.Registration, error)
	GetCapacity(ctx context.Context, eventID string) (*domain.CapacityStatus, error)
	Sweep(ctx context.Context) (SweepResult, error)
}

type Cache interface {
	AcquireEventLock(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ReleaseEventLock(ctx context.Context, eventID string) error
	GetCapacity(ctx context.Context, eventID string) (*domain.CapacityStatus, error)
	SetCapacity(ctx context.Context, eventID string, status domain.CapacityStatus) error
	InvalidateCapacity(ctx context.Context, eventID string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateHoldInput struct {
	EventID   string `json:"event_id"`
	VehicleID string `json:"vehicle_id"`
	UserID    string `json:"user_id"`
}

type SweepResult struct {
	Scanned int `json:"scanned"`
	Failed  int `json:"failed"`
}

type ReservationService struct {
	registrations repository.RegistrationRepository
	events        repository.EventRepository
	cache         Cache
	producer      Producer
	clock         clock.Clock
	eventsTopic   string
	holdTTL       time.Duration
	lockTTL       time.Duration
	lockRetries   int
	lockRetryWait time.Duration
}

type ReservationServiceOption func(*ReservationService)

func WithLockPolicy(ttl time.Duration, retries int, retryWait time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
		if retries > 0 {
			s.lockRetries = retries
		}
		if retryWait > 0 {
			s.lockRetryWait = retryWait
		}
	}
}

func NewReservationService(
	registrations repository.RegistrationRepository,
	events repository.EventRepository,
	cache Cache,
	producer Producer,
	clk clock.Clock,
	eventsTopic string,
	holdTTL time.Duration,
	opts ...ReservationServiceOption,
) *ReservationService {
	if holdTTL <= 0 {
		holdTTL = domain.DefaultHoldTTL
	}
	service := &ReservationService{
		registrations: registrations,
		events:        events,
		cache:         cache,
		producer:      producer,
		clock:         clk,
		eventsTopic:   eventsTopic,
		holdTTL:       holdTTL,
		lockTTL:       5 * time.Second,
		lockRetries:   3,
		lockRetryWait: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateOrRefreshHold places a pending hold for a vehicle on an event, or
// refreshes the vehicle's prior non-completed registration. Attempts for the
// same event run one at a time behind the redis lease so the capacity check
// and the write act on the same registration set.
func (s *ReservationService) CreateOrRefreshHold(ctx context.Context, input CreateHoldInput) (*domain.Registration, error) {
	if input.EventID == "" {
		return nil, errors.New("event id is required")
	}
	if input.VehicleID == "" {
		return nil, errors.New("vehicle id is required")
	}
	if input.UserID == "" {
		return nil, errors.New("user id is required")
	}

	event, err := s.events.GetByID(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if !event.StartsAt.After(s.clock.Now()) {
		return nil, domain.ErrEventStarted
	}

	locked, err := s.acquireEventLock(ctx, input.EventID)
	if err != nil {
		return nil, err
	}
	if locked {
		defer func() {
			if err := s.cache.ReleaseEventLock(ctx, input.EventID); err != nil {
				log.Printf("release event lock %s: %v", input.EventID, err)
			}
		}()
	}

	reg, err := s.holdLocked(ctx, event, input)
	if err != nil {
		monitoring.TrackReservation("create_hold", "rejected")
		return nil, err
	}
	return reg, nil
}

func (s *ReservationService) holdLocked(ctx context.Context, event *domain.Event, input CreateHoldInput) (*domain.Registration, error) {
	regs, err := s.registrations.ListByEvent(ctx, input.EventID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if domain.ActiveCount(regs, now, s.holdTTL) >= event.Capacity {
		return nil, domain.ErrEventFull
	}

	var existing *domain.Registration
	for i := range regs {
		if regs[i].VehicleID == input.VehicleID {
			existing = &regs[i]
			break
		}
	}

	expiresAt := now.Add(s.holdTTL)

	if existing != nil {
		if existing.PaymentStatus == domain.PaymentStatusCompleted {
			return nil, domain.ErrAlreadyRegistered
		}
		refreshed, err := s.registrations.RefreshHold(ctx, existing.ID, expiresAt)
		if err != nil {
			if errors.Is(err, domain.ErrRegistrationNotFound) {
				// A webhook completed the row between the listing and the
				// refresh; same answer as finding it completed up front.
				return nil, domain.ErrAlreadyRegistered
			}
			return nil, err
		}
		s.invalidateCapacity(ctx, input.EventID)
		s.publish(ctx, "hold_refreshed", refreshed)
		monitoring.TrackReservation("refresh_hold", "ok")
		return refreshed, nil
	}

	reg := &domain.Registration{
		ID:            uuid.NewString(),
		EventID:       input.EventID,
		VehicleID:     input.VehicleID,
		UserID:        input.UserID,
		PaymentStatus: domain.PaymentStatusPending,
		ExpiresAt:     &expiresAt,
	}
	if err := s.registrations.CreatePending(ctx, reg); err != nil {
		return nil, err
	}
	s.invalidateCapacity(ctx, input.EventID)
	s.publish(ctx, "hold_created", reg)
	monitoring.TrackReservation("create_hold", "ok")
	return reg, nil
}

// acquireEventLock retries a few times before giving up with ErrReservationBusy
// so brief contention never surfaces to the caller as a hard failure.
func (s *ReservationService) acquireEventLock(ctx context.Context, eventID string) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	for attempt := 0; attempt < s.lockRetries; attempt++ {
		ok, err := s.cache.AcquireEventLock(ctx, eventID, s.lockTTL)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(s.lockRetryWait):
		}
	}
	return false, domain.ErrReservationBusy
}

// GetCapacity recomputes availability from the authoritative registration rows,
// with a short-lived cache in front for hot events.
func (s *ReservationService) GetCapacity(ctx context.Context, eventID string) (*domain.CapacityStatus, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCapacity(ctx, eventID); err == nil && cached != nil {
			return cached, nil
		}
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	active := domain.ActiveCount(regs, s.clock.Now(), s.holdTTL)
	available := event.Capacity - active
	if available < 0 {
		available = 0
	}
	status := domain.CapacityStatus{
		Capacity:  event.Capacity,
		Active:    active,
		Available: available,
		IsFull:    active >= event.Capacity,
	}

	if s.cache != nil {
		_ = s.cache.SetCapacity(ctx, eventID, status)
	}
	return &status, nil
}

// Sweep fails every pending hold whose lease ran out. It only ever frees
// capacity; completed registrations are protected by the conditional write.
// Capacity snapshots of the affected events are dropped so freed slots show
// up immediately.
func (s *ReservationService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()

	scanned, err := s.registrations.CountPending(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	expired, err := s.registrations.ExpirePendingBefore(ctx, now, now.Add(-s.holdTTL))
	if err != nil {
		return SweepResult{}, err
	}
	if len(expired) > 0 {
		monitoring.TrackExpiredHolds(len(expired))
		seen := make(map[string]struct{}, len(expired))
		for _, eventID := range expired {
			if _, ok := seen[eventID]; ok {
				continue
			}
			seen[eventID] = struct{}{}
			s.invalidateCapacity(ctx, eventID)
		}
	}

	return SweepResult{Scanned: scanned, Failed: len(expired)}, nil
}

func (s *ReservationService) invalidateCapacity(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCapacity(ctx, eventID); err != nil {
		log.Printf("invalidate capacity cache for event %s: %v", eventID, err)
	}
}

func (s *ReservationService) publish(ctx context.Context, eventType string, reg *domain.Registration) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.RegistrationEvent{
		Type:           eventType,
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		VehicleID:      reg.VehicleID,
		UserID:         reg.UserID,
		Status:         string(reg.PaymentStatus),
		ExpiresAt:      reg.ExpiresAt,
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, reg.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for registration %s: %v", eventType, reg.ID, err)
	}
}

var _ ReservationUseCase = (*ReservationService)(nil)
