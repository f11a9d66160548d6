package checkin

import (
	"context"
	"errors"

	"github.com/Mnunley1/gearboxe-reservations/internal/clock"
	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/monitoring"
	"github.com/Mnunley1/gearboxe-reservations/internal/repository"
)

// State describes what a scanned token resolves to.
type State string

const (
	StateNotFound           State = "not_found"
	StateUnpaid             State = "unpaid"
	StateCompletedUnchecked State = "completed_unchecked"
	StateCompletedChecked   State = "completed_checked"
)

type CheckinUseCase interface {
	Lookup(ctx context.Context, token string) (State, *domain.Registration, error)
	CheckIn(ctx context.Context, token, staffID string) (*domain.Registration, error)
}

type CheckinService struct {
	registrations repository.RegistrationRepository
	clock         clock.Clock
}

func NewCheckinService(registrations repository.RegistrationRepository, clk clock.Clock) *CheckinService {
	return &CheckinService{registrations: registrations, clock: clk}
}

// Lookup resolves a token to its check-in state without mutating anything.
func (s *CheckinService) Lookup(ctx context.Context, token string) (State, *domain.Registration, error) {
	reg, err := s.registrations.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return StateNotFound, nil, nil
		}
		return "", nil, err
	}
	// Tokens are only minted on completion, but check anyway.
	if reg.PaymentStatus != domain.PaymentStatusCompleted {
		return StateUnpaid, reg, nil
	}
	if reg.CheckedIn {
		return StateCompletedChecked, reg, nil
	}
	return StateCompletedUnchecked, reg, nil
}

// CheckIn performs the one-way transition. The write is conditioned on the row
// still being unchecked, so two simultaneous scans produce exactly one first
// check-in; the loser resolves to AlreadyCheckedIn.
func (s *CheckinService) CheckIn(ctx context.Context, token, staffID string) (*domain.Registration, error) {
	state, _, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	switch state {
	case StateNotFound:
		monitoring.TrackCheckIn("not_found")
		return nil, domain.ErrTokenNotFound
	case StateUnpaid:
		monitoring.TrackCheckIn("not_paid")
		return nil, domain.ErrNotPaid
	case StateCompletedChecked:
		monitoring.TrackCheckIn("already_checked_in")
		return nil, domain.ErrAlreadyCheckedIn
	}

	reg, err := s.registrations.CheckIn(ctx, token, staffID, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			// Raced with another scanner between lookup and write.
			monitoring.TrackCheckIn("already_checked_in")
			return nil, domain.ErrAlreadyCheckedIn
		}
		return nil, err
	}

	monitoring.TrackCheckIn("ok")
	return reg, nil
}

var _ CheckinUseCase = (*CheckinService)(nil)
