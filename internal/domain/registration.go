package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// DefaultHoldTTL bounds how long a pending registration reserves a slot.
const DefaultHoldTTL = 15 * time.Minute

type Registration struct {
	ID              string
	EventID         string
	VehicleID       string
	UserID          string
	PaymentStatus   PaymentStatus
	ExpiresAt       *time.Time
	StripePaymentID string
	CheckInToken    string
	CheckedIn       bool
	CheckedInAt     *time.Time
	CheckedInBy     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActiveAt reports whether the registration counts against event capacity at now.
// Completed registrations always count. Pending registrations count until their
// lease runs out; rows written before expires_at existed fall back to
// created_at + holdTTL.
func (r Registration) ActiveAt(now time.Time, holdTTL time.Duration) bool {
	switch r.PaymentStatus {
	case PaymentStatusCompleted:
		return true
	case PaymentStatusPending:
		if r.ExpiresAt != nil {
			return r.ExpiresAt.After(now)
		}
		return r.CreatedAt.After(now.Add(-holdTTL))
	default:
		return false
	}
}

// ActiveCount returns how many registrations currently hold a slot.
func ActiveCount(regs []Registration, now time.Time, holdTTL time.Duration) int {
	count := 0
	for _, r := range regs {
		if r.ActiveAt(now, holdTTL) {
			count++
		}
	}
	return count
}
