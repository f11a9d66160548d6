package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID        string
	Name      string
	StartsAt  time.Time
	Capacity  int
	VendorFee decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Event) IsFull(regs []Registration, now time.Time, holdTTL time.Duration) bool {
	return ActiveCount(regs, now, holdTTL) >= e.Capacity
}

// CapacityStatus is the availability snapshot exposed to clients.
type CapacityStatus struct {
	Capacity  int  `json:"capacity"`
	Active    int  `json:"active"`
	Available int  `json:"available"`
	IsFull    bool `json:"is_full"`
}
