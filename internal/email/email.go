package email

import (
	"context"
	"fmt"

	"github.com/Mnunley1/gearboxe-reservations/internal/kafka"
)

// Sender delivers registration notifications. Template rendering and SMTP
// transport live in the main application's mailer; this process only hands off.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.RegistrationEvent) error {
	switch event.Type {
	case "confirmation_scheduled", "confirmation_resend":
		fmt.Printf("send confirmation for registration %s (event %s, token %s)\n", event.RegistrationID, event.EventID, event.CheckInToken)
	default:
		fmt.Printf("send %s notice for registration %s (event %s)\n", event.Type, event.RegistrationID, event.EventID)
	}
	return nil
}
