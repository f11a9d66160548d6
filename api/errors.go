package api

import (
	"errors"
	"net/http"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
)

// statusForError maps domain sentinels onto HTTP status codes. Conflicts and
// invalid states are user-actionable; busy reservations ask the client to
// retry.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrRegistrationNotFound),
		errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEventFull),
		errors.Is(err, domain.ErrAlreadyRegistered),
		errors.Is(err, domain.ErrAlreadyCheckedIn):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotPaid),
		errors.Is(err, domain.ErrEventStarted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrReservationBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnverifiedSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
