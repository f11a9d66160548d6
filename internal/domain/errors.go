package domain

import "errors"

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTokenNotFound        = errors.New("check-in token not found")
	ErrEventFull            = errors.New("event is full")
	ErrAlreadyRegistered    = errors.New("vehicle already registered for this event")
	ErrAlreadyCheckedIn     = errors.New("registration already checked in")
	ErrNotPaid              = errors.New("registration is not paid")
	ErrEventStarted         = errors.New("event has already started")
	ErrUnverifiedSignature  = errors.New("webhook signature verification failed")
	ErrReservationBusy      = errors.New("another reservation for this event is in progress")
)
