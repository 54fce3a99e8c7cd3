package apperrors

import "errors"

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrSoldOut               = errors.New("sold out")
	ErrMissingIdempotencyKey = errors.New("missing idempotency key")
	ErrEngineUnavailable     = errors.New("admission engine unavailable")
	ErrQueueUnavailable      = errors.New("settlement queue unavailable")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInternalServerError   = errors.New("internal server error")
)
