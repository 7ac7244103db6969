package services

import "errors"

// Domain errors shared between the payment services and the HTTP layer.
// Gateway failures are translated into these at the client boundary so
// callers never see raw HTTP errors.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrAmountMismatch      = errors.New("declared total does not match computed amount")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrTransactionNotFound = errors.New("transaction not found at gateway")
)
