package models

import "github.com/shopspring/decimal"

// Booking types as stored in payment references and websocket events.
const (
	BookingTypePlants = "plants"
	BookingTypeRest   = "rest"
	BookingTypeHorse  = "horse"
)

// Booking is the common handle over the three booking variants. A booking
// starts as 'pending' and is moved to exactly one terminal payment status
// by the reconciliation service.
type Booking interface {
	BookingID() uint
	BookingType() string
	BookingUserID() uint
	Reference() string
	Status() string
	Amount() decimal.Decimal
}

// NullableReference is the stored form of a payment reference. A booking
// created while the gateway is down has none; storing NULL instead of ""
// keeps the unique index from rejecting a second reference-less booking.
func NullableReference(reference string) *string {
	if reference == "" {
		return nil
	}
	return &reference
}

// ReferenceString unwraps a stored payment reference, "" when absent.
func ReferenceString(reference *string) string {
	if reference == nil {
		return ""
	}
	return *reference
}
