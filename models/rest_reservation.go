package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RestReservation struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;index" json:"userId"`
	User             User            `gorm:"foreignKey:UserID" json:"user"`
	RestHouseCode    string          `gorm:"type:varchar(64);not null" json:"restHouseCode"`
	CheckInDate      time.Time       `gorm:"not null" json:"checkInDate"`
	CheckOutDate     time.Time       `gorm:"not null" json:"checkOutDate"`
	Overnight        bool            `gorm:"default:false" json:"overnight"`
	GuestCount       int             `gorm:"default:1" json:"guestCount"`
	PricePerNight    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"pricePerNight"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
	PaymentReference *string         `gorm:"type:varchar(64);uniqueIndex" json:"paymentReference"`
	PaymentStatus    string          `gorm:"type:varchar(20);not null;default:'pending'" json:"paymentStatus"`
	ExpiresAt        *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (r *RestReservation) BookingID() uint         { return r.ID }
func (r *RestReservation) BookingType() string     { return BookingTypeRest }
func (r *RestReservation) BookingUserID() uint     { return r.UserID }
func (r *RestReservation) Reference() string       { return ReferenceString(r.PaymentReference) }
func (r *RestReservation) Status() string          { return r.PaymentStatus }
func (r *RestReservation) Amount() decimal.Decimal { return r.TotalAmount }

// Nights counts billable nights; a same-day stay without the overnight
// flag still bills one night.
func (r *RestReservation) Nights() int {
	nights := int(r.CheckOutDate.Sub(r.CheckInDate).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	return nights
}

// StayTotal computes the reservation price the same way the booking form
// does: nights times the nightly rate.
func (r *RestReservation) StayTotal() decimal.Decimal {
	return r.PricePerNight.Mul(decimal.NewFromInt(int64(r.Nights())))
}
