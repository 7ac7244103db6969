package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type HorseTrainingSession struct {
	ID               uint                  `gorm:"primaryKey" json:"id"`
	UserID           uint                  `gorm:"not null;index" json:"userId"`
	User             User                  `gorm:"foreignKey:UserID" json:"user"`
	CourseCode       string                `gorm:"type:varchar(64);not null" json:"courseCode"`
	CourseName       string                `gorm:"type:varchar(255)" json:"courseName"`
	NumberOfSessions int                   `gorm:"not null" json:"numberOfSessions"`
	PricePerSession  decimal.Decimal       `gorm:"type:decimal(10,2);not null" json:"pricePerSession"`
	TotalAmount      decimal.Decimal       `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
	PaymentReference *string               `gorm:"type:varchar(64);uniqueIndex" json:"paymentReference"`
	PaymentStatus    string                `gorm:"type:varchar(20);not null;default:'pending'" json:"paymentStatus"`
	ExpiresAt        *time.Time            `json:"expiresAt,omitempty"`
	Appointments     []TrainingAppointment `gorm:"foreignKey:SessionID" json:"appointments"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

type TrainingAppointment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"sessionId"`
	Date      time.Time `gorm:"not null" json:"date"`
	TimeSlot  string    `gorm:"type:varchar(32)" json:"timeSlot"`
}

func (h *HorseTrainingSession) BookingID() uint         { return h.ID }
func (h *HorseTrainingSession) BookingType() string     { return BookingTypeHorse }
func (h *HorseTrainingSession) BookingUserID() uint     { return h.UserID }
func (h *HorseTrainingSession) Reference() string       { return ReferenceString(h.PaymentReference) }
func (h *HorseTrainingSession) Status() string          { return h.PaymentStatus }
func (h *HorseTrainingSession) Amount() decimal.Decimal { return h.TotalAmount }

// CourseTotal is the course price times the number of booked sessions.
func (h *HorseTrainingSession) CourseTotal() decimal.Decimal {
	return h.PricePerSession.Mul(decimal.NewFromInt(int64(h.NumberOfSessions)))
}
