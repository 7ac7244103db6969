package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
	PaymentStatusTimeout   = "timeout"
	PaymentStatusError     = "error"
	PaymentStatusCancelled = "cancelled"
)

// IsTerminalStatus reports whether no further automated transition may
// occur from the given payment status.
func IsTerminalStatus(status string) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusTimeout,
		PaymentStatusError, PaymentStatusCancelled:
		return true
	}
	return false
}

// BookingRepository provides persistence access over the three booking
// variants, keyed by the gateway-issued payment reference.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindByReference probes the three booking tables for a payment
// reference. References are unique across tables because they are
// issued once per payment attempt.
func (r *BookingRepository) FindByReference(reference string) (models.Booking, error) {
	if reference == "" {
		return nil, ErrBookingNotFound
	}

	var plantOrder models.PlantOrder
	err := r.db.Preload("Items").Where("payment_reference = ?", reference).First(&plantOrder).Error
	if err == nil {
		return &plantOrder, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var reservation models.RestReservation
	err = r.db.Where("payment_reference = ?", reference).First(&reservation).Error
	if err == nil {
		return &reservation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var training models.HorseTrainingSession
	err = r.db.Preload("Appointments").Where("payment_reference = ?", reference).First(&training).Error
	if err == nil {
		return &training, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return nil, ErrBookingNotFound
}

// MarkTerminalIfPending writes a terminal status with a conditional
// update so that two near-simultaneous verification calls cannot both
// win: only the call whose UPDATE matched the pending row takes effect.
func (r *BookingRepository) MarkTerminalIfPending(booking models.Booking, status string) (bool, error) {
	if !IsTerminalStatus(status) {
		return false, fmt.Errorf("refusing to write non-terminal status %q", status)
	}

	model, err := r.modelFor(booking.BookingType())
	if err != nil {
		return false, err
	}

	result := r.db.Model(model).
		Where("id = ? AND payment_status = ?", booking.BookingID(), PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// ExpirePendingBefore marks pending bookings whose payment link expired
// before the cutoff as timed out. Returns the affected references.
func (r *BookingRepository) ExpirePendingBefore(cutoff time.Time) ([]string, error) {
	references := make([]string, 0)

	var plantOrders []models.PlantOrder
	if err := r.db.Where("payment_status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		PaymentStatusPending, cutoff).Find(&plantOrders).Error; err != nil {
		return nil, err
	}
	var reservations []models.RestReservation
	if err := r.db.Where("payment_status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		PaymentStatusPending, cutoff).Find(&reservations).Error; err != nil {
		return nil, err
	}
	var trainings []models.HorseTrainingSession
	if err := r.db.Where("payment_status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		PaymentStatusPending, cutoff).Find(&trainings).Error; err != nil {
		return nil, err
	}

	bookings := make([]models.Booking, 0, len(plantOrders)+len(reservations)+len(trainings))
	for i := range plantOrders {
		bookings = append(bookings, &plantOrders[i])
	}
	for i := range reservations {
		bookings = append(bookings, &reservations[i])
	}
	for i := range trainings {
		bookings = append(bookings, &trainings[i])
	}

	for _, booking := range bookings {
		updated, err := r.MarkTerminalIfPending(booking, PaymentStatusTimeout)
		if err != nil {
			return references, err
		}
		if updated {
			references = append(references, booking.Reference())
		}
	}

	return references, nil
}

func (r *BookingRepository) modelFor(bookingType string) (interface{}, error) {
	switch bookingType {
	case models.BookingTypePlants:
		return &models.PlantOrder{}, nil
	case models.BookingTypeRest:
		return &models.RestReservation{}, nil
	case models.BookingTypeHorse:
		return &models.HorseTrainingSession{}, nil
	}
	return nil, fmt.Errorf("unknown booking type %q", bookingType)
}
