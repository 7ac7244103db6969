package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/realtime"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

// PaymentOrderService orchestrates booking validation, user resolution
// and payment-link creation against the gateway.
type PaymentOrderService struct {
	db      *gorm.DB
	gateway PaymentGateway
	users   *UserService
}

func NewPaymentOrderService(db *gorm.DB, gateway PaymentGateway) *PaymentOrderService {
	return &PaymentOrderService{
		db:      db,
		gateway: gateway,
		users:   NewUserService(db),
	}
}

// OrderCustomer is the paying customer as submitted by the booking form.
type OrderCustomer struct {
	Name  string
	Phone string
	Email string
}

// CreateOrderResult is returned to the booking endpoints. LinkAvailable
// is false when the booking was persisted but the gateway could not
// issue a payment link (degrade-gracefully policy: a booking is never
// lost to a gateway outage).
type CreateOrderResult struct {
	Booking       models.Booking
	User          *models.User
	Reference     string
	SessionID     string
	UUID          string
	PaymentURL    string
	Amount        decimal.Decimal
	ExpiresAt     *time.Time
	LinkAvailable bool
}

// GeneratePaymentReference issues a new payment reference. One reference
// per payment attempt; the DIRW prefix keeps gateway statements readable.
func GeneratePaymentReference() string {
	return "DIRW-" + strings.ToUpper(uuid.New().String()[:8])
}

// CreatePlantOrder validates and persists a plant order and creates its
// payment link.
func (s *PaymentOrderService) CreatePlantOrder(order *models.PlantOrder, customer OrderCustomer) (*CreateOrderResult, error) {
	if len(order.Items) == 0 {
		return nil, ErrInvalidRequest
	}
	if !order.TotalAmount.Equal(order.ItemsTotal()) {
		return nil, ErrAmountMismatch
	}

	return s.createOrder(order, order.TotalAmount, "طلب نباتات - دروازة", customer, func(reference string, expiresAt *time.Time) error {
		order.PaymentReference = models.NullableReference(reference)
		order.ExpiresAt = expiresAt
		return s.db.Create(order).Error
	})
}

// CreateRestReservation validates and persists a rest-house reservation
// and creates its payment link.
func (s *PaymentOrderService) CreateRestReservation(reservation *models.RestReservation, customer OrderCustomer) (*CreateOrderResult, error) {
	if !reservation.TotalAmount.Equal(reservation.StayTotal()) {
		return nil, ErrAmountMismatch
	}

	return s.createOrder(reservation, reservation.TotalAmount, "حجز استراحة - دروازة", customer, func(reference string, expiresAt *time.Time) error {
		reservation.PaymentReference = models.NullableReference(reference)
		reservation.ExpiresAt = expiresAt
		return s.db.Create(reservation).Error
	})
}

// CreateHorseTraining validates and persists a horse-training booking
// and creates its payment link.
func (s *PaymentOrderService) CreateHorseTraining(session *models.HorseTrainingSession, customer OrderCustomer) (*CreateOrderResult, error) {
	if len(session.Appointments) == 0 {
		return nil, ErrInvalidRequest
	}
	if !session.TotalAmount.Equal(session.CourseTotal()) {
		return nil, ErrAmountMismatch
	}

	return s.createOrder(session, session.TotalAmount, "حجز تدريب فروسية - دروازة", customer, func(reference string, expiresAt *time.Time) error {
		session.PaymentReference = models.NullableReference(reference)
		session.ExpiresAt = expiresAt
		return s.db.Create(session).Error
	})
}

func (s *PaymentOrderService) createOrder(booking models.Booking, amount decimal.Decimal, description string, customer OrderCustomer, persist func(reference string, expiresAt *time.Time) error) (*CreateOrderResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidRequest
	}

	user, err := s.users.FindOrCreateByPhone(customer.Name, customer.Phone, customer.Email)
	if err != nil {
		return nil, err
	}
	s.setOwner(booking, user.ID)

	reference := GeneratePaymentReference()

	gatewayOrder, err := s.gateway.CreatePaymentOrder(reference, amount, description, PaymentCustomer{
		Name:   customer.Name,
		Email:  customer.Email,
		Mobile: customer.Phone,
	})
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			// Persist the booking without a reference so it is not lost;
			// the payment link can be created again later.
			utils.ErrorLogger.Printf("Gateway unavailable, persisting booking without payment link: %v", err)
			if persistErr := persist("", nil); persistErr != nil {
				return nil, persistErr
			}
			return &CreateOrderResult{
				Booking:       booking,
				User:          user,
				Amount:        amount,
				LinkAvailable: false,
			}, nil
		}
		return nil, err
	}

	expiresAt := gatewayOrder.ExpiresAt
	if err := persist(gatewayOrder.Reference, &expiresAt); err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Created %s booking #%d with reference %s (%s)",
		booking.BookingType(), booking.BookingID(), gatewayOrder.Reference,
		utils.FormatCurrencySAR(amount))

	realtime.BroadcastPaymentPending(realtime.PaymentEvent{
		BookingType: booking.BookingType(),
		BookingID:   booking.BookingID(),
		Reference:   gatewayOrder.Reference,
		Status:      PaymentStatusPending,
		Amount:      amount.StringFixed(2),
	})

	return &CreateOrderResult{
		Booking:       booking,
		User:          user,
		Reference:     gatewayOrder.Reference,
		SessionID:     gatewayOrder.SessionID,
		UUID:          gatewayOrder.UUID,
		PaymentURL:    gatewayOrder.PaymentURL,
		Amount:        amount,
		ExpiresAt:     &expiresAt,
		LinkAvailable: true,
	}, nil
}

func (s *PaymentOrderService) setOwner(booking models.Booking, userID uint) {
	switch b := booking.(type) {
	case *models.PlantOrder:
		b.UserID = userID
	case *models.RestReservation:
		b.UserID = userID
	case *models.HorseTrainingSession:
		b.UserID = userID
	default:
		panic(fmt.Sprintf("unknown booking variant %T", booking))
	}
}
