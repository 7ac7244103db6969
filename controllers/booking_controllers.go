package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

type BookingController struct {
	DB     *gorm.DB
	Orders *services.PaymentOrderService
}

func NewBookingController(db *gorm.DB, gateway services.PaymentGateway) *BookingController {
	return &BookingController{
		DB:     db,
		Orders: services.NewPaymentOrderService(db, gateway),
	}
}

type orderCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email"`
}

type plantItemRequest struct {
	PlantID  string          `json:"plantId" binding:"required"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity" binding:"required,min=1"`
	Price    decimal.Decimal `json:"price"`
}

type plantBookingRequest struct {
	Customer        orderCustomerRequest `json:"customer" binding:"required"`
	RecipientName   string               `json:"recipientName"`
	RecipientPhone  string               `json:"recipientPhone"`
	DeliveryAddress string               `json:"deliveryAddress"`
	DeliveryDate    string               `json:"deliveryDate"`
	IsGift          bool                 `json:"isGift"`
	Items           []plantItemRequest   `json:"orderData"`
	TotalAmount     decimal.Decimal      `json:"totalAmount"`
	TermsAgreed     bool                 `json:"termsAgreed"`
}

type restBookingRequest struct {
	Customer      orderCustomerRequest `json:"customer" binding:"required"`
	RestHouseCode string               `json:"restHouseCode" binding:"required"`
	CheckInDate   string               `json:"checkInDate" binding:"required"`
	CheckOutDate  string               `json:"checkOutDate" binding:"required"`
	Overnight     bool                 `json:"overnight"`
	GuestCount    int                  `json:"guestCount"`
	PricePerNight decimal.Decimal      `json:"pricePerNight"`
	TotalPrice    decimal.Decimal      `json:"totalPrice"`
	TermsAgreed   bool                 `json:"termsAgreed"`
}

type appointmentRequest struct {
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot"`
}

type horseBookingRequest struct {
	Customer         orderCustomerRequest `json:"customer" binding:"required"`
	CourseCode       string               `json:"courseCode" binding:"required"`
	CourseName       string               `json:"courseName"`
	NumberOfSessions int                  `json:"numberOfSessions" binding:"required,min=1"`
	PricePerSession  decimal.Decimal      `json:"pricePerSession"`
	TotalPrice       decimal.Decimal      `json:"totalPrice"`
	Appointments     []appointmentRequest `json:"appointments"`
	TermsAgreed      bool                 `json:"termsAgreed"`
}

// CreatePlantBooking handles POST /api/bookings/plants
func (bc *BookingController) CreatePlantBooking(c *gin.Context) {
	var req plantBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("بيانات الطلب غير مكتملة"))
		return
	}

	result, err := createPlantBooking(bc.Orders, &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	respondCreatedOrder(c, result)
}

// CreateRestBooking handles POST /api/bookings/rest
func (bc *BookingController) CreateRestBooking(c *gin.Context) {
	var req restBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("بيانات الحجز غير مكتملة"))
		return
	}

	result, err := createRestBooking(bc.Orders, &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	respondCreatedOrder(c, result)
}

// CreateHorseBooking handles POST /api/bookings/horse
func (bc *BookingController) CreateHorseBooking(c *gin.Context) {
	var req horseBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("بيانات الحجز غير مكتملة"))
		return
	}

	result, err := createHorseBooking(bc.Orders, &req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	respondCreatedOrder(c, result)
}

func createPlantBooking(orders *services.PaymentOrderService, req *plantBookingRequest) (*services.CreateOrderResult, error) {
	if !req.TermsAgreed {
		return nil, errTermsNotAgreed
	}
	if len(req.Items) == 0 {
		return nil, errEmptyOrder
	}

	order := &models.PlantOrder{
		RecipientName:   req.RecipientName,
		RecipientPhone:  req.RecipientPhone,
		DeliveryAddress: req.DeliveryAddress,
		IsGift:          req.IsGift,
		TotalAmount:     req.TotalAmount,
	}
	if req.DeliveryDate != "" {
		date, err := parseBookingDate(req.DeliveryDate)
		if err != nil {
			return nil, errInvalidDate
		}
		order.DeliveryDate = &date
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.PlantOrderItem{
			PlantID:  item.PlantID,
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	return orders.CreatePlantOrder(order, services.OrderCustomer(req.Customer))
}

func createRestBooking(orders *services.PaymentOrderService, req *restBookingRequest) (*services.CreateOrderResult, error) {
	if !req.TermsAgreed {
		return nil, errTermsNotAgreed
	}

	checkIn, err := parseBookingDate(req.CheckInDate)
	if err != nil {
		return nil, errInvalidDate
	}
	checkOut, err := parseBookingDate(req.CheckOutDate)
	if err != nil {
		return nil, errInvalidDate
	}
	if !checkOut.After(checkIn) && !req.Overnight {
		return nil, errInvalidDate
	}

	reservation := &models.RestReservation{
		RestHouseCode: req.RestHouseCode,
		CheckInDate:   checkIn,
		CheckOutDate:  checkOut,
		Overnight:     req.Overnight,
		GuestCount:    req.GuestCount,
		PricePerNight: req.PricePerNight,
		TotalAmount:   req.TotalPrice,
	}
	if reservation.GuestCount <= 0 {
		reservation.GuestCount = 1
	}

	return orders.CreateRestReservation(reservation, services.OrderCustomer(req.Customer))
}

func createHorseBooking(orders *services.PaymentOrderService, req *horseBookingRequest) (*services.CreateOrderResult, error) {
	if !req.TermsAgreed {
		return nil, errTermsNotAgreed
	}
	if len(req.Appointments) == 0 {
		return nil, errEmptyAppointments
	}

	session := &models.HorseTrainingSession{
		CourseCode:       req.CourseCode,
		CourseName:       req.CourseName,
		NumberOfSessions: req.NumberOfSessions,
		PricePerSession:  req.PricePerSession,
		TotalAmount:      req.TotalPrice,
	}
	for _, appointment := range req.Appointments {
		date, err := parseBookingDate(appointment.Date)
		if err != nil {
			return nil, errInvalidDate
		}
		session.Appointments = append(session.Appointments, models.TrainingAppointment{
			Date:     date,
			TimeSlot: appointment.TimeSlot,
		})
	}

	return orders.CreateHorseTraining(session, services.OrderCustomer(req.Customer))
}

// Booking forms send plain dates; gateway callbacks send RFC3339.
func parseBookingDate(value string) (time.Time, error) {
	if date, err := time.Parse("2006-01-02", value); err == nil {
		return date, nil
	}
	return time.Parse(time.RFC3339, value)
}

var (
	errTermsNotAgreed    = errors.New("يجب الموافقة على الشروط والأحكام")
	errEmptyOrder        = errors.New("قائمة الطلبات فارغة")
	errEmptyAppointments = errors.New("قائمة المواعيد فارغة")
	errInvalidDate       = errors.New("تاريخ الحجز غير صالح")
)

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAmountMismatch):
		utils.RespondError(c, http.StatusBadRequest, errors.New("المبلغ الإجمالي غير مطابق لقيمة الطلب"))
	case errors.Is(err, services.ErrInvalidRequest):
		utils.RespondError(c, http.StatusBadRequest, errors.New("بيانات الطلب غير صالحة"))
	case errors.Is(err, errTermsNotAgreed), errors.Is(err, errEmptyOrder),
		errors.Is(err, errEmptyAppointments), errors.Is(err, errInvalidDate):
		utils.RespondError(c, http.StatusBadRequest, err)
	default:
		utils.ErrorLogger.Printf("Unexpected error creating booking: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, errors.New("حدث خطأ غير متوقع، حاول مرة أخرى"))
	}
}

func respondCreatedOrder(c *gin.Context, result *services.CreateOrderResult) {
	if !result.LinkAvailable {
		// Booking saved but the gateway is down: partial success so the
		// booking is not lost and payment can be retried later.
		c.JSON(http.StatusCreated, gin.H{
			"success":    false,
			"message":    "تم إنشاء الحجز، لكن تعذر إنشاء رابط الدفع حالياً",
			"paymentId":  result.Booking.BookingID(),
			"amount":     result.Amount,
			"currency":   "SAR",
			"user":       result.User,
			"paymentUrl": "",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "تم إنشاء الحجز بنجاح",
		"paymentId":  result.Booking.BookingID(),
		"paymentUrl": result.PaymentURL,
		"reference":  result.Reference,
		"sessionId":  result.SessionID,
		"uuid":       result.UUID,
		"amount":     result.Amount,
		"currency":   "SAR",
		"user":       result.User,
		"expiresAt":  result.ExpiresAt,
	})
}

// createOrderRequest is the generic payload of /api/payment/create-order.
type createOrderRequest struct {
	BookingType string               `json:"bookingType" binding:"required"`
	Amount      decimal.Decimal      `json:"amount"`
	Description string               `json:"description"`
	Customer    orderCustomerRequest `json:"customer" binding:"required"`
	Plants      *plantBookingRequest `json:"plants,omitempty"`
	Rest        *restBookingRequest  `json:"rest,omitempty"`
	Horse       *horseBookingRequest `json:"horse,omitempty"`
}

func (pc *PaymentController) createBooking(req *createOrderRequest) (*services.CreateOrderResult, error) {
	switch req.BookingType {
	case models.BookingTypePlants:
		if req.Plants == nil {
			return nil, services.ErrInvalidRequest
		}
		req.Plants.Customer = req.Customer
		if !req.Amount.IsZero() {
			req.Plants.TotalAmount = req.Amount
		}
		return createPlantBooking(pc.Orders, req.Plants)
	case models.BookingTypeRest:
		if req.Rest == nil {
			return nil, services.ErrInvalidRequest
		}
		req.Rest.Customer = req.Customer
		if !req.Amount.IsZero() {
			req.Rest.TotalPrice = req.Amount
		}
		return createRestBooking(pc.Orders, req.Rest)
	case models.BookingTypeHorse:
		if req.Horse == nil {
			return nil, services.ErrInvalidRequest
		}
		req.Horse.Customer = req.Customer
		if !req.Amount.IsZero() {
			req.Horse.TotalPrice = req.Amount
		}
		return createHorseBooking(pc.Orders, req.Horse)
	}
	return nil, services.ErrInvalidRequest
}
