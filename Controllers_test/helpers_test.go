package Controllers_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/controllers"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

// stubGateway stands in for NoqoodyPay in controller tests. All state is
// behind the mutex because the watcher test polls from another goroutine.
type stubGateway struct {
	mu        sync.Mutex
	detail    *services.TransactionStatus
	statusErr error
	createErr error

	createCalls int
	statusCalls int
}

func (s *stubGateway) setDetail(reference, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detail == nil {
		s.detail = &services.TransactionStatus{}
	}
	if reference != "" {
		s.detail.Reference = reference
	}
	s.detail.Status = status
}

func (s *stubGateway) snapshot() (*services.TransactionStatus, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	if s.detail == nil {
		return nil, services.ErrTransactionNotFound
	}
	copied := *s.detail
	return &copied, nil
}

func (s *stubGateway) CreatePaymentOrder(reference string, amount decimal.Decimal, description string, customer services.PaymentCustomer) (*services.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &services.PaymentOrder{
		Reference:  reference,
		SessionID:  "sess-test",
		UUID:       "uuid-test",
		PaymentURL: "https://pay.test/" + reference,
		Amount:     amount,
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}, nil
}

func (s *stubGateway) GetTransactionStatus(reference string) (*services.TransactionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	return s.snapshot()
}

func (s *stubGateway) GetTransactionStatusBySession(sessionID, uuid string) (*services.TransactionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	return s.snapshot()
}

func (s *stubGateway) statusCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls
}

func (s *stubGateway) ListPaymentChannels(sessionID, uuid string) ([]services.PaymentChannel, error) {
	return []services.PaymentChannel{{ID: "1", Name: "Debit Card"}}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.PlantOrder{},
		&models.PlantOrderItem{},
		&models.RestReservation{},
		&models.HorseTrainingSession{},
		&models.TrainingAppointment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// setupRouter wires the payment and booking endpoints the way the main
// router does, against a stubbed gateway.
func setupRouter(db *gorm.DB, gateway services.PaymentGateway) *gin.Engine {
	r := gin.New()

	bookingCtrl := controllers.NewBookingController(db, gateway)
	paymentCtrl := controllers.NewPaymentController(db, gateway)

	r.POST("/api/bookings/plants", bookingCtrl.CreatePlantBooking)
	r.POST("/api/bookings/rest", bookingCtrl.CreateRestBooking)
	r.POST("/api/bookings/horse", bookingCtrl.CreateHorseBooking)

	r.POST("/api/payment/create-order", paymentCtrl.CreateOrder)
	r.GET("/api/payment/verify/:reference", paymentCtrl.VerifyPayment)
	r.POST("/api/payment/verify-status", paymentCtrl.VerifyStatus)
	r.POST("/api/payment/payment-channels", paymentCtrl.PaymentChannels)
	r.GET("/api/payment/verify-and-update/:reference", paymentCtrl.VerifyAndUpdate)

	return r
}

func seedPendingOrder(t *testing.T, db *gorm.DB, reference string) *models.PlantOrder {
	t.Helper()

	user := models.User{Name: "Ahmed", Phone: "0501234567", Role: "client"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	order := models.PlantOrder{
		UserID:           user.ID,
		TotalAmount:      decimal.NewFromInt(150),
		PaymentReference: models.NullableReference(reference),
		PaymentStatus:    "pending",
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seeding order: %v", err)
	}
	return &order
}
