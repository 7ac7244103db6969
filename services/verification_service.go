package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/realtime"
)

// VerificationService reconciles gateway transaction status into booking
// records. Each booking transitions from pending to a terminal status
// exactly once; repeat verifications return the persisted status without
// touching the gateway.
type VerificationService struct {
	db      *gorm.DB
	gateway PaymentGateway
	repo    *BookingRepository

	sweepInterval time.Duration
	stopSweeper   chan struct{}
}

func NewVerificationService(db *gorm.DB, gateway PaymentGateway) *VerificationService {
	return &VerificationService{
		db:            db,
		gateway:       gateway,
		repo:          NewBookingRepository(db),
		sweepInterval: 5 * time.Minute,
		stopSweeper:   make(chan struct{}),
	}
}

// VerificationResult reports the reconciled payment status together with
// the gateway snapshot that produced it. Detail is nil when the gateway
// was not consulted (already-terminal bookings, gateway outage).
type VerificationResult struct {
	PaymentStatus string
	Reference     string
	BookingType   string
	AlreadyFinal  bool
	Detail        *TransactionStatus
}

// VerifyAndUpdate fetches the gateway status for a reference and applies
// it to the booking. Terminal statuses are written at most once; a
// gateway outage yields status "error" without persisting anything, so a
// transient failure can never permanently fail a booking.
func (s *VerificationService) VerifyAndUpdate(reference string) (*VerificationResult, error) {
	booking, err := s.repo.FindByReference(reference)
	if err != nil {
		return nil, err
	}

	// Idempotence guard: once terminal, the persisted status is the
	// answer and the gateway is not consulted again.
	if IsTerminalStatus(booking.Status()) {
		return &VerificationResult{
			PaymentStatus: booking.Status(),
			Reference:     reference,
			BookingType:   booking.BookingType(),
			AlreadyFinal:  true,
		}, nil
	}

	detail, err := s.gateway.GetTransactionStatus(reference)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, err
		}
		// Transient gateway failure: report error, persist nothing.
		return &VerificationResult{
			PaymentStatus: PaymentStatusError,
			Reference:     reference,
			BookingType:   booking.BookingType(),
		}, nil
	}

	return s.applyStatus(booking, reference, detail)
}

// VerifyAndUpdateBySession resolves the transaction by checkout session
// and uuid, then reconciles the referenced booking the same way.
func (s *VerificationService) VerifyAndUpdateBySession(sessionID, uuid string) (*VerificationResult, error) {
	if sessionID == "" || uuid == "" {
		return nil, ErrInvalidRequest
	}

	detail, err := s.gateway.GetTransactionStatusBySession(sessionID, uuid)
	if err != nil {
		if err == ErrTransactionNotFound {
			return nil, err
		}
		return &VerificationResult{PaymentStatus: PaymentStatusError}, nil
	}

	booking, err := s.repo.FindByReference(detail.Reference)
	if err != nil {
		return nil, err
	}

	if IsTerminalStatus(booking.Status()) {
		return &VerificationResult{
			PaymentStatus: booking.Status(),
			Reference:     detail.Reference,
			BookingType:   booking.BookingType(),
			AlreadyFinal:  true,
			Detail:        detail,
		}, nil
	}

	return s.applyStatus(booking, detail.Reference, detail)
}

func (s *VerificationService) applyStatus(booking models.Booking, reference string, detail *TransactionStatus) (*VerificationResult, error) {
	mapped := MapTransactionStatus(detail.Status)

	result := &VerificationResult{
		PaymentStatus: mapped,
		Reference:     reference,
		BookingType:   booking.BookingType(),
		Detail:        detail,
	}

	// Non-terminal gateway statuses leave the booking pending with no
	// persistence write.
	if !IsTerminalStatus(mapped) {
		return result, nil
	}

	updated, err := s.repo.MarkTerminalIfPending(booking, mapped)
	if err != nil {
		return nil, err
	}

	if !updated {
		// Lost the conditional update: another verification landed
		// first. Report what was actually persisted.
		current, err := s.repo.FindByReference(reference)
		if err != nil {
			return nil, err
		}
		result.PaymentStatus = current.Status()
		result.AlreadyFinal = true
		return result, nil
	}

	log.Printf("Reconciled %s booking #%d to %s (reference %s)",
		booking.BookingType(), booking.BookingID(), mapped, reference)

	realtime.BroadcastPaymentUpdate(realtime.PaymentEvent{
		BookingType: booking.BookingType(),
		BookingID:   booking.BookingID(),
		Reference:   reference,
		Status:      mapped,
	})

	return result, nil
}

// StartExpirySweeper launches the goroutine that times out pending
// bookings whose payment link has expired.
func (s *VerificationService) StartExpirySweeper() {
	go s.sweepLoop()
	log.Println("Payment expiry sweeper started")
}

// StopExpirySweeper stops the sweeper goroutine.
func (s *VerificationService) StopExpirySweeper() {
	close(s.stopSweeper)
}

func (s *VerificationService) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepExpired()
		case <-s.stopSweeper:
			return
		}
	}
}

// SweepExpired times out pending bookings past their link expiry and
// notifies dashboard clients.
func (s *VerificationService) SweepExpired() {
	references, err := s.repo.ExpirePendingBefore(time.Now())
	if err != nil {
		log.Printf("Error sweeping expired payments: %v", err)
		return
	}

	for _, reference := range references {
		log.Printf("Payment %s timed out", reference)
		realtime.BroadcastPaymentUpdate(realtime.PaymentEvent{
			Reference: reference,
			Status:    PaymentStatusTimeout,
		})
	}
}
