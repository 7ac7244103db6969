package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/utils"
)

type PaymentController struct {
	DB           *gorm.DB
	Gateway      services.PaymentGateway
	Orders       *services.PaymentOrderService
	Verification *services.VerificationService
}

func NewPaymentController(db *gorm.DB, gateway services.PaymentGateway) *PaymentController {
	return &PaymentController{
		DB:           db,
		Gateway:      gateway,
		Orders:       services.NewPaymentOrderService(db, gateway),
		Verification: services.NewVerificationService(db, gateway),
	}
}

// CreateOrder handles POST /api/payment/create-order: one endpoint for
// all three booking variants, dispatched on bookingType.
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("بيانات الطلب غير صالحة"))
		return
	}

	result, err := pc.createBooking(&req)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	respondCreatedOrder(c, result)
}

// VerifyPayment handles GET /api/payment/verify/:reference. It
// reconciles the booking and returns the gateway snapshot. An unknown
// reference yields a non-success body, never a 500, and mutates nothing.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	reference := c.Param("reference")

	result, err := pc.Verification.VerifyAndUpdate(reference)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("لم يتم العثور على الحجز"))
			return
		}
		if errors.Is(err, services.ErrTransactionNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success":           false,
				"paymentSuccessful": false,
				"status":            services.PaymentStatusPending,
				"message":           "لم يتم العثور على عملية الدفع لدى بوابة الدفع",
				"reference":         reference,
			})
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, errors.New("حدث خطأ أثناء التحقق من الدفع"))
		return
	}

	respondVerification(c, result)
}

// VerifyStatus handles POST /api/payment/verify-status with a session
// and uuid pair. Missing fields are rejected before any gateway call.
func (pc *PaymentController) VerifyStatus(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		UUID      string `json:"uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || (req.SessionID == "" && req.UUID == "") {
		utils.RespondError(c, http.StatusBadRequest, errors.New("معرف الجلسة مطلوب"))
		return
	}
	if req.SessionID == "" || req.UUID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("معرف الجلسة والرمز المميز مطلوبان معاً"))
		return
	}

	result, err := pc.Verification.VerifyAndUpdateBySession(req.SessionID, req.UUID)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("لم يتم العثور على الحجز"))
			return
		}
		if errors.Is(err, services.ErrTransactionNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success":           false,
				"paymentSuccessful": false,
				"status":            services.PaymentStatusPending,
				"message":           "لم يتم العثور على عملية الدفع لدى بوابة الدفع",
			})
			return
		}
		utils.RespondError(c, http.StatusBadRequest, errors.New("بيانات الجلسة غير صالحة"))
		return
	}

	respondVerification(c, result)
}

// PaymentChannels handles POST /api/payment/payment-channels.
func (pc *PaymentController) PaymentChannels(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		UUID      string `json:"uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" || req.UUID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("معرف الجلسة مطلوب"))
		return
	}

	channels, err := pc.Gateway.ListPaymentChannels(req.SessionID, req.UUID)
	if err != nil {
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("تعذر الاتصال ببوابة الدفع"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "قنوات الدفع المتاحة", gin.H{
		"channels": channels,
	})
}

// VerifyAndUpdate handles GET /api/payment/verify-and-update/:reference,
// the endpoint polled by the payment watcher. The body is deliberately
// minimal: just the reconciled payment status.
func (pc *PaymentController) VerifyAndUpdate(c *gin.Context) {
	reference := c.Param("reference")

	result, err := pc.Verification.VerifyAndUpdate(reference)
	if err != nil {
		if errors.Is(err, services.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"paymentStatus": "", "message": "لم يتم العثور على الحجز"})
			return
		}
		if errors.Is(err, services.ErrTransactionNotFound) {
			c.JSON(http.StatusOK, gin.H{"paymentStatus": services.PaymentStatusPending})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"paymentStatus": services.PaymentStatusError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"paymentStatus": result.PaymentStatus})
}

func respondVerification(c *gin.Context, result *services.VerificationResult) {
	message := "عملية الدفع قيد الانتظار"
	switch result.PaymentStatus {
	case services.PaymentStatusPaid:
		message = "تم الدفع بنجاح"
	case services.PaymentStatusFailed:
		message = "فشلت عملية الدفع"
	case services.PaymentStatusTimeout:
		message = "انتهت مهلة انتظار الدفع"
	case services.PaymentStatusError:
		message = "تعذر التحقق من حالة الدفع"
	case services.PaymentStatusCancelled:
		message = "تم إلغاء الحجز"
	}

	response := gin.H{
		"success":           result.PaymentStatus != services.PaymentStatusError,
		"paymentSuccessful": result.PaymentStatus == services.PaymentStatusPaid,
		"status":            result.PaymentStatus,
		"message":           message,
		"reference":         result.Reference,
	}

	if result.Detail != nil {
		response["data"] = gin.H{
			"transactionId":      result.Detail.TransactionID,
			"amount":             result.Detail.Amount,
			"transactionDate":    result.Detail.TransactionDate,
			"serviceName":        result.Detail.ServiceName,
			"mobile":             result.Detail.Mobile,
			"transactionMessage": result.Detail.Message,
			"pun":                result.Detail.PUN,
			"description":        result.Detail.Description,
			"invoiceNo":          result.Detail.InvoiceNo,
		}
	}

	c.JSON(http.StatusOK, response)
}
