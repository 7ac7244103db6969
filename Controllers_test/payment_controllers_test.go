package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
)

func TestVerifyStatus_EmptyBodyRejectedBeforeGateway(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{}
	r := setupRouter(db, gateway)

	bodies := []string{``, `{}`, `{"sessionId": "sess-1"}`, `{"uuid": "uuid-1"}`}
	for _, body := range bodies {
		req, _ := http.NewRequest("POST", "/api/payment/verify-status", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}

	// Validation happens before any gateway traffic.
	assert.Equal(t, 0, gateway.statusCalls)
}

func TestVerifyStatus_ReconcilesBooking(t *testing.T) {
	db := setupTestDB(t)
	seedPendingOrder(t, db, "DIRW-SESS1")
	gateway := &stubGateway{detail: &services.TransactionStatus{
		Reference: "DIRW-SESS1",
		Status:    "Success",
		Amount:    "150.00",
	}}
	r := setupRouter(db, gateway)

	body := `{"sessionId": "sess-1", "uuid": "uuid-1"}`
	req, _ := http.NewRequest("POST", "/api/payment/verify-status", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, true, resp["paymentSuccessful"])
	assert.Equal(t, "paid", resp["status"])

	var order models.PlantOrder
	db.Where("payment_reference = ?", "DIRW-SESS1").First(&order)
	assert.Equal(t, "paid", order.PaymentStatus)
}

func TestVerifyPayment_UnknownReference(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{}
	r := setupRouter(db, gateway)

	req, _ := http.NewRequest("GET", "/api/payment/verify/INVALID-REF", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, gateway.statusCalls)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

func TestVerifyPayment_IdempotentAcrossCalls(t *testing.T) {
	db := setupTestDB(t)
	seedPendingOrder(t, db, "DIRW-IDEM")
	gateway := &stubGateway{detail: &services.TransactionStatus{
		Reference: "DIRW-IDEM",
		Status:    "Success",
	}}
	r := setupRouter(db, gateway)

	for i := 0; i < 3; i++ {
		req, _ := http.NewRequest("GET", "/api/payment/verify/DIRW-IDEM", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "paid", resp["status"])
	}

	// Only the first verification reaches the gateway; afterwards the
	// persisted terminal status answers.
	assert.Equal(t, 1, gateway.statusCalls)
}

func TestVerifyPayment_GatewayHasNoRecord(t *testing.T) {
	db := setupTestDB(t)
	seedPendingOrder(t, db, "DIRW-NOREC")
	gateway := &stubGateway{statusErr: services.ErrTransactionNotFound}
	r := setupRouter(db, gateway)

	req, _ := http.NewRequest("GET", "/api/payment/verify/DIRW-NOREC", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// No record at the gateway is not an error page: the booking simply
	// has no completed payment yet.
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "pending", resp["status"])

	var order models.PlantOrder
	db.Where("payment_reference = ?", "DIRW-NOREC").First(&order)
	assert.Equal(t, "pending", order.PaymentStatus)
}

func TestVerifyAndUpdate_MinimalBody(t *testing.T) {
	db := setupTestDB(t)
	seedPendingOrder(t, db, "DIRW-POLL")
	gateway := &stubGateway{detail: &services.TransactionStatus{
		Reference: "DIRW-POLL",
		Status:    "Failed",
	}}
	r := setupRouter(db, gateway)

	req, _ := http.NewRequest("GET", "/api/payment/verify-and-update/DIRW-POLL", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp["paymentStatus"])
}

func TestVerifyAndUpdate_UnknownReference(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, &stubGateway{})

	req, _ := http.NewRequest("GET", "/api/payment/verify-and-update/DIRW-NONE", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentChannels_RequiresSession(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, &stubGateway{})

	req, _ := http.NewRequest("POST", "/api/payment/payment-channels", bytes.NewBufferString(`{"sessionId": "sess-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentChannels_ListsChannels(t *testing.T) {
	db := setupTestDB(t)
	r := setupRouter(db, &stubGateway{})

	body := `{"sessionId": "sess-1", "uuid": "uuid-1"}`
	req, _ := http.NewRequest("POST", "/api/payment/payment-channels", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Channels []struct {
				Name string `json:"name"`
			} `json:"channels"`
		} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data.Channels, 1)
	assert.Equal(t, "Debit Card", resp.Data.Channels[0].Name)
}

func TestCreateOrder_DispatchesOnBookingType(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{}
	r := setupRouter(db, gateway)

	payload := map[string]interface{}{
		"bookingType": "plants",
		"customer":    map[string]string{"name": "Ahmed", "phone": "0501234567"},
		"plants": map[string]interface{}{
			"customer":    map[string]string{"name": "Ahmed", "phone": "0501234567"},
			"orderData":   []map[string]interface{}{{"plantId": "cactus-01", "quantity": 2, "price": 100}},
			"totalAmount": 200,
			"termsAgreed": true,
		},
	}
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", "/api/payment/create-order", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, gateway.createCalls)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["paymentUrl"])
	assert.Equal(t, "SAR", resp["currency"])
}

func TestCreateOrder_UnknownBookingType(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{}
	r := setupRouter(db, gateway)

	body := `{"bookingType": "boats", "customer": {"name": "Ahmed", "phone": "0501234567"}}`
	req, _ := http.NewRequest("POST", "/api/payment/create-order", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, gateway.createCalls)
}
