package Controllers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/models"
	"github.com/ahmedabdelhaleemnoby/dirwaza-sub001/services"
)

// Full booking-to-reconciliation flow: the booking is created over HTTP,
// polled while the gateway still reports pending, then reconciled once
// the gateway reports success.
func TestBookingReconciliationFlow(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{detail: &services.TransactionStatus{Status: "Pending"}}
	r := setupRouter(db, gateway)

	rec := postJSON(r, "/api/bookings/plants", plantPayload())
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Reference string `json:"reference"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Reference)
	gateway.setDetail(created.Reference, "Pending")

	poll := func() string {
		req, _ := http.NewRequest("GET", "/api/payment/verify-and-update/"+created.Reference, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			PaymentStatus string `json:"paymentStatus"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.PaymentStatus
	}

	// Customer has not paid yet.
	assert.Equal(t, "pending", poll())
	assert.Equal(t, "pending", poll())

	// Payment lands at the gateway.
	gateway.setDetail("", "Success")
	assert.Equal(t, "paid", poll())

	// Further polls answer from the database.
	callsAfterReconcile := gateway.statusCallCount()
	assert.Equal(t, "paid", poll())
	assert.Equal(t, callsAfterReconcile, gateway.statusCallCount())

	var order models.PlantOrder
	db.Where("payment_reference = ?", created.Reference).First(&order)
	assert.Equal(t, "paid", order.PaymentStatus)
}

// The watcher drives the same endpoint a browser would, against a live
// test server.
func TestPaymentWatcherAgainstServer(t *testing.T) {
	db := setupTestDB(t)
	gateway := &stubGateway{detail: &services.TransactionStatus{Status: "Pending"}}
	server := httptest.NewServer(setupRouter(db, gateway))
	defer server.Close()

	rec := postJSON(server.Config.Handler, "/api/bookings/plants", plantPayload())
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Reference string `json:"reference"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	gateway.setDetail(created.Reference, "Pending")

	var redirected string
	watcher := services.NewPaymentWatcher(services.PaymentWatcherConfig{
		BaseURL:      server.URL,
		FrontendURL:  "https://dirwaza.example/booking/result",
		Interval:     5 * time.Millisecond,
		MaxChecks:    50,
		DisplayDelay: -1,
	})
	watcher.Redirect = func(target string) { redirected = target }

	assert.True(t, watcher.Start(created.Reference))

	// Let a few pending polls happen before the payment lands.
	time.Sleep(15 * time.Millisecond)
	gateway.setDetail("", "Success")

	assert.Equal(t, services.WatcherSuccess, watcher.Wait())
	assert.Contains(t, redirected, "payment=paid")
	assert.Contains(t, redirected, "reference="+created.Reference)

	var order models.PlantOrder
	db.Where("payment_reference = ?", created.Reference).First(&order)
	assert.Equal(t, "paid", order.PaymentStatus)
}
