package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// NoqoodyConfig holds NoqoodyPay configuration
type NoqoodyConfig struct {
	BaseURL      string
	Username     string
	Password     string
	ProjectCode  string
	ClientSecret string
	IsProduction bool
}

// NoqoodyService wraps the NoqoodyPay HTTP API: payment-link creation,
// channel listing and transaction verification. It is stateless apart
// from the cached OAuth token.
type NoqoodyService struct {
	config     *NoqoodyConfig
	httpClient *http.Client

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var (
	noqoodyService *NoqoodyService
	noqoodyOnce    sync.Once
)

// GetNoqoodyService returns the singleton instance configured from the
// environment.
func GetNoqoodyService() *NoqoodyService {
	noqoodyOnce.Do(func() {
		config := &NoqoodyConfig{
			BaseURL:      os.Getenv("NOQOODY_BASE_URL"),
			Username:     os.Getenv("NOQOODY_USERNAME"),
			Password:     os.Getenv("NOQOODY_PASSWORD"),
			ProjectCode:  os.Getenv("NOQOODY_PROJECT_CODE"),
			ClientSecret: os.Getenv("NOQOODY_CLIENT_SECRET"),
			IsProduction: os.Getenv("NOQOODY_ENV") == "production",
		}

		if config.BaseURL == "" {
			if config.IsProduction {
				config.BaseURL = "https://noqoodypay.com/sdk"
			} else {
				log.Println("WARNING: NOQOODY_BASE_URL is empty, using sandbox URL")
				config.BaseURL = "https://sandbox.noqoodypay.com/sdk"
			}
		}

		noqoodyService = NewNoqoodyService(config)
	})
	return noqoodyService
}

// NewNoqoodyService creates a new instance of NoqoodyService
func NewNoqoodyService(config *NoqoodyConfig) *NoqoodyService {
	return &NoqoodyService{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ValidateConfig validates NoqoodyPay configuration
func (ns *NoqoodyService) ValidateConfig() error {
	if ns.config.BaseURL == "" {
		return fmt.Errorf("NOQOODY_BASE_URL is not set")
	}
	if ns.config.Username == "" {
		return fmt.Errorf("NOQOODY_USERNAME is not set")
	}
	if ns.config.Password == "" {
		return fmt.Errorf("NOQOODY_PASSWORD is not set")
	}
	if ns.config.ProjectCode == "" {
		return fmt.Errorf("NOQOODY_PROJECT_CODE is not set")
	}
	if ns.config.ClientSecret == "" {
		return fmt.Errorf("NOQOODY_CLIENT_SECRET is not set")
	}
	return nil
}

// PaymentOrder is what the gateway returns when a payment link is
// created. The reference correlates the booking with the gateway
// transaction; session + uuid identify the checkout session.
type PaymentOrder struct {
	Reference  string          `json:"reference"`
	SessionID  string          `json:"sessionId"`
	UUID       string          `json:"uuid"`
	PaymentURL string          `json:"paymentUrl"`
	Amount     decimal.Decimal `json:"amount"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// PaymentCustomer identifies the paying customer on the gateway side.
type PaymentCustomer struct {
	Name   string
	Email  string
	Mobile string
}

// TransactionStatus is the normalized point-in-time snapshot of a
// gateway transaction. All endpoint shape variants are folded into this
// one DTO at the client boundary.
type TransactionStatus struct {
	TransactionID   string `json:"transactionId"`
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          string `json:"amount"`
	TransactionDate string `json:"transactionDate"`
	ServiceName     string `json:"serviceName"`
	Mobile          string `json:"mobile"`
	Message         string `json:"transactionMessage"`
	PUN             string `json:"pun"`
	Description     string `json:"description"`
	InvoiceNo       string `json:"invoiceNo"`
}

// PaymentChannel describes one payment method offered for a session.
type PaymentChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Logo     string `json:"logo,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ensureToken fetches or refreshes the OAuth token. NoqoodyPay uses a
// password grant; the token is cached until shortly before expiry.
func (ns *NoqoodyService) ensureToken() (string, error) {
	ns.tokenMu.Lock()
	defer ns.tokenMu.Unlock()

	if ns.accessToken != "" && time.Now().Before(ns.tokenExpiry) {
		return ns.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", ns.config.Username)
	form.Set("password", ns.config.Password)

	req, err := http.NewRequest("POST", ns.config.BaseURL+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", ErrGatewayUnavailable
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ns.httpClient.Do(req)
	if err != nil {
		log.Printf("Noqoody token request failed: %v", err)
		return "", ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		log.Printf("Noqoody token response error (status %d): %s", resp.StatusCode, string(body))
		return "", ErrGatewayUnavailable
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return "", ErrGatewayUnavailable
	}

	ns.accessToken = token.AccessToken
	// Refresh one minute early so an in-flight call never carries a
	// token that expires mid-request.
	ns.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)

	return ns.accessToken, nil
}

type paymentRequestPayload struct {
	ProjectCode    string `json:"ProjectCode"`
	Description    string `json:"Description"`
	Amount         string `json:"Amount"`
	CustomerName   string `json:"CustomerName"`
	CustomerEmail  string `json:"CustomerEmail"`
	CustomerMobile string `json:"CustomerMobile"`
	Reference      string `json:"Reference"`
}

type paymentRequestResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ReferenceNo string `json:"ReferenceNo"`
	SessionID   string `json:"SessionId"`
	UUID        string `json:"Uuid"`
	PaymentURL  string `json:"PaymentUrl"`
	ExpiryDate  string `json:"ExpiryDate"`
}

// CreatePaymentOrder creates a payment link at NoqoodyPay for the given
// reference and returns the session descriptors the client needs.
func (ns *NoqoodyService) CreatePaymentOrder(reference string, amount decimal.Decimal, description string, customer PaymentCustomer) (*PaymentOrder, error) {
	if customer.Name == "" || customer.Mobile == "" {
		return nil, ErrInvalidRequest
	}

	token, err := ns.ensureToken()
	if err != nil {
		return nil, err
	}

	payload := paymentRequestPayload{
		ProjectCode:    ns.config.ProjectCode,
		Description:    description,
		Amount:         amount.StringFixed(2),
		CustomerName:   customer.Name,
		CustomerEmail:  customer.Email,
		CustomerMobile: customer.Mobile,
		Reference:      reference,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequest("POST", ns.config.BaseURL+"/PaymentLink/api/PaymentRequest", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, ErrGatewayUnavailable
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := ns.httpClient.Do(req)
	if err != nil {
		log.Printf("Noqoody payment request failed: %v", err)
		return nil, ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrGatewayUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("Noqoody payment request error (status %d): %s", resp.StatusCode, string(body))
		return nil, ErrGatewayUnavailable
	}

	var linkResp paymentRequestResponse
	if err := json.Unmarshal(body, &linkResp); err != nil {
		return nil, ErrGatewayUnavailable
	}
	if !linkResp.Success {
		log.Printf("Noqoody rejected payment request: %s", linkResp.Message)
		return nil, ErrGatewayUnavailable
	}

	order := &PaymentOrder{
		Reference:  linkResp.ReferenceNo,
		SessionID:  linkResp.SessionID,
		UUID:       linkResp.UUID,
		PaymentURL: linkResp.PaymentURL,
		Amount:     amount,
	}
	if order.Reference == "" {
		order.Reference = reference
	}

	if linkResp.ExpiryDate != "" {
		if expiry, err := time.Parse("2006-01-02 15:04:05", linkResp.ExpiryDate); err == nil {
			order.ExpiresAt = expiry
		}
	}
	if order.ExpiresAt.IsZero() {
		// Gateway links are valid for 30 minutes unless stated otherwise.
		order.ExpiresAt = time.Now().Add(30 * time.Minute)
	}

	return order, nil
}

// transactionDetailResponse covers both verification endpoints; field
// names differ per endpoint so alternates are resolved in normalize().
type transactionDetailResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	TransactionID     string `json:"TransactionID"`
	TransactionNo     string `json:"TransactionNo"`
	Reference         string `json:"Reference"`
	ReferenceNo       string `json:"ReferenceNo"`
	TransactionStatus string `json:"TransactionStatus"`
	Status            string `json:"Status"`
	Amount            string `json:"Amount"`
	TransactionDate   string `json:"TransactionDate"`
	ServiceName       string `json:"ServiceName"`
	Mobile            string `json:"Mobile"`
	TransactionMsg    string `json:"TransactionMessage"`
	PUN               string `json:"PUN"`
	Description       string `json:"Description"`
	InvoiceNo         string `json:"InvoiceNo"`
}

func (r *transactionDetailResponse) normalize() *TransactionStatus {
	status := &TransactionStatus{
		TransactionID:   r.TransactionID,
		Reference:       r.Reference,
		Status:          r.TransactionStatus,
		Amount:          r.Amount,
		TransactionDate: r.TransactionDate,
		ServiceName:     r.ServiceName,
		Mobile:          r.Mobile,
		Message:         r.TransactionMsg,
		PUN:             r.PUN,
		Description:     r.Description,
		InvoiceNo:       r.InvoiceNo,
	}
	if status.TransactionID == "" {
		status.TransactionID = r.TransactionNo
	}
	if status.Reference == "" {
		status.Reference = r.ReferenceNo
	}
	if status.Status == "" {
		status.Status = r.Status
	}
	return status
}

// GetTransactionStatus fetches the current transaction snapshot for a
// payment reference. ErrTransactionNotFound means the gateway has no
// record at all, which is different from a still-pending transaction.
func (ns *NoqoodyService) GetTransactionStatus(reference string) (*TransactionStatus, error) {
	endpoint := fmt.Sprintf("%s/Members/GetTransactionDetailStatusByClientSecret/?ReferenceNo=%s&ClientSecret=%s",
		ns.config.BaseURL, url.QueryEscape(reference), url.QueryEscape(ns.config.ClientSecret))
	return ns.fetchTransactionDetail(endpoint)
}

// GetTransactionStatusBySession fetches the snapshot by checkout session
// and uuid, used by the gateway redirect page before a reference is known.
func (ns *NoqoodyService) GetTransactionStatusBySession(sessionID, uuid string) (*TransactionStatus, error) {
	endpoint := fmt.Sprintf("%s/PaymentLink/api/TransactionDetailBySession/?SessionID=%s&UUID=%s",
		ns.config.BaseURL, url.QueryEscape(sessionID), url.QueryEscape(uuid))
	return ns.fetchTransactionDetail(endpoint)
}

func (ns *NoqoodyService) fetchTransactionDetail(endpoint string) (*TransactionStatus, error) {
	req, err := http.NewRequest("GET", endpoint, nil)
	if err != nil {
		return nil, ErrGatewayUnavailable
	}
	req.Header.Set("Accept", "application/json")

	resp, err := ns.httpClient.Do(req)
	if err != nil {
		log.Printf("Noqoody status request failed: %v", err)
		return nil, ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrGatewayUnavailable
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Noqoody status response error (status %d): %s", resp.StatusCode, string(body))
		return nil, ErrGatewayUnavailable
	}

	var detail transactionDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, ErrGatewayUnavailable
	}
	if !detail.Success {
		return nil, ErrTransactionNotFound
	}

	return detail.normalize(), nil
}

type paymentChannelsResponse struct {
	Success  bool `json:"success"`
	Channels []struct {
		ID          json.Number `json:"Id"`
		ChannelName string      `json:"ChannelName"`
		Name        string      `json:"name"`
		Logo        string      `json:"Logo"`
		Currency    string      `json:"Currency"`
	} `json:"Channels"`
}

// ListPaymentChannels returns the payment methods available for a
// checkout session. Not on the reconciliation critical path.
func (ns *NoqoodyService) ListPaymentChannels(sessionID, uuid string) ([]PaymentChannel, error) {
	payload, _ := json.Marshal(map[string]string{
		"SessionID": sessionID,
		"UUID":      uuid,
	})

	req, err := http.NewRequest("POST", ns.config.BaseURL+"/PaymentLink/api/PaymentChannels", bytes.NewBuffer(payload))
	if err != nil {
		return nil, ErrGatewayUnavailable
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := ns.httpClient.Do(req)
	if err != nil {
		log.Printf("Noqoody channels request failed: %v", err)
		return nil, ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return nil, ErrGatewayUnavailable
	}

	var channelsResp paymentChannelsResponse
	if err := json.Unmarshal(body, &channelsResp); err != nil {
		return nil, ErrGatewayUnavailable
	}

	channels := make([]PaymentChannel, 0, len(channelsResp.Channels))
	for _, raw := range channelsResp.Channels {
		// Older gateway builds send ChannelName, newer ones send name.
		name := raw.ChannelName
		if name == "" {
			name = raw.Name
		}
		channels = append(channels, PaymentChannel{
			ID:       raw.ID.String(),
			Name:     name,
			Logo:     raw.Logo,
			Currency: raw.Currency,
		})
	}

	return channels, nil
}

// MapTransactionStatus maps a raw gateway status string to the internal
// payment status. The match is exact and case-sensitive; anything the
// mapping does not recognize is treated as still pending.
func MapTransactionStatus(status string) string {
	switch status {
	case "Success", "Paid", "Completed":
		return PaymentStatusPaid
	case "Failed", "Declined", "Rejected":
		return PaymentStatusFailed
	default:
		return PaymentStatusPending
	}
}
