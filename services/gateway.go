package services

import "github.com/shopspring/decimal"

// PaymentGateway is the provider-facing contract used by the order and
// verification services. NoqoodyService is the production implementation;
// tests substitute mocks to assert call counts.
type PaymentGateway interface {
	CreatePaymentOrder(reference string, amount decimal.Decimal, description string, customer PaymentCustomer) (*PaymentOrder, error)
	GetTransactionStatus(reference string) (*TransactionStatus, error)
	GetTransactionStatusBySession(sessionID, uuid string) (*TransactionStatus, error)
	ListPaymentChannels(sessionID, uuid string) ([]PaymentChannel, error)
}

var _ PaymentGateway = (*NoqoodyService)(nil)
