package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlantOrder struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	UserID           uint             `gorm:"not null;index" json:"userId"`
	User             User             `gorm:"foreignKey:UserID" json:"user"`
	RecipientName    string           `gorm:"type:varchar(255)" json:"recipientName"`
	RecipientPhone   string           `gorm:"type:varchar(32)" json:"recipientPhone"`
	DeliveryAddress  string           `gorm:"type:varchar(512)" json:"deliveryAddress"`
	DeliveryDate     *time.Time       `json:"deliveryDate,omitempty"`
	IsGift           bool             `gorm:"default:false" json:"isGift"`
	TotalAmount      decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"totalAmount"`
	PaymentReference *string          `gorm:"type:varchar(64);uniqueIndex" json:"paymentReference"`
	PaymentStatus    string           `gorm:"type:varchar(20);not null;default:'pending'" json:"paymentStatus"`
	ExpiresAt        *time.Time       `json:"expiresAt,omitempty"`
	Items            []PlantOrderItem `gorm:"foreignKey:OrderID" json:"orderData"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

type PlantOrderItem struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	OrderID  uint            `gorm:"not null;index" json:"orderId"`
	PlantID  string          `gorm:"type:varchar(64);not null" json:"plantId"`
	Name     string          `gorm:"type:varchar(255)" json:"name"`
	Quantity int             `gorm:"not null" json:"quantity"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (o *PlantOrder) BookingID() uint         { return o.ID }
func (o *PlantOrder) BookingType() string     { return BookingTypePlants }
func (o *PlantOrder) BookingUserID() uint     { return o.UserID }
func (o *PlantOrder) Reference() string       { return ReferenceString(o.PaymentReference) }
func (o *PlantOrder) Status() string          { return o.PaymentStatus }
func (o *PlantOrder) Amount() decimal.Decimal { return o.TotalAmount }

// ItemsTotal is what the order is actually worth; the declared total is
// checked against it before anything is persisted.
func (o *PlantOrder) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}
