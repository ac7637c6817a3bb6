package domain

import (
	"time"
)

type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "pending"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"
)

// Order is the durable record produced by a successful checkout. Prices and
// item lines are a snapshot taken at commit time; the catalog is never
// re-read afterwards.
type Order struct {
	ID          uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber string `json:"orderNumber" gorm:"size:64;uniqueIndex;not null"`
	OwnerKey    string `json:"ownerKey" gorm:"size:128;index;not null"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID"`

	ShippingAddress  Address `json:"shippingAddress" gorm:"serializer:json"`
	BillingAddress   Address `json:"billingAddress" gorm:"serializer:json"`
	ShippingMethodID string  `json:"shippingMethodId" gorm:"size:64;not null"`

	Subtotal     int64  `json:"subtotal" gorm:"not null"`
	ShippingCost int64  `json:"shippingCost" gorm:"not null"`
	Discount     int64  `json:"discount" gorm:"not null"`
	Total        int64  `json:"total" gorm:"not null"`
	PromoCode    string `json:"promoCode,omitempty" gorm:"size:64"`

	PaymentMethod  PaymentMethod  `json:"paymentMethod" gorm:"size:32;not null"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus" gorm:"size:32;index;not null;default:'pending'"`
	PaymentDetails PaymentDetails `json:"paymentDetails" gorm:"serializer:json"`

	// Rail-specific lookup keys, duplicated out of PaymentDetails so the
	// reconciler can resolve an order with an indexed query.
	PaymentAddress string `json:"-" gorm:"size:128;index"`
	ProviderRef    string `json:"-" gorm:"size:128;index"`

	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus" gorm:"size:32;not null;default:'pending'"`

	StatusHistory []StatusChange `json:"statusHistory" gorm:"foreignKey:OrderID"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

type OrderItem struct {
	ID        uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64 `json:"-" gorm:"index;not null"`
	ProductID uint64 `json:"productId" gorm:"not null"`
	Name      string `json:"name" gorm:"size:255;not null"`
	Slug      string `json:"slug" gorm:"size:255"`
	UnitPrice int64  `json:"unitPrice" gorm:"not null"`
	Quantity  int    `json:"quantity" gorm:"not null"`
	Subtotal  int64  `json:"subtotal" gorm:"not null"`
}

// StatusChange is an append-only payment status history row.
type StatusChange struct {
	ID        uint64        `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   uint64        `json:"-" gorm:"index;not null"`
	Status    PaymentStatus `json:"status" gorm:"size:32;not null"`
	Note      string        `json:"note" gorm:"size:255"`
	CreatedAt time.Time     `json:"timestamp" gorm:"autoCreateTime"`
}

type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a Address) IsZero() bool {
	return a.Line1 == "" && a.City == "" && a.PostalCode == "" && a.Country == ""
}

// TransitionPayment moves the order to next and appends a history row.
// Transitions out of a terminal status are rejected; callers that want
// replay-safe no-ops must check IsTerminal first.
func (o *Order) TransitionPayment(next PaymentStatus, note string) error {
	if o.PaymentStatus.IsTerminal() {
		return ErrIllegalTransition
	}
	o.PaymentStatus = next
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		OrderID: o.ID,
		Status:  next,
		Note:    note,
	})
	return nil
}

// IsExpired reports whether the payment window has closed. Expiry always wins
// over anything a provider event claims.
func (o *Order) IsExpired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// Cancellable reports whether the order may still be cancelled by its owner.
func (o *Order) Cancellable() bool {
	return o.FulfillmentStatus == FulfillmentPending || o.FulfillmentStatus == FulfillmentProcessing
}
