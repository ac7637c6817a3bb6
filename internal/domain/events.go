package domain

import "time"

// OrderCompletedEvent is published to the message broker when an order
// reaches the paid terminal state. Downstream consumers own notification
// delivery and loyalty bookkeeping.
type OrderCompletedEvent struct {
	OrderID     uint64        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	OwnerKey    string        `json:"ownerKey"`
	Total       int64         `json:"total"`
	Rail        PaymentMethod `json:"rail"`
	CompletedAt time.Time     `json:"completedAt"`
}

type OrderCancelledEvent struct {
	OrderID     uint64    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	OwnerKey    string    `json:"ownerKey"`
	Refunded    bool      `json:"refunded"`
	CancelledAt time.Time `json:"cancelledAt"`
}
