package domain

import "time"

type PaymentMethod string

const (
	MethodGateway       PaymentMethod = "gateway"
	MethodAddressCrypto PaymentMethod = "address_crypto"
	MethodInvoiceCrypto PaymentMethod = "invoice_crypto"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodGateway, MethodAddressCrypto, MethodInvoiceCrypto:
		return true
	}
	return false
}

// IsAsync reports whether payment confirmation arrives out-of-band via
// provider webhooks rather than a client-driven capture.
func (m PaymentMethod) IsAsync() bool {
	return m == MethodAddressCrypto || m == MethodInvoiceCrypto
}

type PaymentStatus string

const (
	PaymentPending              PaymentStatus = "pending"
	PaymentAwaitingConfirmation PaymentStatus = "awaiting_confirmation"
	PaymentCompleted            PaymentStatus = "completed"
	PaymentUnderpaid            PaymentStatus = "underpaid"
	PaymentExpired              PaymentStatus = "expired"
	PaymentFailed               PaymentStatus = "failed"
	PaymentCancelled            PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further transition may occur. Underpaid is
// deliberately non-terminal: a follow-up transaction can still settle the
// remainder before the window closes.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentCompleted, PaymentExpired, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// PaymentDetails is a tagged union keyed by Order.PaymentMethod. Exactly one
// branch is populated; the others stay nil.
type PaymentDetails struct {
	Gateway       *GatewayDetails       `json:"gateway,omitempty"`
	AddressCrypto *AddressCryptoDetails `json:"addressCrypto,omitempty"`
	InvoiceCrypto *InvoiceCryptoDetails `json:"invoiceCrypto,omitempty"`
}

type GatewayDetails struct {
	ProviderOrderID string `json:"providerOrderId"`
	ApprovalURL     string `json:"approvalUrl"`
	CaptureID       string `json:"captureId,omitempty"`
}

// AddressCryptoDetails carries the state of a direct-address crypto payment.
// Crypto amounts are int64 base units at 1e8 scale; LockedRate is fiat minor
// units per whole coin, frozen at initiate time.
type AddressCryptoDetails struct {
	Address               string     `json:"address"`
	LockedRate            int64      `json:"lockedRate"`
	CryptoAmount          int64      `json:"cryptoAmount"`
	AmountReceived        int64      `json:"amountReceived"`
	Confirmations         int        `json:"confirmations"`
	RequiredConfirmations int        `json:"requiredConfirmations"`
	TxHash                string     `json:"txHash,omitempty"`
	LastEventAt           *time.Time `json:"lastEventAt,omitempty"`
}

type InvoiceCryptoDetails struct {
	InvoiceID             string     `json:"invoiceId"`
	InvoiceURL            string     `json:"invoiceUrl"`
	Address               string     `json:"address"`
	LockedRate            int64      `json:"lockedRate"`
	CryptoAmount          int64      `json:"cryptoAmount"`
	AmountReceived        int64      `json:"amountReceived"`
	Confirmations         int        `json:"confirmations"`
	RequiredConfirmations int        `json:"requiredConfirmations"`
	TxHash                string     `json:"txHash,omitempty"`
	LastEventAt           *time.Time `json:"lastEventAt,omitempty"`
}

// WebhookEvent is a provider notification normalized from the rail-specific
// wire payload. Exactly one of Address / InvoiceID identifies the target.
type WebhookEvent struct {
	EventID        string        `json:"eventId"`
	Rail           PaymentMethod `json:"-"`
	Address        string        `json:"address,omitempty"`
	InvoiceID      string        `json:"invoiceId,omitempty"`
	AmountReceived int64         `json:"amountReceived"`
	Confirmations  int           `json:"confirmations"`
	TxHash         string        `json:"txHash,omitempty"`
	ProviderStatus string        `json:"status,omitempty"`
	Cancelled      bool          `json:"cancelled,omitempty"`
}

// ProcessedWebhookEvent is the idempotency ledger: one row per provider event
// id ever applied. A second delivery of the same event id is a no-op.
type ProcessedWebhookEvent struct {
	ID        uint64        `gorm:"primaryKey;autoIncrement"`
	EventID   string        `gorm:"size:128;uniqueIndex;not null"`
	Rail      PaymentMethod `gorm:"size:32;not null"`
	OrderID   uint64        `gorm:"index;not null"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
}
