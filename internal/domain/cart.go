package domain

const (
	MaxDistinctItems = 50
	MaxItemQuantity  = 99
)

// CartSnapshot is the read-only view of a cart as served by the cart
// collaborator. Cached unit prices are never trusted at checkout; every line
// is revalidated against the live catalog.
type CartSnapshot struct {
	OwnerKey  string     `json:"ownerKey"`
	Items     []CartItem `json:"items"`
	PromoCode string     `json:"promoCode,omitempty"`
}

type CartItem struct {
	ProductID uint64 `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

func (c *CartSnapshot) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// Validate enforces the structural cart limits before any catalog round trip.
func (c *CartSnapshot) Validate() error {
	if len(c.Items) > MaxDistinctItems {
		return NewValidationError("cart exceeds maximum distinct items")
	}
	for _, it := range c.Items {
		if it.Quantity < 1 || it.Quantity > MaxItemQuantity {
			return NewValidationError("item quantity out of range")
		}
	}
	return nil
}
