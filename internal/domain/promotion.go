package domain

type PromotionType string

const (
	PromoPercentage   PromotionType = "percentage"
	PromoFixedAmount  PromotionType = "fixed_amount"
	PromoFreeShipping PromotionType = "free_shipping"
)

// Promotion is resolved through the promotion collaborator at commit time.
// Usage count is touched only after a successful order commit.
type Promotion struct {
	Code               string        `json:"code"`
	Type               PromotionType `json:"type"`
	Value              int64         `json:"value"` // percent for percentage, minor units for fixed_amount
	MinSubtotal        int64         `json:"minSubtotal"`
	EligibleProductIDs []uint64      `json:"eligibleProductIds,omitempty"`
	UsageLimit         int           `json:"usageLimit"`
	UsageCount         int           `json:"usageCount"`
	Active             bool          `json:"active"`
}

func (p *Promotion) Usable() bool {
	return p.Active && (p.UsageLimit == 0 || p.UsageCount < p.UsageLimit)
}

// applicableSubtotal returns the slice of the subtotal the promotion may
// discount. An empty eligibility list means the whole cart qualifies.
func (p *Promotion) applicableSubtotal(items []OrderItem) int64 {
	if len(p.EligibleProductIDs) == 0 {
		var total int64
		for _, it := range items {
			total += it.Subtotal
		}
		return total
	}
	eligible := make(map[uint64]struct{}, len(p.EligibleProductIDs))
	for _, id := range p.EligibleProductIDs {
		eligible[id] = struct{}{}
	}
	var total int64
	for _, it := range items {
		if _, ok := eligible[it.ProductID]; ok {
			total += it.Subtotal
		}
	}
	return total
}

// Apply computes the discount and resulting shipping cost for an order. A
// fixed-amount discount is capped at the applicable subtotal; free shipping
// zeroes the shipping cost and discounts nothing else.
func (p *Promotion) Apply(items []OrderItem, subtotal, shippingCost int64) (discount, shipping int64, err error) {
	if !p.Usable() {
		return 0, shippingCost, NewValidationError("promotion not usable")
	}
	if subtotal < p.MinSubtotal {
		return 0, shippingCost, NewValidationError("cart subtotal below promotion minimum")
	}
	applicable := p.applicableSubtotal(items)
	if applicable == 0 {
		return 0, shippingCost, NewValidationError("no eligible items for promotion")
	}

	switch p.Type {
	case PromoPercentage:
		return applicable * p.Value / 100, shippingCost, nil
	case PromoFixedAmount:
		d := p.Value
		if d > applicable {
			d = applicable
		}
		return d, shippingCost, nil
	case PromoFreeShipping:
		return 0, 0, nil
	default:
		return 0, shippingCost, NewValidationError("unknown promotion type")
	}
}
