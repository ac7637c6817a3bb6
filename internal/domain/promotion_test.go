package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func promoItems() []OrderItem {
	return []OrderItem{
		{ProductID: 1, UnitPrice: 10000, Quantity: 2, Subtotal: 20000},
		{ProductID: 2, UnitPrice: 5000, Quantity: 1, Subtotal: 5000},
	}
}

func TestPromotion_Apply(t *testing.T) {
	tests := []struct {
		name             string
		promo            Promotion
		expectedDiscount int64
		expectedShipping int64
		expectedError    string
	}{
		{
			name:             "percentage over whole cart",
			promo:            Promotion{Type: PromoPercentage, Value: 10, Active: true},
			expectedDiscount: 2500,
			expectedShipping: 1000,
		},
		{
			name: "percentage limited to eligible products",
			promo: Promotion{
				Type: PromoPercentage, Value: 10, Active: true,
				EligibleProductIDs: []uint64{2},
			},
			expectedDiscount: 500,
			expectedShipping: 1000,
		},
		{
			name:             "fixed amount within subtotal",
			promo:            Promotion{Type: PromoFixedAmount, Value: 3000, Active: true},
			expectedDiscount: 3000,
			expectedShipping: 1000,
		},
		{
			name:             "fixed amount capped at applicable subtotal",
			promo:            Promotion{Type: PromoFixedAmount, Value: 99999, Active: true},
			expectedDiscount: 25000,
			expectedShipping: 1000,
		},
		{
			name:             "free shipping",
			promo:            Promotion{Type: PromoFreeShipping, Active: true},
			expectedDiscount: 0,
			expectedShipping: 0,
		},
		{
			name:          "inactive promotion",
			promo:         Promotion{Type: PromoPercentage, Value: 10},
			expectedError: "not usable",
		},
		{
			name:          "usage limit exhausted",
			promo:         Promotion{Type: PromoPercentage, Value: 10, Active: true, UsageLimit: 5, UsageCount: 5},
			expectedError: "not usable",
		},
		{
			name:          "below minimum subtotal",
			promo:         Promotion{Type: PromoPercentage, Value: 10, Active: true, MinSubtotal: 50000},
			expectedError: "below promotion minimum",
		},
		{
			name: "no eligible items",
			promo: Promotion{
				Type: PromoPercentage, Value: 10, Active: true,
				EligibleProductIDs: []uint64{99},
			},
			expectedError: "no eligible items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, shipping, err := tt.promo.Apply(promoItems(), 25000, 1000)
			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedDiscount, discount)
			assert.Equal(t, tt.expectedShipping, shipping)
		})
	}
}
