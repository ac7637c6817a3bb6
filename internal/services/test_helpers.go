package services

import (
	"time"

	"payment-service/internal/domain"
	"payment-service/internal/infra"
)

const (
	TestOwnerKey  = "user-42"
	TestMethodID  = "standard"
	TestProductID = uint64(1)
)

func testAddress() domain.Address {
	return domain.Address{
		FullName:   "Test Buyer",
		Line1:      "1 High Street",
		City:       "London",
		PostalCode: "N1 1AA",
		Country:    "GB",
	}
}

func testCart(items ...domain.CartItem) *domain.CartSnapshot {
	if len(items) == 0 {
		items = []domain.CartItem{{
			ProductID: TestProductID,
			Name:      "Test Product",
			Slug:      "test-product",
			UnitPrice: 10000,
			Quantity:  1,
			Subtotal:  10000,
		}}
	}
	return &domain.CartSnapshot{OwnerKey: TestOwnerKey, Items: items}
}

func testProduct(price, stock int64) *infra.ProductInfo {
	return &infra.ProductInfo{
		ID:            TestProductID,
		Name:          "Test Product",
		Slug:          "test-product",
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
	}
}

func testAddressCryptoOrder(id uint64, status domain.PaymentStatus, expiresAt time.Time) *domain.Order {
	return &domain.Order{
		ID:            id,
		OrderNumber:   "ord-addr-1",
		OwnerKey:      TestOwnerKey,
		PaymentMethod: domain.MethodAddressCrypto,
		PaymentStatus: status,
		Total:         11000,
		PaymentDetails: domain.PaymentDetails{
			AddressCrypto: &domain.AddressCryptoDetails{
				Address:               "bc1qtestaddress",
				LockedRate:            5_500_000,
				CryptoAmount:          1_000_000,
				RequiredConfirmations: 2,
			},
		},
		PaymentAddress:    "bc1qtestaddress",
		FulfillmentStatus: domain.FulfillmentPending,
		ExpiresAt:         &expiresAt,
	}
}

func testInvoiceCryptoOrder(id uint64, status domain.PaymentStatus, expiresAt time.Time) *domain.Order {
	return &domain.Order{
		ID:            id,
		OrderNumber:   "ord-inv-1",
		OwnerKey:      TestOwnerKey,
		PaymentMethod: domain.MethodInvoiceCrypto,
		PaymentStatus: status,
		Total:         11000,
		PaymentDetails: domain.PaymentDetails{
			InvoiceCrypto: &domain.InvoiceCryptoDetails{
				InvoiceID:             "inv-123",
				Address:               "4Atesthostedaddress",
				LockedRate:            12_000_000,
				CryptoAmount:          91_666,
				RequiredConfirmations: 10,
			},
		},
		PaymentAddress:    "4Atesthostedaddress",
		ProviderRef:       "inv-123",
		FulfillmentStatus: domain.FulfillmentPending,
		ExpiresAt:         &expiresAt,
	}
}
