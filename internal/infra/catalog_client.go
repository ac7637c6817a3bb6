package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payment-service/internal/domain"
)

type ProductInfo struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Price         int64  `json:"price"`
	StockQuantity int64  `json:"stockQuantity"`
	IsActive      bool   `json:"isActive"`
}

type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetProduct returns nil without error when the product does not exist.
func (c *CatalogClient) GetProduct(ctx context.Context, id uint64) (*ProductInfo, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/products/%d", c.baseURL, id), nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}
	var p ProductInfo
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// AdjustStock applies a signed delta to a product's stock. Negative deltas
// decrement at checkout; positive deltas restore on cancellation. The
// catalog rejects a decrement below zero with 409.
func (c *CatalogClient) AdjustStock(ctx context.Context, id uint64, delta int64) error {
	body, _ := json.Marshal(map[string]int64{"delta": delta})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/products/%d/stock", c.baseURL, id), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return &domain.InsufficientStockError{ProductID: id, Requested: int(-delta)}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog stock adjust returned status %d", resp.StatusCode)
	}
	return nil
}
