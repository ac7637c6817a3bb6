package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"payment-service/internal/domain"
)

type PromotionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewPromotionClient(baseURL string, timeout time.Duration) *PromotionClient {
	return &PromotionClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Resolve returns nil without error for an unknown code.
func (c *PromotionClient) Resolve(ctx context.Context, code string) (*domain.Promotion, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/promotions/%s", c.baseURL, url.PathEscape(code)), nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("promotion service returned status %d", resp.StatusCode)
	}
	var p domain.Promotion
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *PromotionClient) IncrementUsage(ctx context.Context, code string) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/promotions/%s/usage", c.baseURL, url.PathEscape(code)), nil)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("promotion usage increment returned status %d", resp.StatusCode)
	}
	return nil
}
