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

type ShippingClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewShippingClient(baseURL string, timeout time.Duration) *ShippingClient {
	return &ShippingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type shippingQuoteRequest struct {
	Items   []domain.CartItem `json:"items"`
	Address domain.Address    `json:"address"`
}

type shippingQuoteResponse struct {
	Cost   int64  `json:"cost"`
	Reason string `json:"reason,omitempty"`
}

// Quote prices a shipping method for a cart/address pair. An unknown method
// is a validation failure; a 422 means the method exists but refuses this
// destination or cart, surfaced as ShippingUnavailableError.
func (c *ShippingClient) Quote(ctx context.Context, methodID string, cart *domain.CartSnapshot, address domain.Address) (int64, error) {
	body, _ := json.Marshal(shippingQuoteRequest{Items: cart.Items, Address: address})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/shipping-methods/%s/quote", c.baseURL, methodID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out shippingQuoteResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return 0, err
		}
		return out.Cost, nil
	case http.StatusNotFound:
		return 0, domain.NewValidationError("unknown shipping method")
	case http.StatusUnprocessableEntity:
		var out shippingQuoteResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return 0, &domain.ShippingUnavailableError{MethodID: methodID, Reason: out.Reason}
	default:
		return 0, fmt.Errorf("shipping service returned status %d", resp.StatusCode)
	}
}
