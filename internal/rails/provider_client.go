package rails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payment-service/internal/domain"
)

// providerClient is the shared HTTP plumbing for the three provider APIs.
// Transport failures, timeouts and 5xx responses become a typed
// ServiceUnavailableError so callers can offer alternative rails instead of
// surfacing an opaque provider error.
type providerClient struct {
	baseURL    string
	apiKey     string
	rail       domain.PaymentMethod
	httpClient *http.Client
}

func newProviderClient(baseURL, apiKey string, rail domain.PaymentMethod, timeout time.Duration) *providerClient {
	return &providerClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		rail:       rail,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *providerClient) postJSON(ctx context.Context, path string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewServiceUnavailable(c.rail, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewServiceUnavailable(c.rail, fmt.Errorf("provider returned status %d", resp.StatusCode))
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
