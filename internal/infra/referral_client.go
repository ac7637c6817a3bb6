package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type ReferralClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewReferralClient(baseURL string, timeout time.Duration) *ReferralClient {
	return &ReferralClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Credit awards referral/loyalty credit for a paid order. Callers treat any
// failure as non-fatal.
func (c *ReferralClient) Credit(ctx context.Context, ownerKey, orderNumber string, amount int64) error {
	body, _ := json.Marshal(map[string]any{
		"ownerKey":    ownerKey,
		"orderNumber": orderNumber,
		"amount":      amount,
	})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/referrals/credit", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("referral service returned status %d", resp.StatusCode)
	}
	return nil
}
