package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sale is the subset of a Gumroad sale record the backend acts on.
type Sale struct {
	SaleID   string `json:"sale_id"`
	Email    string `json:"email"`
	Refunded bool   `json:"refunded"`
	Disputed bool   `json:"disputed"`
}

// SaleVerifier is the slice of the payment provider's API the entitlement
// flow relies on: authoritative lookup of a sale by its id.
type SaleVerifier interface {
	VerifySale(ctx context.Context, saleID string) (*Sale, error)
}

// GumroadClient verifies sales against the Gumroad REST API.
type GumroadClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewGumroadClient creates a client for the given API base URL and access
// token. An empty token is permitted; verification then fails closed.
func NewGumroadClient(baseURL, accessToken string) *GumroadClient {
	if baseURL == "" {
		baseURL = "https://api.gumroad.com"
	}
	return &GumroadClient{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifySale fetches the authoritative sale record. A sale Gumroad does not
// acknowledge returns an error, never a partially-filled Sale.
func (c *GumroadClient) VerifySale(ctx context.Context, saleID string) (*Sale, error) {
	if c.accessToken == "" {
		return nil, errors.New("gumroad access token not configured")
	}
	if saleID == "" {
		return nil, errors.New("sale id cannot be empty")
	}

	url := fmt.Sprintf("%s/v2/sales/%s", c.baseURL, saleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gumroad request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gumroad request failed for sale %s: %w", saleID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gumroad returned status %d for sale %s", resp.StatusCode, saleID)
	}

	var payload struct {
		Success bool  `json:"success"`
		Sale    *Sale `json:"sale"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode gumroad response for sale %s: %w", saleID, err)
	}
	if !payload.Success || payload.Sale == nil {
		return nil, fmt.Errorf("gumroad does not acknowledge sale %s", saleID)
	}
	return payload.Sale, nil
}
