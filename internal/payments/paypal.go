package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// PayPalClient drives the PayPal Orders v2 API: client-credentials token
// exchange, order creation, and capture.
type PayPalClient struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalClient creates a client for the live API; point baseURL at
// https://api-m.sandbox.paypal.com for sandbox accounts.
func NewPayPalClient(clientID, secret string) *PayPalClient {
	return &PayPalClient{
		clientID:   clientID,
		secret:     secret,
		baseURL:    "https://api-m.paypal.com",
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// WithBaseURL overrides the API host (sandbox, tests).
func (c *PayPalClient) WithBaseURL(baseURL string) *PayPalClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// token returns a cached access token, fetching a fresh one when expired.
func (c *PayPalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal: build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal: token http: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("paypal: token status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("paypal: decode token: %w", err)
	}
	c.accessToken = parsed.AccessToken
	// Renew a minute early to avoid using a token that expires mid-flight.
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

// Order is a created PayPal order awaiting buyer approval.
type Order struct {
	ID         string
	ApproveURL string
}

// CreateOrder creates a CAPTURE-intent order for the appointment.
func (c *PayPalClient) CreateOrder(ctx context.Context, appointmentID string, amount string, currency string) (*Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"reference_id": appointmentID,
			"amount": map[string]any{
				"currency_code": currency,
				"value":         amount,
			},
		}},
	}

	var parsed struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.post(ctx, "/v2/checkout/orders", body, &parsed); err != nil {
		return nil, err
	}

	order := &Order{ID: parsed.ID}
	for _, link := range parsed.Links {
		if link.Rel == "approve" {
			order.ApproveURL = link.Href
		}
	}
	return order, nil
}

// CaptureResult reports the outcome of an order capture.
type CaptureResult struct {
	CaptureID string
	Completed bool
}

// CaptureOrder captures an approved order and returns the capture id used
// as the appointment's payment reference.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	var parsed struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID)
	if err := c.post(ctx, path, map[string]any{}, &parsed); err != nil {
		return nil, err
	}

	result := &CaptureResult{Completed: parsed.Status == "COMPLETED"}
	for _, unit := range parsed.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			result.CaptureID = capture.ID
		}
	}
	return result, nil
}

func (c *PayPalClient) post(ctx context.Context, path string, body any, out any) error {
	accessToken, err := c.token(ctx)
	if err != nil {
		return err
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("paypal: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("paypal: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: http: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("paypal: %s status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("paypal: decode response: %w", err)
	}
	return nil
}
