package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// PayMongoClient talks to the PayMongo API to run GCash payments. The flow
// is source-based: create a gcash source, redirect the patient to its
// checkout URL, then settle off the source.chargeable / payment.failed
// webhook events.
type PayMongoClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewPayMongoClient creates a client using the account's secret key.
func NewPayMongoClient(secretKey string) *PayMongoClient {
	return &PayMongoClient{
		secretKey:  secretKey,
		baseURL:    "https://api.paymongo.com",
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL overrides the API host (tests point this at a local server).
func (c *PayMongoClient) WithBaseURL(baseURL string) *PayMongoClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// Centavos converts a peso price to the integer centavos PayMongo bills
// in. Prices come out of a decimal column through a float64, so values
// like 19.99 arrive just under the exact amount and must round, not
// truncate.
func Centavos(pesos float64) int64 {
	return int64(math.Round(pesos * 100))
}

// GCashSource is the subset of a PayMongo source the booking flow needs.
type GCashSource struct {
	ID          string
	CheckoutURL string
}

// CreateGCashSource creates a gcash source for the given amount in
// centavos. The patient completes payment at the returned checkout URL.
func (c *PayMongoClient) CreateGCashSource(ctx context.Context, amountCentavos int64, description, successURL, failedURL string) (*GCashSource, error) {
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":      amountCentavos,
				"currency":    "PHP",
				"type":        "gcash",
				"description": description,
				"redirect": map[string]any{
					"success": successURL,
					"failed":  failedURL,
				},
			},
		},
	}

	var parsed struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Redirect struct {
					CheckoutURL string `json:"checkout_url"`
				} `json:"redirect"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/v1/sources", body, &parsed); err != nil {
		return nil, err
	}
	return &GCashSource{
		ID:          parsed.Data.ID,
		CheckoutURL: parsed.Data.Attributes.Redirect.CheckoutURL,
	}, nil
}

// CreatePayment captures a chargeable source into a payment. Called from
// the source.chargeable webhook.
func (c *PayMongoClient) CreatePayment(ctx context.Context, sourceID string, amountCentavos int64, description string) (paymentID string, err error) {
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":      amountCentavos,
				"currency":    "PHP",
				"description": description,
				"source": map[string]any{
					"id":   sourceID,
					"type": "source",
				},
			},
		},
	}

	var parsed struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "/v1/payments", body, &parsed); err != nil {
		return "", err
	}
	return parsed.Data.ID, nil
}

func (c *PayMongoClient) post(ctx context.Context, path string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("paymongo: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("paymongo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paymongo: http: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("paymongo: %s status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("paymongo: decode response: %w", err)
	}
	return nil
}

// WebhookEvent is the subset of a PayMongo webhook payload the settlement
// flow reads.
type WebhookEvent struct {
	Type     string // e.g. "source.chargeable", "payment.failed"
	SourceID string
	Amount   int64
}

// VerifyWebhookSignature checks the Paymongo-Signature header against the
// raw request body. The header is "t=<ts>,te=<sig>,li=<sig>" where the
// signatures are hex HMAC-SHA256 over "<ts>.<body>" keyed with the webhook
// secret; te covers test-mode events and li live-mode ones, so either may
// match depending on the account mode.
func VerifyWebhookSignature(body []byte, header, secret string) error {
	var ts, testSig, liveSig string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "te":
			testSig = value
		case "li":
			liveSig = value
		}
	}
	if ts == "" || (testSig == "" && liveSig == "") {
		return errors.New("paymongo: malformed signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if hmac.Equal([]byte(expected), []byte(liveSig)) || hmac.Equal([]byte(expected), []byte(testSig)) {
		return nil
	}
	return errors.New("paymongo: webhook signature mismatch")
}

// ParseWebhookEvent decodes a webhook request body into a WebhookEvent.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var payload struct {
		Data struct {
			Attributes struct {
				Type string `json:"type"`
				Data struct {
					ID         string `json:"id"`
					Attributes struct {
						Amount int64 `json:"amount"`
						Source struct {
							ID string `json:"id"`
						} `json:"source"`
					} `json:"attributes"`
				} `json:"data"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("paymongo: decode webhook: %w", err)
	}
	event := &WebhookEvent{
		Type:   payload.Data.Attributes.Type,
		Amount: payload.Data.Attributes.Data.Attributes.Amount,
	}
	// source.* events carry the source id at the top of the inner data;
	// payment.* events reference it through attributes.source.
	if strings.HasPrefix(event.Type, "source.") {
		event.SourceID = payload.Data.Attributes.Data.ID
	} else {
		event.SourceID = payload.Data.Attributes.Data.Attributes.Source.ID
	}
	return event, nil
}
