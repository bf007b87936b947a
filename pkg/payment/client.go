// Package payment is a REST client for the hosted payment gateway. The
// gateway exchanges an amount in the smallest currency unit for an opaque
// order reference that the client-side checkout widget is invoked with.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds the gateway endpoint and the API credential pair. The key
// secret never leaves this process; browsers only ever see the order
// reference.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client talks to the payment gateway's order API.
type Client struct {
	http      *resty.Client
	keySecret string
}

// NewClient creates a gateway client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:      httpClient,
		keySecret: cfg.KeySecret,
	}
}

// CreateOrder registers an order-amount authorization with the gateway.
// Amount is a positive integer in the smallest currency unit (e.g. paise).
// It returns the gateway's opaque order reference.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("amount must be a positive integer, got %d", amount)
	}
	if currency == "" {
		return "", fmt.Errorf("currency is required")
	}

	requestBody := map[string]any{
		"amount":          amount,
		"currency":        currency,
		"payment_capture": 1,
		"notes": map[string]string{
			"source": "shoply-backend",
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(requestBody).
		Post("/v1/orders")
	if err != nil {
		return "", fmt.Errorf("gateway order request failed: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", fmt.Errorf("gateway order request failed with status %d: %s", resp.StatusCode(), gatewayErrorMessage(resp.Body()))
	}

	var response map[string]any
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return "", fmt.Errorf("failed to parse gateway order response: %w", err)
	}

	orderRef, ok := response["id"].(string)
	if !ok || orderRef == "" {
		return "", fmt.Errorf("order reference not found in gateway response: %v", response)
	}
	return orderRef, nil
}

// VerifySignature checks the widget's success callback against the key
// secret: the signature must be the hex HMAC-SHA256 of "orderRef|paymentID".
func (c *Client) VerifySignature(orderRef, paymentID, signature string) error {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderRef + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch for order %s", orderRef)
	}
	return nil
}

// Signature computes the callback signature for an order/payment pair. It
// exists so tests and sandbox tooling can produce valid callbacks.
func (c *Client) Signature(orderRef, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// gatewayErrorMessage extracts a readable message from a gateway error body,
// which is either {"error": "..."} or {"error": {"description": "..."}}.
func gatewayErrorMessage(body []byte) string {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return string(body)
	}
	switch e := envelope["error"].(type) {
	case string:
		return e
	case map[string]any:
		if desc, ok := e["description"].(string); ok {
			return desc
		}
	}
	return string(body)
}
