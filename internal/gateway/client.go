package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal REST client for the external payment gateway.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a gateway client.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("gateway: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type intentResponse struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
}

// createIntent issues a new payment intent at the gateway.
func (c *Client) createIntent(ctx context.Context, orderID string, amount int64, currency string) (intentResponse, error) {
	if orderID == "" {
		return intentResponse{}, errors.New("gateway: empty order id")
	}
	body := map[string]any{
		"order_id": orderID,
		"amount":   amount,
		"currency": currency,
	}
	var resp intentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/payment_intents", body, &resp); err != nil {
		return intentResponse{}, err
	}
	return resp, nil
}

// retrieveIntent reads the current intent state from the gateway.
func (c *Client) retrieveIntent(ctx context.Context, intentID string) (intentResponse, error) {
	if intentID == "" {
		return intentResponse{}, errors.New("gateway: empty intent id")
	}
	var resp intentResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/payment_intents/"+intentID, nil, &resp); err != nil {
		return intentResponse{}, err
	}
	return resp, nil
}

// errNotFound marks a gateway 404.
var errNotFound = errors.New("gateway: not found")

// transientError wraps failures where the gateway's answer is unknown:
// network errors, timeouts and 5xx responses. A transient error must never be
// treated as a definitive payment failure.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return "gateway: transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether err is a retryable gateway failure.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 500 {
		return &transientError{err: fmt.Errorf("gateway: http %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
