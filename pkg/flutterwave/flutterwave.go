// Package flutterwave creates Flutterwave Standard payments and checks the
// verif-hash webhook header.
package flutterwave

import (
	"BPIApi/pkg/logger"
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HashHeader carries the secret hash configured on the Flutterwave dashboard.
const HashHeader = "verif-hash"

const EventChargeCompleted = "charge.completed"

var ErrNotConfigured = errors.New("flutterwave client not configured")

type Client struct {
	secretKey  string
	secretHash string
	baseURL    string
	http       *http.Client
}

func NewClient(baseURL, secretKey, secretHash string) *Client {
	return &Client{
		secretKey:  secretKey,
		secretHash: secretHash,
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phonenumber,omitempty"`
}

type PaymentRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    Customer          `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type PaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// CreatePayment returns the hosted checkout link for req.
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error) {
	if c == nil || c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	buf, err := json.Marshal(req)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v3/payments", bytes.NewReader(buf))
	if err != nil {
		return nil, logger.WrapError(err, "")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}
	defer resp.Body.Close()

	var out PaymentResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, logger.WrapError(err, "")
	}
	if resp.StatusCode >= 300 || out.Status != "success" {
		return nil, fmt.Errorf("flutterwave create payment failed: status=%d message=%q", resp.StatusCode, out.Message)
	}

	return &out, nil
}

// VerifyHash compares the verif-hash header with the configured secret hash.
func (c *Client) VerifyHash(provided string) bool {
	if c == nil || c.secretHash == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.secretHash), []byte(provided)) == 1
}

type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"`
	} `json:"data"`
}

func (e *WebhookEvent) Succeeded() bool {
	return e.Event == EventChargeCompleted && strings.EqualFold(e.Data.Status, "successful")
}
