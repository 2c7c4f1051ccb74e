// Package paystack talks to the Paystack transactions API and checks its
// webhook signatures.
package paystack

import (
	"BPIApi/pkg/logger"
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SignatureHeader carries the HMAC-SHA512 of the raw webhook body.
const SignatureHeader = "x-paystack-signature"

// EventChargeSuccess is the only webhook event that settles a payment.
const EventChargeSuccess = "charge.success"

var ErrNotConfigured = errors.New("paystack client not configured")

type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

type InitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type InitializeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// ToKobo converts a naira amount to the integer minor unit Paystack expects.
func ToKobo(naira float64) int64 {
	return decimal.NewFromFloat(naira).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromKobo converts a Paystack minor unit amount back to naira.
func FromKobo(kobo int64) float64 {
	return decimal.New(kobo, -2).InexactFloat64()
}

// Initialize opens a checkout and returns the hosted payment page.
func (c *Client) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	if c == nil || c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	buf, err := json.Marshal(req)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(buf))
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

	var out InitializeResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, logger.WrapError(err, "")
	}
	if resp.StatusCode >= 300 || !out.Status {
		return nil, fmt.Errorf("paystack initialize failed: status=%d message=%q", resp.StatusCode, out.Message)
	}

	return &out, nil
}

// VerifySignature checks the webhook body against the x-paystack-signature header.
func (c *Client) VerifySignature(body []byte, provided string) bool {
	if c == nil || c.secretKey == "" {
		return false
	}
	return VerifySignature(c.secretKey, body, provided)
}

func VerifySignature(secret string, body []byte, provided string) bool {
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(provided)))
	if err != nil || len(got) == 0 {
		return false
	}
	return hmac.Equal(Sign(secret, body), got)
}

// Sign returns the raw HMAC-SHA512 of body keyed with secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// WebhookEvent is the subset of a Paystack webhook the API consumes.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
		Status    string `json:"status"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
	} `json:"data"`
}

// Succeeded reports whether the event settles the referenced payment.
func (e *WebhookEvent) Succeeded() bool {
	return e.Event == EventChargeSuccess && strings.EqualFold(e.Data.Status, "success")
}
