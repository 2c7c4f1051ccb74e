package paystack

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_123"
	body := []byte(`{"event":"charge.success","data":{"reference":"PKG-1"}}`)
	sig := hex.EncodeToString(Sign(secret, body))

	assert.True(t, VerifySignature(secret, body, sig))
	assert.True(t, VerifySignature(secret, body, " "+sig+" "))
	assert.False(t, VerifySignature(secret, body, "deadbeef"))
	assert.False(t, VerifySignature(secret, body, ""))
	assert.False(t, VerifySignature("other", body, sig))

	var unset *Client
	assert.False(t, unset.VerifySignature(body, sig))
}

func TestKoboConversion(t *testing.T) {
	assert.Equal(t, int64(1075050), ToKobo(10750.50))
	assert.Equal(t, int64(1), ToKobo(0.005))
	assert.Equal(t, 10750.5, FromKobo(1075050))
}

func TestInitialize(t *testing.T) {
	var got InitializeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":true,"message":"ok","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"PKG-1"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "sk_test_123")
	resp, err := client.Initialize(context.Background(), &InitializeRequest{
		Email: "ada@bpi.test", Amount: ToKobo(5000), Reference: "PKG-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", resp.Data.AuthorizationURL)
	assert.Equal(t, int64(500000), got.Amount)
	assert.Equal(t, "PKG-1", got.Reference)
}

func TestInitializeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":false,"message":"Invalid key"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk_bad").Initialize(context.Background(), &InitializeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")

	_, err = NewClient(srv.URL, "").Initialize(context.Background(), &InitializeRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWebhookEventSucceeded(t *testing.T) {
	var ev WebhookEvent
	require.NoError(t, json.Unmarshal([]byte(`{"event":"charge.success","data":{"reference":"R","status":"success","amount":100}}`), &ev))
	assert.True(t, ev.Succeeded())

	ev.Data.Status = "failed"
	assert.False(t, ev.Succeeded())
}
