package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPayPalTestServer(t *testing.T, orderHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		w.Write([]byte(`{"access_token":"token-abc","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", orderHandler)
	mux.HandleFunc("/v2/checkout/orders/", orderHandler)
	return httptest.NewServer(mux)
}

func TestCreateOrder(t *testing.T) {
	server := newPayPalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"id": "ORDER-1",
			"links": [
				{"href": "https://paypal.test/self", "rel": "self"},
				{"href": "https://paypal.test/approve", "rel": "approve"}
			]
		}`))
	})
	defer server.Close()

	client := NewPayPalClient("client-id", "client-secret").WithBaseURL(server.URL)
	order, err := client.CreateOrder(context.Background(), "appt-1", "1500.00", "PHP")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
	assert.Equal(t, "https://paypal.test/approve", order.ApproveURL)
}

func TestCaptureOrderCompleted(t *testing.T) {
	server := newPayPalTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/capture")
		w.Write([]byte(`{
			"status": "COMPLETED",
			"purchase_units": [{"payments": {"captures": [{"id": "CAP-9", "status": "COMPLETED"}]}}]
		}`))
	})
	defer server.Close()

	client := NewPayPalClient("client-id", "client-secret").WithBaseURL(server.URL)
	result, err := client.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, "CAP-9", result.CaptureID)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		w.Write([]byte(`{"access_token":"token-abc","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"ORDER-1","links":[]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewPayPalClient("client-id", "client-secret").WithBaseURL(server.URL)
	_, err := client.CreateOrder(context.Background(), "appt-1", "100.00", "PHP")
	require.NoError(t, err)
	_, err = client.CreateOrder(context.Background(), "appt-2", "200.00", "PHP")
	require.NoError(t, err)
	assert.Equal(t, 1, tokenCalls)
}
