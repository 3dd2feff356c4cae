package paypal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/tools/paypal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client1", user)
			assert.Equal(t, "secret1", pass)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-abc"})
			return
		}
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		handler(w, r)
	}))
}

func Test_CreateOrder(t *testing.T) {
	t.Setenv("PAYPAL_CLIENT_ID", "client1")
	t.Setenv("PAYPAL_CLIENT_SECRET", "secret1")

	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/checkout/orders", r.URL.Path)

		var body map[string]any
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err)
		assert.Equal(t, "CAPTURE", body["intent"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "ORDER-1",
			"status": "CREATED",
			"links": []map[string]any{
				{"href": "https://api.sandbox.paypal.com/v2/checkout/orders/ORDER-1", "rel": "self"},
				{"href": "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1", "rel": "approve"},
			},
		})
	})
	defer server.Close()

	cfg, err := paypal.NewConfig()
	require.NoError(t, err)
	cfg.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	tool, err := paypal.NewCreateOrderTool(cfg)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = tool.Call(ctx, "gibberish")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	res, err := tool.Run(ctx, &paypal.CreateOrderRequest{Amount: "49.99", Description: "Pro plan"})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", res.OrderID)
	assert.Equal(t, "CREATED", res.Status)
	assert.Contains(t, res.ApproveURL, "checkoutnow")
	assert.Equal(t, "order ORDER-1: CREATED", res.String())

	_, err = tool.Run(ctx, &paypal.CreateOrderRequest{})
	assert.EqualError(t, err, "invalid request: empty amount")
}

func Test_CaptureOrder(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders/ORDER-1/capture", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "ORDER-1",
			"status": "COMPLETED",
			"purchase_units": []map[string]any{
				{"payments": map[string]any{"captures": []map[string]any{{"id": "CAP-9"}}}},
			},
		})
	})
	defer server.Close()

	cfg := (&paypal.Config{ClientID: "client1", Secret: "secret1"}).
		WithBaseURL(server.URL).WithHTTPClient(server.Client())

	tool, err := paypal.NewCaptureOrderTool(cfg)
	require.NoError(t, err)

	out, err := tool.Call(context.Background(), `{"OrderID":"ORDER-1"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"order_id":"ORDER-1","status":"COMPLETED","capture_id":"CAP-9"}`, out)
}

func Test_TokenError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	cfg := (&paypal.Config{ClientID: "bad", Secret: "bad"}).
		WithBaseURL(server.URL).WithHTTPClient(server.Client())

	tool, err := paypal.NewCreateOrderTool(cfg)
	require.NoError(t, err)

	_, err = tool.Run(context.Background(), &paypal.CreateOrderRequest{Amount: "1.00"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token request failed: status 401")
	assert.Contains(t, err.Error(), "invalid_client")
}
