package shiprocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIsCachedAcrossRequests(t *testing.T) {
	var logins int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/external/auth/login":
			atomic.AddInt64(&logins, 1)
			json.NewEncoder(w).Encode(map[string]string{"token": "tok_1"})
		default:
			assert.Equal(t, "Bearer tok_1", r.Header.Get("Authorization"))
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "shop@example.com", "secret")
	ctx := context.Background()

	_, err := c.TrackShipment(ctx, "12345")
	require.NoError(t, err)
	_, err = c.TrackShipment(ctx, "12345")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&logins), "second request reuses the cached token")
}

func TestUnauthorizedInvalidatesToken(t *testing.T) {
	var logins int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/external/auth/login":
			n := atomic.AddInt64(&logins, 1)
			json.NewEncoder(w).Encode(map[string]string{"token": "tok_" + string(rune('0'+n))})
		default:
			// First authenticated call hits a revoked token.
			if r.Header.Get("Authorization") == "Bearer tok_1" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"message":"Unauthorized"}`))
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "shop@example.com", "secret")
	ctx := context.Background()

	// The 401 propagates to the caller, no silent retry.
	_, err := c.TrackShipment(ctx, "12345")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnauthorized, upstream.StatusCode)

	// The next call logs in again with fresh credentials.
	_, err = c.TrackShipment(ctx, "12345")
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&logins))
}

func TestLoginFailurePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"bad credentials"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "shop@example.com", "wrong")

	_, err := c.TrackShipment(context.Background(), "12345")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
}

func TestGeneratePaymentLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/external/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok_1"})
		case "/v1/external/payments/generate-link":
			var req PaymentLinkRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(499), req.Amount, "link amounts are rupees")
			json.NewEncoder(w).Encode(map[string]string{
				"payment_link_id": "pl_1",
				"payment_url":     "https://sr.to/pay/pl_1",
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "shop@example.com", "secret")

	link, err := c.GeneratePaymentLink(context.Background(), &PaymentLinkRequest{
		OrderID: "order-1",
		Amount:  499,
	})
	require.NoError(t, err)
	assert.Equal(t, "pl_1", link.ID)
	assert.Equal(t, "https://sr.to/pay/pl_1", link.URL)
	assert.Equal(t, "created", link.Status, "missing provider status defaults to created")
}

func TestCreateOrderDecodesNumericIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/external/auth/login":
			json.NewEncoder(w).Encode(map[string]string{"token": "tok_1"})
		case "/v1/external/orders/create/adhoc":
			// Shiprocket returns ids as numbers, not strings.
			w.Write([]byte(`{"order_id":443278120,"shipment_id":441385371,"status":"NEW","courier_name":""}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "shop@example.com", "secret")

	resp, err := c.CreateOrder(context.Background(), &CreateOrderRequest{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, "443278120", resp.OrderID.String())
	assert.Equal(t, "441385371", resp.ShipmentID.String())
}
