// Package shiprocket is a thin client for the Shiprocket external API:
// serviceability checks, shipment creation, tracking, payment links and
// document generation. Upstream errors are propagated, not retried.
package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"naturalpuff/internal/util"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://apiv2.shiprocket.in"

// tokenTTL is shorter than Shiprocket's advertised validity so a token is
// always refreshed before the provider expires it.
const tokenTTL = 23 * time.Hour

// tokenCache holds the bearer token with its local expiry
type tokenCache struct {
	token     string
	expiresAt time.Time
}

// Client talks to the Shiprocket API with a guarded get-or-refresh token
// cache. A 401 from upstream invalidates the cached token immediately
// instead of waiting out the wall-clock expiry.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	logger     *zap.Logger

	mu    sync.Mutex
	cache tokenCache
}

// NewClient creates a Shiprocket client. baseURL may be empty to use the
// production endpoint.
func NewClient(baseURL, email, password string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		email:    email,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: util.GetLogger(),
	}
}

// UpstreamError carries the status and body of a non-2xx Shiprocket reply
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shiprocket upstream error: status=%d body=%s", e.StatusCode, e.Body)
}

// getToken returns a cached bearer token, logging in again when the cache
// is empty or past its local expiry.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache.token != "" && time.Now().Before(c.cache.expiresAt) {
		return c.cache.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/external/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shiprocket login failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &loginResp); err != nil {
		return "", fmt.Errorf("shiprocket login response malformed: %w", err)
	}
	if loginResp.Token == "" {
		return "", fmt.Errorf("shiprocket login returned empty token")
	}

	c.cache = tokenCache{token: loginResp.Token, expiresAt: time.Now().Add(tokenTTL)}
	c.logger.Info("Shiprocket token refreshed",
		zap.Time("expires_at", c.cache.expiresAt))
	return c.cache.token, nil
}

// invalidateToken drops the cached token so the next call logs in again
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.cache = tokenCache{}
	c.mu.Unlock()
}

// do performs an authenticated request and decodes the JSON reply into out.
// On 401 the token cache is invalidated; the error still propagates, the
// caller decides whether to try again.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.ShiprocketRequestsTotal.WithLabelValues(path, "error").Inc()
		return fmt.Errorf("shiprocket request failed: %w", err)
	}
	defer resp.Body.Close()

	util.ShiprocketRequestLatency.Observe(time.Since(start).Seconds())
	util.ShiprocketRequestsTotal.WithLabelValues(path, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("shiprocket response malformed: %w", err)
		}
	}
	return nil
}

// ServiceabilityRequest checks courier availability between two pincodes
type ServiceabilityRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	WeightKg         float64
	COD              bool
}

// CheckServiceability proxies the courier serviceability endpoint and
// returns the raw provider response.
func (c *Client) CheckServiceability(ctx context.Context, req ServiceabilityRequest) (json.RawMessage, error) {
	cod := "0"
	if req.COD {
		cod = "1"
	}
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPostcode)
	q.Set("delivery_postcode", req.DeliveryPostcode)
	q.Set("weight", fmt.Sprintf("%.2f", req.WeightKg))
	q.Set("cod", cod)

	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/v1/external/courier/serviceability/?"+q.Encode(), nil, &out)
	return out, err
}

// OrderItem is one line of a shipment order
type OrderItem struct {
	Name    string `json:"name"`
	SKU     string `json:"sku"`
	Units   int    `json:"units"`
	Selling int64  `json:"selling_price"` // rupees
}

// CreateOrderRequest creates an adhoc shipment order
type CreateOrderRequest struct {
	OrderID           string      `json:"order_id"`
	OrderDate         string      `json:"order_date"`
	PickupLocation    string      `json:"pickup_location"`
	BillingName       string      `json:"billing_customer_name"`
	BillingAddress    string      `json:"billing_address"`
	BillingCity       string      `json:"billing_city"`
	BillingPincode    string      `json:"billing_pincode"`
	BillingState      string      `json:"billing_state"`
	BillingCountry    string      `json:"billing_country"`
	BillingEmail      string      `json:"billing_email"`
	BillingPhone      string      `json:"billing_phone"`
	ShippingIsBilling bool        `json:"shipping_is_billing"`
	OrderItems        []OrderItem `json:"order_items"`
	PaymentMethod     string      `json:"payment_method"` // Prepaid or COD
	SubTotal          int64       `json:"sub_total"`      // rupees
	Length            float64     `json:"length"`
	Breadth           float64     `json:"breadth"`
	Height            float64     `json:"height"`
	Weight            float64     `json:"weight"`
}

// CreateOrderResponse carries the identifiers persisted onto our order row
type CreateOrderResponse struct {
	OrderID     json.Number `json:"order_id"`
	ShipmentID  json.Number `json:"shipment_id"`
	Status      string      `json:"status"`
	CourierName string      `json:"courier_name"`
}

// CreateOrder creates a shipment order for a paid order
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	var out CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, "/v1/external/orders/create/adhoc", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrackShipment returns tracking data for a shipment id
func (c *Client) TrackShipment(ctx context.Context, shipmentID string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodGet, "/v1/external/courier/track/shipment/"+url.PathEscape(shipmentID), nil, &out)
	return out, err
}

// PaymentLinkRequest asks Shiprocket to host a payment link for an order
type PaymentLinkRequest struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"` // rupees
	Purpose string `json:"purpose,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// PaymentLink is the hosted link handle stored on the order as a
// link-kind payment reference.
type PaymentLink struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// GeneratePaymentLink creates a hosted payment link
func (c *Client) GeneratePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error) {
	var out struct {
		PaymentLinkID string `json:"payment_link_id"`
		PaymentURL    string `json:"payment_url"`
		Status        string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/external/payments/generate-link", req, &out); err != nil {
		return nil, err
	}
	if out.PaymentURL == "" {
		return nil, fmt.Errorf("shiprocket returned empty payment link")
	}
	status := out.Status
	if status == "" {
		status = "created"
	}
	return &PaymentLink{ID: out.PaymentLinkID, URL: out.PaymentURL, Status: status}, nil
}

// GenerateLabel generates shipping labels for shipment ids
func (c *Client) GenerateLabel(ctx context.Context, shipmentIDs []string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/v1/external/courier/generate/label",
		map[string]interface{}{"shipment_id": shipmentIDs}, &out)
	return out, err
}

// GenerateInvoice generates invoices for shiprocket order ids
func (c *Client) GenerateInvoice(ctx context.Context, orderIDs []string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, http.MethodPost, "/v1/external/orders/print/invoice",
		map[string]interface{}{"ids": orderIDs}, &out)
	return out, err
}
