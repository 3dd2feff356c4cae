// Package paypal provides tools to create and capture orders
// via the PayPal Checkout Orders v2 API.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
)

const (
	CreateOrderToolName  = "PayPalCreateOrder"
	CaptureOrderToolName = "PayPalCaptureOrder"

	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"

	maxBodySize = 4096
)

// Config holds the PayPal app credentials and HTTP client.
type Config struct {
	ClientID   string
	Secret     string
	Live       bool
	BaseURL    string
	HTTPClient *http.Client
}

// NewConfig reads the app credentials from PAYPAL_CLIENT_ID and
// PAYPAL_CLIENT_SECRET. The sandbox endpoint is used unless
// PAYPAL_LIVE is set to a true value.
func NewConfig() (*Config, error) {
	clientID := os.Getenv("PAYPAL_CLIENT_ID")
	secret := os.Getenv("PAYPAL_CLIENT_SECRET")
	if clientID == "" || secret == "" {
		return nil, errors.Errorf("PAYPAL_CLIENT_ID or PAYPAL_CLIENT_SECRET is not set")
	}
	live := os.Getenv("PAYPAL_LIVE") == "true"
	return &Config{ClientID: clientID, Secret: secret, Live: live}, nil
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
}

func (c *Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Live {
		return liveBaseURL
	}
	return sandboxBaseURL
}

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// accessToken fetches an OAuth2 token with the client-credentials grant.
// Tokens are not cached: tools are stateless and PayPal rate limits
// token requests generously for server integrations.
func (c *Config) accessToken(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client().Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch access token")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode/100 != 2 {
		return "", errors.Errorf("paypal: token request failed: status %d: %s",
			resp.StatusCode, llmutils.TruncateString(string(bs), maxBodySize))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(bs, &out); err != nil {
		return "", errors.Wrap(err, "failed to parse token response")
	}
	if out.AccessToken == "" {
		return "", errors.New("paypal: empty access token")
	}
	return out.AccessToken, nil
}

func (c *Config) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		rdr = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, rdr)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call PayPal API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("paypal: request failed: status %d: %s",
			resp.StatusCode, llmutils.TruncateString(string(bs), maxBodySize))
	}
	if out != nil {
		if err := json.Unmarshal(bs, out); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
	}
	return nil
}

// CreateOrderRequest represents the tool input.
type CreateOrderRequest struct {
	Amount      string `json:"Amount" jsonschema:"title=Amount,description=The order amount as a decimal string such as 49.99." validate:"required"`
	Currency    string `json:"Currency,omitempty" jsonschema:"title=Currency,description=The ISO currency code (default USD)."`
	Description string `json:"Description,omitempty" jsonschema:"title=Description,description=Optional order description."`
}

// CreateOrderResult represents the tool output.
type CreateOrderResult struct {
	OrderID    string `json:"order_id"`
	Status     string `json:"status"`
	ApproveURL string `json:"approve_url,omitempty"`
}

func (r *CreateOrderResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *CreateOrderResult) String() string {
	return fmt.Sprintf("order %s: %s", r.OrderID, r.Status)
}

// CreateOrderTool creates a PayPal checkout order.
type CreateOrderTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[CreateOrderRequest, CreateOrderResult] = (*CreateOrderTool)(nil)

func NewCreateOrderTool(cfg *Config) (*CreateOrderTool, error) {
	sc, err := schema.New(reflect.TypeOf(CreateOrderRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &CreateOrderTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *CreateOrderTool) Name() string { return CreateOrderToolName }

func (t *CreateOrderTool) Description() string {
	return "Creates a PayPal checkout order and returns the order ID and approval link."
}

func (t *CreateOrderTool) Parameters() any { return t.funcParams }

func (t *CreateOrderTool) Run(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	if req.Amount == "" {
		return nil, errors.New("invalid request: empty amount")
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	unit := map[string]any{
		"amount": map[string]any{
			"currency_code": currency,
			"value":         req.Amount,
		},
	}
	if req.Description != "" {
		unit["description"] = req.Description
	}
	body := map[string]any{
		"intent":         "CAPTURE",
		"purchase_units": []any{unit},
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	err := t.cfg.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out)
	if err != nil {
		return nil, err
	}

	res := &CreateOrderResult{
		OrderID: out.ID,
		Status:  out.Status,
	}
	for _, link := range out.Links {
		if link.Rel == "approve" {
			res.ApproveURL = link.Href
			break
		}
	}
	return res, nil
}

func (t *CreateOrderTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[CreateOrderRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// CaptureOrderRequest represents the tool input.
type CaptureOrderRequest struct {
	OrderID string `json:"OrderID" jsonschema:"title=OrderID,description=The ID of the approved order to capture." validate:"required"`
}

// CaptureOrderResult represents the tool output.
type CaptureOrderResult struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	CaptureID string `json:"capture_id,omitempty"`
}

func (r *CaptureOrderResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *CaptureOrderResult) String() string {
	return fmt.Sprintf("capture of %s: %s", r.OrderID, r.Status)
}

// CaptureOrderTool captures payment for an approved order.
type CaptureOrderTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[CaptureOrderRequest, CaptureOrderResult] = (*CaptureOrderTool)(nil)

func NewCaptureOrderTool(cfg *Config) (*CaptureOrderTool, error) {
	sc, err := schema.New(reflect.TypeOf(CaptureOrderRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &CaptureOrderTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *CaptureOrderTool) Name() string { return CaptureOrderToolName }

func (t *CaptureOrderTool) Description() string {
	return "Captures payment for an approved PayPal order."
}

func (t *CaptureOrderTool) Parameters() any { return t.funcParams }

func (t *CaptureOrderTool) Run(ctx context.Context, req *CaptureOrderRequest) (*CaptureOrderResult, error) {
	var out struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	err := t.cfg.do(ctx, http.MethodPost, "/v2/checkout/orders/"+req.OrderID+"/capture", struct{}{}, &out)
	if err != nil {
		return nil, err
	}

	res := &CaptureOrderResult{
		OrderID: out.ID,
		Status:  out.Status,
	}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		res.CaptureID = out.PurchaseUnits[0].Payments.Captures[0].ID
	}
	return res, nil
}

func (t *CaptureOrderTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[CaptureOrderRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
