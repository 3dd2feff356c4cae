// Package cloudflare provides tools to manage zones, DNS records and the
// cache via the Cloudflare v4 API.
package cloudflare

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
	ListZonesToolName       = "CloudflareListZones"
	ListDNSRecordsToolName  = "CloudflareListDNSRecords"
	CreateDNSRecordToolName = "CloudflareCreateDNSRecord"
	PurgeCacheToolName      = "CloudflarePurgeCache"

	defaultBaseURL = "https://api.cloudflare.com/client/v4"
)

// Config holds the Cloudflare API token and HTTP client.
type Config struct {
	APIToken   string
	BaseURL    string
	HTTPClient *http.Client
}

// NewConfig reads the API token from CLOUDFLARE_API_TOKEN.
func NewConfig() (*Config, error) {
	token := os.Getenv("CLOUDFLARE_API_TOKEN")
	if token == "" {
		return nil, errors.Errorf("CLOUDFLARE_API_TOKEN is not set")
	}
	return &Config{APIToken: token}, nil
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
}

// Cloudflare wraps every v4 response in a success envelope.
type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

func (c *Config) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	uri := baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		rdr = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, rdr)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call Cloudflare API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	var env envelope
	if err := json.Unmarshal(bs, &env); err != nil {
		return errors.Errorf("cloudflare: request failed: status %d", resp.StatusCode)
	}
	if !env.Success {
		var msgs []string
		for _, e := range env.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
		}
		return errors.Errorf("cloudflare: request failed: %s", strings.Join(msgs, "; "))
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
	}
	return nil
}

// Zone is a Cloudflare zone mapped into the tool return shape.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ListZonesRequest represents the tool input.
type ListZonesRequest struct {
	Name string `json:"Name,omitempty" jsonschema:"title=Name,description=Optional domain name to filter zones by."`
}

// ListZonesResult represents the tool output.
type ListZonesResult struct {
	Zones []Zone `json:"zones"`
}

func (r *ListZonesResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *ListZonesResult) String() string {
	var buf bytes.Buffer
	for _, z := range r.Zones {
		fmt.Fprintf(&buf, "- %s (%s) %s\n", z.Name, z.ID, z.Status)
	}
	return buf.String()
}

// ListZonesTool lists zones in the account.
type ListZonesTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[ListZonesRequest, ListZonesResult] = (*ListZonesTool)(nil)

func NewListZonesTool(cfg *Config) (*ListZonesTool, error) {
	sc, err := schema.New(reflect.TypeOf(ListZonesRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ListZonesTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *ListZonesTool) Name() string        { return ListZonesToolName }
func (t *ListZonesTool) Description() string { return "Lists Cloudflare zones in the account." }
func (t *ListZonesTool) Parameters() any     { return t.funcParams }

func (t *ListZonesTool) Run(ctx context.Context, req *ListZonesRequest) (*ListZonesResult, error) {
	query := url.Values{}
	if req.Name != "" {
		query.Set("name", req.Name)
	}
	var zones []Zone
	err := t.cfg.do(ctx, http.MethodGet, "/zones", query, nil, &zones)
	if err != nil {
		return nil, err
	}
	return &ListZonesResult{Zones: zones}, nil
}

func (t *ListZonesTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[ListZonesRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// DNSRecord is a Cloudflare DNS record mapped into the tool return shape.
type DNSRecord struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// ListDNSRecordsRequest represents the tool input.
type ListDNSRecordsRequest struct {
	ZoneID string `json:"ZoneID" jsonschema:"title=ZoneID,description=The zone ID to list records for." validate:"required"`
	Type   string `json:"Type,omitempty" jsonschema:"title=Type,description=Optional record type filter such as A or CNAME."`
	Name   string `json:"Name,omitempty" jsonschema:"title=Name,description=Optional record name filter."`
}

// ListDNSRecordsResult represents the tool output.
type ListDNSRecordsResult struct {
	Records []DNSRecord `json:"records"`
}

func (r *ListDNSRecordsResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *ListDNSRecordsResult) String() string {
	var buf bytes.Buffer
	for _, rec := range r.Records {
		fmt.Fprintf(&buf, "- %s %s -> %s (ttl=%d)\n", rec.Type, rec.Name, rec.Content, rec.TTL)
	}
	return buf.String()
}

// ListDNSRecordsTool lists DNS records of a zone.
type ListDNSRecordsTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[ListDNSRecordsRequest, ListDNSRecordsResult] = (*ListDNSRecordsTool)(nil)

func NewListDNSRecordsTool(cfg *Config) (*ListDNSRecordsTool, error) {
	sc, err := schema.New(reflect.TypeOf(ListDNSRecordsRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ListDNSRecordsTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *ListDNSRecordsTool) Name() string        { return ListDNSRecordsToolName }
func (t *ListDNSRecordsTool) Description() string { return "Lists DNS records of a Cloudflare zone." }
func (t *ListDNSRecordsTool) Parameters() any     { return t.funcParams }

func (t *ListDNSRecordsTool) Run(ctx context.Context, req *ListDNSRecordsRequest) (*ListDNSRecordsResult, error) {
	query := url.Values{}
	if req.Type != "" {
		query.Set("type", req.Type)
	}
	if req.Name != "" {
		query.Set("name", req.Name)
	}
	var records []DNSRecord
	err := t.cfg.do(ctx, http.MethodGet, "/zones/"+req.ZoneID+"/dns_records", query, nil, &records)
	if err != nil {
		return nil, err
	}
	return &ListDNSRecordsResult{Records: records}, nil
}

func (t *ListDNSRecordsTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[ListDNSRecordsRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// CreateDNSRecordRequest represents the tool input.
type CreateDNSRecordRequest struct {
	ZoneID  string `json:"ZoneID" jsonschema:"title=ZoneID,description=The zone ID to create the record in." validate:"required"`
	Type    string `json:"Type" jsonschema:"title=Type,description=The record type such as A, AAAA, CNAME or TXT." validate:"required"`
	Name    string `json:"Name" jsonschema:"title=Name,description=The record name." validate:"required"`
	Content string `json:"Content" jsonschema:"title=Content,description=The record content." validate:"required"`
	TTL     int    `json:"TTL,omitempty" jsonschema:"title=TTL,description=Time to live in seconds; 1 means automatic."`
	Proxied bool   `json:"Proxied,omitempty" jsonschema:"title=Proxied,description=Whether the record is proxied through Cloudflare."`
}

// CreateDNSRecordResult represents the tool output.
type CreateDNSRecordResult struct {
	Record DNSRecord `json:"record"`
}

func (r *CreateDNSRecordResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// CreateDNSRecordTool creates a DNS record in a zone.
type CreateDNSRecordTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[CreateDNSRecordRequest, CreateDNSRecordResult] = (*CreateDNSRecordTool)(nil)

func NewCreateDNSRecordTool(cfg *Config) (*CreateDNSRecordTool, error) {
	sc, err := schema.New(reflect.TypeOf(CreateDNSRecordRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &CreateDNSRecordTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *CreateDNSRecordTool) Name() string { return CreateDNSRecordToolName }

func (t *CreateDNSRecordTool) Description() string {
	return "Creates a DNS record in a Cloudflare zone."
}

func (t *CreateDNSRecordTool) Parameters() any { return t.funcParams }

func (t *CreateDNSRecordTool) Run(ctx context.Context, req *CreateDNSRecordRequest) (*CreateDNSRecordResult, error) {
	ttl := req.TTL
	if ttl <= 0 {
		ttl = 1 // automatic
	}
	body := map[string]any{
		"type":    req.Type,
		"name":    req.Name,
		"content": req.Content,
		"ttl":     ttl,
		"proxied": req.Proxied,
	}
	var rec DNSRecord
	err := t.cfg.do(ctx, http.MethodPost, "/zones/"+req.ZoneID+"/dns_records", nil, body, &rec)
	if err != nil {
		return nil, err
	}
	return &CreateDNSRecordResult{Record: rec}, nil
}

func (t *CreateDNSRecordTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[CreateDNSRecordRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// PurgeCacheRequest represents the tool input.
type PurgeCacheRequest struct {
	ZoneID string   `json:"ZoneID" jsonschema:"title=ZoneID,description=The zone ID to purge." validate:"required"`
	Files  []string `json:"Files,omitempty" jsonschema:"title=Files,description=Optional list of URLs to purge; purges everything when empty."`
}

// PurgeCacheResult represents the tool output.
type PurgeCacheResult struct {
	ID string `json:"id"`
}

func (r *PurgeCacheResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// PurgeCacheTool purges the zone cache.
type PurgeCacheTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[PurgeCacheRequest, PurgeCacheResult] = (*PurgeCacheTool)(nil)

func NewPurgeCacheTool(cfg *Config) (*PurgeCacheTool, error) {
	sc, err := schema.New(reflect.TypeOf(PurgeCacheRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &PurgeCacheTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *PurgeCacheTool) Name() string { return PurgeCacheToolName }

func (t *PurgeCacheTool) Description() string {
	return "Purges the Cloudflare cache for a zone, either fully or for specific URLs."
}

func (t *PurgeCacheTool) Parameters() any { return t.funcParams }

func (t *PurgeCacheTool) Run(ctx context.Context, req *PurgeCacheRequest) (*PurgeCacheResult, error) {
	var body map[string]any
	if len(req.Files) > 0 {
		body = map[string]any{"files": req.Files}
	} else {
		body = map[string]any{"purge_everything": true}
	}
	var out PurgeCacheResult
	err := t.cfg.do(ctx, http.MethodPost, "/zones/"+req.ZoneID+"/purge_cache", nil, body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *PurgeCacheTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[PurgeCacheRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
