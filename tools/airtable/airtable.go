// Package airtable provides tools to list, create and update records
// in Airtable bases via the Airtable REST API.
package airtable

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
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
)

const (
	ListRecordsToolName  = "AirtableListRecords"
	CreateRecordToolName = "AirtableCreateRecord"
	UpdateRecordToolName = "AirtableUpdateRecord"

	defaultBaseURL = "https://api.airtable.com/v0"
	maxBodySize    = 4096
)

// Config holds the Airtable credentials and HTTP client.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewConfig reads the API key from AIRTABLE_API_KEY.
func NewConfig() (*Config, error) {
	apikey := os.Getenv("AIRTABLE_API_KEY")
	if apikey == "" {
		return nil, errors.Errorf("AIRTABLE_API_KEY is not set")
	}
	return &Config{APIKey: apikey}, nil
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
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
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call Airtable API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("airtable: request failed: status %d: %s",
			resp.StatusCode, llmutils.TruncateString(string(bs), maxBodySize))
	}
	if out != nil {
		if err := json.Unmarshal(bs, out); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
	}
	return nil
}

// Record is an Airtable record mapped into the tool return shape.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type recordsEnvelope struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// ListRecordsRequest represents the tool input.
type ListRecordsRequest struct {
	BaseID          string `json:"BaseID" jsonschema:"title=BaseID,description=The Airtable base ID (starts with app)." validate:"required"`
	Table           string `json:"Table" jsonschema:"title=Table,description=The table name or ID." validate:"required"`
	FilterByFormula string `json:"FilterByFormula,omitempty" jsonschema:"title=FilterByFormula,description=Optional Airtable formula to filter records."`
	MaxRecords      int    `json:"MaxRecords,omitempty" jsonschema:"title=MaxRecords,description=Maximum number of records to return (default 100)."`
}

// ListRecordsResult represents the tool output.
type ListRecordsResult struct {
	Records []Record `json:"records"`
}

func (r *ListRecordsResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *ListRecordsResult) String() string {
	var buf bytes.Buffer
	for _, rec := range r.Records {
		fmt.Fprintf(&buf, "- ID: %s\n  FIELDS: %s\n", rec.ID, llmutils.ToJSON(rec.Fields))
	}
	return buf.String()
}

// ListRecordsTool lists records from an Airtable table.
type ListRecordsTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[ListRecordsRequest, ListRecordsResult] = (*ListRecordsTool)(nil)

func NewListRecordsTool(cfg *Config) (*ListRecordsTool, error) {
	sc, err := schema.New(reflect.TypeOf(ListRecordsRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ListRecordsTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *ListRecordsTool) Name() string { return ListRecordsToolName }

func (t *ListRecordsTool) Description() string {
	return "Lists records from an Airtable table, with an optional filter formula."
}

func (t *ListRecordsTool) Parameters() any { return t.funcParams }

func (t *ListRecordsTool) Run(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResult, error) {
	query := url.Values{}
	if req.FilterByFormula != "" {
		query.Set("filterByFormula", req.FilterByFormula)
	}
	maxRecords := req.MaxRecords
	if maxRecords <= 0 {
		maxRecords = 100
	}
	query.Set("maxRecords", strconv.Itoa(maxRecords))

	var env recordsEnvelope
	err := t.cfg.do(ctx, http.MethodGet, "/"+req.BaseID+"/"+url.PathEscape(req.Table), query, nil, &env)
	if err != nil {
		return nil, err
	}
	return &ListRecordsResult{Records: env.Records}, nil
}

func (t *ListRecordsTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[ListRecordsRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// CreateRecordRequest represents the tool input.
type CreateRecordRequest struct {
	BaseID string         `json:"BaseID" jsonschema:"title=BaseID,description=The Airtable base ID (starts with app)." validate:"required"`
	Table  string         `json:"Table" jsonschema:"title=Table,description=The table name or ID." validate:"required"`
	Fields map[string]any `json:"Fields" jsonschema:"title=Fields,description=Field name to value map for the new record." validate:"required"`
}

// CreateRecordResult represents the tool output.
type CreateRecordResult struct {
	Record Record `json:"record"`
}

func (r *CreateRecordResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// CreateRecordTool creates a record in an Airtable table.
type CreateRecordTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[CreateRecordRequest, CreateRecordResult] = (*CreateRecordTool)(nil)

func NewCreateRecordTool(cfg *Config) (*CreateRecordTool, error) {
	sc, err := schema.New(reflect.TypeOf(CreateRecordRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &CreateRecordTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *CreateRecordTool) Name() string { return CreateRecordToolName }

func (t *CreateRecordTool) Description() string {
	return "Creates a new record in an Airtable table."
}

func (t *CreateRecordTool) Parameters() any { return t.funcParams }

func (t *CreateRecordTool) Run(ctx context.Context, req *CreateRecordRequest) (*CreateRecordResult, error) {
	if len(req.Fields) == 0 {
		return nil, errors.New("invalid request: empty fields")
	}
	body := map[string]any{
		"fields": req.Fields,
	}
	var rec Record
	err := t.cfg.do(ctx, http.MethodPost, "/"+req.BaseID+"/"+url.PathEscape(req.Table), nil, body, &rec)
	if err != nil {
		return nil, err
	}
	return &CreateRecordResult{Record: rec}, nil
}

func (t *CreateRecordTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[CreateRecordRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// UpdateRecordRequest represents the tool input.
type UpdateRecordRequest struct {
	BaseID   string         `json:"BaseID" jsonschema:"title=BaseID,description=The Airtable base ID (starts with app)." validate:"required"`
	Table    string         `json:"Table" jsonschema:"title=Table,description=The table name or ID." validate:"required"`
	RecordID string         `json:"RecordID" jsonschema:"title=RecordID,description=The ID of the record to update (starts with rec)." validate:"required"`
	Fields   map[string]any `json:"Fields" jsonschema:"title=Fields,description=Field name to value map to update." validate:"required"`
}

// UpdateRecordResult represents the tool output.
type UpdateRecordResult struct {
	Record Record `json:"record"`
}

func (r *UpdateRecordResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// UpdateRecordTool updates fields of an existing Airtable record.
type UpdateRecordTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[UpdateRecordRequest, UpdateRecordResult] = (*UpdateRecordTool)(nil)

func NewUpdateRecordTool(cfg *Config) (*UpdateRecordTool, error) {
	sc, err := schema.New(reflect.TypeOf(UpdateRecordRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &UpdateRecordTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *UpdateRecordTool) Name() string { return UpdateRecordToolName }

func (t *UpdateRecordTool) Description() string {
	return "Updates fields of an existing record in an Airtable table."
}

func (t *UpdateRecordTool) Parameters() any { return t.funcParams }

func (t *UpdateRecordTool) Run(ctx context.Context, req *UpdateRecordRequest) (*UpdateRecordResult, error) {
	if len(req.Fields) == 0 {
		return nil, errors.New("invalid request: empty fields")
	}
	body := map[string]any{
		"fields": req.Fields,
	}
	var rec Record
	err := t.cfg.do(ctx, http.MethodPatch, "/"+req.BaseID+"/"+url.PathEscape(req.Table)+"/"+req.RecordID, nil, body, &rec)
	if err != nil {
		return nil, err
	}
	return &UpdateRecordResult{Record: rec}, nil
}

func (t *UpdateRecordTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[UpdateRecordRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
