// Package whatsapp provides tools to send messages via the
// WhatsApp Business Cloud API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
)

const (
	SendMessageToolName  = "WhatsAppSendMessage"
	SendTemplateToolName = "WhatsAppSendTemplate"

	defaultBaseURL = "https://graph.facebook.com/v19.0"

	maxBodySize = 4096
)

// Config holds the Cloud API access token, the sender phone number ID
// and the HTTP client.
type Config struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	HTTPClient    *http.Client
}

// NewConfig reads the access token and phone number ID from
// WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID.
func NewConfig() (*Config, error) {
	token := os.Getenv("WHATSAPP_ACCESS_TOKEN")
	phoneID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	if token == "" || phoneID == "" {
		return nil, errors.Errorf("WHATSAPP_ACCESS_TOKEN or WHATSAPP_PHONE_NUMBER_ID is not set")
	}
	return &Config{AccessToken: token, PhoneNumberID: phoneID}, nil
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Contacts []struct {
		WaID string `json:"wa_id"`
	} `json:"contacts"`
}

func (c *Config) send(ctx context.Context, body any) (*sendResponse, error) {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	js, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseURL+"/"+c.PhoneNumberID+"/messages", bytes.NewReader(js))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call WhatsApp API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("whatsapp: request failed: status %d: %s",
			resp.StatusCode, llmutils.TruncateString(string(bs), maxBodySize))
	}

	var out sendResponse
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}
	return &out, nil
}

// SendResult represents the tool output for both message tools.
type SendResult struct {
	MessageID string `json:"message_id"`
	Recipient string `json:"recipient,omitempty"`
}

func (r *SendResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SendResult) String() string {
	return fmt.Sprintf("sent message %s to %s", r.MessageID, r.Recipient)
}

func toSendResult(resp *sendResponse) *SendResult {
	res := &SendResult{}
	if len(resp.Messages) > 0 {
		res.MessageID = resp.Messages[0].ID
	}
	if len(resp.Contacts) > 0 {
		res.Recipient = resp.Contacts[0].WaID
	}
	return res
}

// SendMessageRequest represents the tool input.
type SendMessageRequest struct {
	To   string `json:"To" jsonschema:"title=To,description=The recipient phone number in international format." validate:"required"`
	Text string `json:"Text" jsonschema:"title=Text,description=The message text." validate:"required"`
}

// SendMessageTool sends a free-form text message.
// Free-form messages are only delivered inside the 24-hour
// customer service window; use SendTemplateTool otherwise.
type SendMessageTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[SendMessageRequest, SendResult] = (*SendMessageTool)(nil)

func NewSendMessageTool(cfg *Config) (*SendMessageTool, error) {
	sc, err := schema.New(reflect.TypeOf(SendMessageRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SendMessageTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *SendMessageTool) Name() string { return SendMessageToolName }

func (t *SendMessageTool) Description() string {
	return "Sends a WhatsApp text message to a phone number."
}

func (t *SendMessageTool) Parameters() any { return t.funcParams }

func (t *SendMessageTool) Run(ctx context.Context, req *SendMessageRequest) (*SendResult, error) {
	if req.To == "" || req.Text == "" {
		return nil, errors.New("invalid request: recipient and text are required")
	}
	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "text",
		"text":              map[string]any{"body": req.Text},
	}
	resp, err := t.cfg.send(ctx, body)
	if err != nil {
		return nil, err
	}
	return toSendResult(resp), nil
}

func (t *SendMessageTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[SendMessageRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// SendTemplateRequest represents the tool input.
type SendTemplateRequest struct {
	To           string   `json:"To" jsonschema:"title=To,description=The recipient phone number in international format." validate:"required"`
	Template     string   `json:"Template" jsonschema:"title=Template,description=The approved template name." validate:"required"`
	LanguageCode string   `json:"LanguageCode,omitempty" jsonschema:"title=LanguageCode,description=The template language code (default en_US)."`
	BodyParams   []string `json:"BodyParams,omitempty" jsonschema:"title=BodyParams,description=Positional text parameters for the template body."`
}

// SendTemplateTool sends an approved template message.
type SendTemplateTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[SendTemplateRequest, SendResult] = (*SendTemplateTool)(nil)

func NewSendTemplateTool(cfg *Config) (*SendTemplateTool, error) {
	sc, err := schema.New(reflect.TypeOf(SendTemplateRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SendTemplateTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *SendTemplateTool) Name() string { return SendTemplateToolName }

func (t *SendTemplateTool) Description() string {
	return "Sends an approved WhatsApp template message to a phone number."
}

func (t *SendTemplateTool) Parameters() any { return t.funcParams }

func (t *SendTemplateTool) Run(ctx context.Context, req *SendTemplateRequest) (*SendResult, error) {
	if req.To == "" || req.Template == "" {
		return nil, errors.New("invalid request: recipient and template are required")
	}
	lang := req.LanguageCode
	if lang == "" {
		lang = "en_US"
	}

	template := map[string]any{
		"name":     req.Template,
		"language": map[string]any{"code": lang},
	}
	if len(req.BodyParams) > 0 {
		var params []any
		for _, p := range req.BodyParams {
			params = append(params, map[string]any{"type": "text", "text": p})
		}
		template["components"] = []any{
			map[string]any{"type": "body", "parameters": params},
		}
	}

	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                req.To,
		"type":              "template",
		"template":          template,
	}
	resp, err := t.cfg.send(ctx, body)
	if err != nil {
		return nil, err
	}
	return toSendResult(resp), nil
}

func (t *SendTemplateTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[SendTemplateRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
