// Package slack provides tools to post messages and list channels
// via the Slack Web API.
package slack

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
	PostMessageToolName  = "SlackPostMessage"
	ListChannelsToolName = "SlackListChannels"

	defaultBaseURL = "https://slack.com/api"
)

// Config holds the Slack bot token and HTTP client.
type Config struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewConfig reads the bot token from SLACK_BOT_TOKEN.
func NewConfig() (*Config, error) {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil, errors.Errorf("SLACK_BOT_TOKEN is not set")
	}
	return &Config{Token: token}, nil
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
}

// Slack wraps every Web API response in an `ok` envelope;
// `ok=false` carries a machine-readable error code.
type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (c *Config) do(ctx context.Context, method, apiMethod string, query url.Values, body, out any) error {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	uri := baseURL + "/" + apiMethod
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
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call Slack API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("slack: %s failed: status %d", apiMethod, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(bs, &env); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	if !env.OK {
		return errors.Errorf("slack: %s failed: %s", apiMethod, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(bs, out); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
	}
	return nil
}

// PostMessageRequest represents the tool input.
type PostMessageRequest struct {
	Channel  string `json:"Channel" jsonschema:"title=Channel,description=The channel ID or name to post to." validate:"required"`
	Text     string `json:"Text" jsonschema:"title=Text,description=The message text." validate:"required"`
	ThreadTS string `json:"ThreadTS,omitempty" jsonschema:"title=ThreadTS,description=Optional thread timestamp to reply in a thread."`
}

// PostMessageResult represents the tool output.
type PostMessageResult struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
	Text      string `json:"text,omitempty"`
}

func (r *PostMessageResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *PostMessageResult) String() string {
	return fmt.Sprintf("posted to %s at %s", r.Channel, r.Timestamp)
}

// PostMessageTool posts a message to a Slack channel.
type PostMessageTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[PostMessageRequest, PostMessageResult] = (*PostMessageTool)(nil)

func NewPostMessageTool(cfg *Config) (*PostMessageTool, error) {
	sc, err := schema.New(reflect.TypeOf(PostMessageRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &PostMessageTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *PostMessageTool) Name() string { return PostMessageToolName }

func (t *PostMessageTool) Description() string {
	return "Posts a message to a Slack channel, optionally as a thread reply."
}

func (t *PostMessageTool) Parameters() any { return t.funcParams }

func (t *PostMessageTool) Run(ctx context.Context, req *PostMessageRequest) (*PostMessageResult, error) {
	if req.Channel == "" || req.Text == "" {
		return nil, errors.New("invalid request: channel and text are required")
	}

	body := map[string]any{
		"channel": req.Channel,
		"text":    req.Text,
	}
	if req.ThreadTS != "" {
		body["thread_ts"] = req.ThreadTS
	}

	var out struct {
		Channel string `json:"channel"`
		TS      string `json:"ts"`
		Message struct {
			Text string `json:"text"`
		} `json:"message"`
	}
	err := t.cfg.do(ctx, http.MethodPost, "chat.postMessage", nil, body, &out)
	if err != nil {
		return nil, err
	}
	return &PostMessageResult{
		Channel:   out.Channel,
		Timestamp: out.TS,
		Text:      out.Message.Text,
	}, nil
}

func (t *PostMessageTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[PostMessageRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// Channel is a Slack conversation mapped into the tool return shape.
type Channel struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	NumMembers int    `json:"num_members,omitempty"`
}

// ListChannelsRequest represents the tool input.
type ListChannelsRequest struct {
	Limit  int    `json:"Limit,omitempty" jsonschema:"title=Limit,description=Maximum number of channels to return (default 100)."`
	Cursor string `json:"Cursor,omitempty" jsonschema:"title=Cursor,description=Pagination cursor from a previous call."`
}

// ListChannelsResult represents the tool output.
type ListChannelsResult struct {
	Channels   []Channel `json:"channels"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func (r *ListChannelsResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *ListChannelsResult) String() string {
	var buf bytes.Buffer
	for _, ch := range r.Channels {
		fmt.Fprintf(&buf, "- %s (%s)\n", ch.Name, ch.ID)
	}
	return buf.String()
}

// ListChannelsTool lists channels visible to the bot.
type ListChannelsTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[ListChannelsRequest, ListChannelsResult] = (*ListChannelsTool)(nil)

func NewListChannelsTool(cfg *Config) (*ListChannelsTool, error) {
	sc, err := schema.New(reflect.TypeOf(ListChannelsRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &ListChannelsTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *ListChannelsTool) Name() string { return ListChannelsToolName }

func (t *ListChannelsTool) Description() string {
	return "Lists Slack channels visible to the bot, one page per call."
}

func (t *ListChannelsTool) Parameters() any { return t.funcParams }

func (t *ListChannelsTool) Run(ctx context.Context, req *ListChannelsRequest) (*ListChannelsResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if req.Cursor != "" {
		query.Set("cursor", req.Cursor)
	}

	var out struct {
		Channels         []Channel `json:"channels"`
		ResponseMetadata struct {
			NextCursor string `json:"next_cursor"`
		} `json:"response_metadata"`
	}
	err := t.cfg.do(ctx, http.MethodGet, "conversations.list", query, nil, &out)
	if err != nil {
		return nil, err
	}
	return &ListChannelsResult{
		Channels:   out.Channels,
		NextCursor: out.ResponseMetadata.NextCursor,
	}, nil
}

func (t *ListChannelsTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[ListChannelsRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
