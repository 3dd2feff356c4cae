// Package jira provides tools to search and create issues
// in Jira Cloud via the REST API v3.
package jira

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
	SearchIssuesToolName = "JiraSearchIssues"
	CreateIssueToolName  = "JiraCreateIssue"

	maxBodySize = 4096
)

// Config holds the Jira instance URL and API credentials.
type Config struct {
	BaseURL    string
	Email      string
	APIToken   string
	HTTPClient *http.Client
}

// NewConfig reads the instance URL and credentials from
// JIRA_INSTANCE_URL, JIRA_EMAIL and JIRA_API_TOKEN.
func NewConfig() (*Config, error) {
	baseURL := os.Getenv("JIRA_INSTANCE_URL")
	email := os.Getenv("JIRA_EMAIL")
	token := os.Getenv("JIRA_API_TOKEN")
	if baseURL == "" || email == "" || token == "" {
		return nil, errors.Errorf("JIRA_INSTANCE_URL, JIRA_EMAIL or JIRA_API_TOKEN is not set")
	}
	return &Config{BaseURL: baseURL, Email: email, APIToken: token}, nil
}

func (c *Config) WithBaseURL(baseURL string) *Config {
	c.BaseURL = baseURL
	return c
}

func (c *Config) WithHTTPClient(client *http.Client) *Config {
	c.HTTPClient = client
	return c
}

func (c *Config) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		rdr = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.SetBasicAuth(c.Email, c.APIToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call Jira API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("jira: request failed: status %d: %s",
			resp.StatusCode, llmutils.TruncateString(string(bs), maxBodySize))
	}
	if out != nil {
		if err := json.Unmarshal(bs, out); err != nil {
			return errors.Wrap(err, "failed to parse response")
		}
	}
	return nil
}

// Issue is a Jira issue mapped into the tool return shape.
type Issue struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
	Priority string `json:"priority,omitempty"`
	URL      string `json:"url,omitempty"`
}

type searchEnvelope struct {
	Total  int `json:"total"`
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary string `json:"summary"`
			Status  struct {
				Name string `json:"name"`
			} `json:"status"`
			Assignee struct {
				DisplayName string `json:"displayName"`
			} `json:"assignee"`
			Priority struct {
				Name string `json:"name"`
			} `json:"priority"`
		} `json:"fields"`
	} `json:"issues"`
}

// SearchIssuesRequest represents the tool input.
type SearchIssuesRequest struct {
	JQL        string `json:"JQL" jsonschema:"title=JQL,description=The JQL query to search issues." validate:"required"`
	MaxResults int    `json:"MaxResults,omitempty" jsonschema:"title=MaxResults,description=Maximum number of issues to return (default 50)."`
}

// SearchIssuesResult represents the tool output.
type SearchIssuesResult struct {
	Total  int     `json:"total"`
	Issues []Issue `json:"issues"`
}

func (r *SearchIssuesResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SearchIssuesResult) String() string {
	var buf bytes.Buffer
	for _, issue := range r.Issues {
		fmt.Fprintf(&buf, "- %s: %s [%s] %s\n", issue.Key, issue.Summary, issue.Status, issue.Assignee)
	}
	return buf.String()
}

// SearchIssuesTool searches Jira issues with a JQL query.
type SearchIssuesTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[SearchIssuesRequest, SearchIssuesResult] = (*SearchIssuesTool)(nil)

func NewSearchIssuesTool(cfg *Config) (*SearchIssuesTool, error) {
	sc, err := schema.New(reflect.TypeOf(SearchIssuesRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &SearchIssuesTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *SearchIssuesTool) Name() string { return SearchIssuesToolName }

func (t *SearchIssuesTool) Description() string {
	return "Searches Jira issues with a JQL query and returns key, summary, status and assignee."
}

func (t *SearchIssuesTool) Parameters() any { return t.funcParams }

func (t *SearchIssuesTool) Run(ctx context.Context, req *SearchIssuesRequest) (*SearchIssuesResult, error) {
	if req.JQL == "" {
		return nil, errors.New("invalid request: empty JQL")
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}

	body := map[string]any{
		"jql":        req.JQL,
		"maxResults": maxResults,
		"fields":     []string{"summary", "status", "assignee", "priority"},
	}
	var env searchEnvelope
	err := t.cfg.do(ctx, http.MethodPost, "/rest/api/3/search", body, &env)
	if err != nil {
		return nil, err
	}

	res := &SearchIssuesResult{
		Total: env.Total,
	}
	for _, issue := range env.Issues {
		res.Issues = append(res.Issues, Issue{
			Key:      issue.Key,
			Summary:  issue.Fields.Summary,
			Status:   issue.Fields.Status.Name,
			Assignee: issue.Fields.Assignee.DisplayName,
			Priority: issue.Fields.Priority.Name,
			URL:      t.cfg.BaseURL + "/browse/" + issue.Key,
		})
	}
	return res, nil
}

func (t *SearchIssuesTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[SearchIssuesRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// CreateIssueRequest represents the tool input.
type CreateIssueRequest struct {
	ProjectKey  string `json:"ProjectKey" jsonschema:"title=ProjectKey,description=The key of the project to create the issue in." validate:"required"`
	Summary     string `json:"Summary" jsonschema:"title=Summary,description=The issue summary." validate:"required"`
	Description string `json:"Description,omitempty" jsonschema:"title=Description,description=Optional plain-text description."`
	IssueType   string `json:"IssueType,omitempty" jsonschema:"title=IssueType,description=The issue type name (default Task)."`
}

// CreateIssueResult represents the tool output.
type CreateIssueResult struct {
	ID  string `json:"id"`
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

func (r *CreateIssueResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *CreateIssueResult) String() string {
	return fmt.Sprintf("created issue %s: %s", r.Key, r.URL)
}

// CreateIssueTool creates a Jira issue.
type CreateIssueTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[CreateIssueRequest, CreateIssueResult] = (*CreateIssueTool)(nil)

func NewCreateIssueTool(cfg *Config) (*CreateIssueTool, error) {
	sc, err := schema.New(reflect.TypeOf(CreateIssueRequest{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &CreateIssueTool{cfg: cfg, funcParams: sc.Parameters}, nil
}

func (t *CreateIssueTool) Name() string { return CreateIssueToolName }

func (t *CreateIssueTool) Description() string {
	return "Creates a new Jira issue in the given project."
}

func (t *CreateIssueTool) Parameters() any { return t.funcParams }

func (t *CreateIssueTool) Run(ctx context.Context, req *CreateIssueRequest) (*CreateIssueResult, error) {
	if req.ProjectKey == "" || req.Summary == "" {
		return nil, errors.New("invalid request: project key and summary are required")
	}
	issueType := req.IssueType
	if issueType == "" {
		issueType = "Task"
	}

	fields := map[string]any{
		"project":   map[string]any{"key": req.ProjectKey},
		"summary":   req.Summary,
		"issuetype": map[string]any{"name": issueType},
	}
	if req.Description != "" {
		// API v3 requires the description in Atlassian Document Format
		fields["description"] = map[string]any{
			"type":    "doc",
			"version": 1,
			"content": []any{
				map[string]any{
					"type": "paragraph",
					"content": []any{
						map[string]any{"type": "text", "text": req.Description},
					},
				},
			},
		}
	}

	var out struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	err := t.cfg.do(ctx, http.MethodPost, "/rest/api/3/issue", map[string]any{"fields": fields}, &out)
	if err != nil {
		return nil, err
	}
	return &CreateIssueResult{
		ID:  out.ID,
		Key: out.Key,
		URL: t.cfg.BaseURL + "/browse/" + out.Key,
	}, nil
}

func (t *CreateIssueTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[CreateIssueRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
