package jira_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/tools/jira"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SearchIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/api/3/search", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "token123", pass)

		var body map[string]any
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err)
		assert.Equal(t, `project = OPS AND status = "In Progress"`, body["jql"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"issues": []map[string]any{
				{
					"key": "OPS-42",
					"fields": map[string]any{
						"summary":  "Rotate API keys",
						"status":   map[string]any{"name": "In Progress"},
						"assignee": map[string]any{"displayName": "Dana"},
						"priority": map[string]any{"name": "High"},
					},
				},
			},
		})
	}))
	defer server.Close()

	t.Setenv("JIRA_INSTANCE_URL", server.URL)
	t.Setenv("JIRA_EMAIL", "bot@example.com")
	t.Setenv("JIRA_API_TOKEN", "token123")

	cfg, err := jira.NewConfig()
	require.NoError(t, err)
	cfg.WithHTTPClient(server.Client())

	tool, err := jira.NewSearchIssuesTool(cfg)
	require.NoError(t, err)

	assert.Equal(t, jira.SearchIssuesToolName, tool.Name())

	ctx := context.Background()

	_, err = tool.Call(ctx, "not a json")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	res, err := tool.Run(ctx, &jira.SearchIssuesRequest{JQL: `project = OPS AND status = "In Progress"`})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "OPS-42", res.Issues[0].Key)
	assert.Equal(t, "Rotate API keys", res.Issues[0].Summary)
	assert.Equal(t, "In Progress", res.Issues[0].Status)
	assert.Equal(t, "Dana", res.Issues[0].Assignee)
	assert.Equal(t, server.URL+"/browse/OPS-42", res.Issues[0].URL)
	assert.Contains(t, res.String(), "- OPS-42: Rotate API keys [In Progress] Dana")

	_, err = tool.Run(ctx, &jira.SearchIssuesRequest{})
	assert.EqualError(t, err, "invalid request: empty JQL")
}

func Test_CreateIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/issue", r.URL.Path)

		var body struct {
			Fields map[string]any `json:"fields"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err)
		assert.Equal(t, "Fix login redirect", body.Fields["summary"])
		assert.Equal(t, map[string]any{"key": "WEB"}, body.Fields["project"])
		assert.Equal(t, map[string]any{"name": "Bug"}, body.Fields["issuetype"])
		// plain-text description must be converted to ADF
		desc := body.Fields["description"].(map[string]any)
		assert.Equal(t, "doc", desc["type"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "10001", "key": "WEB-7"})
	}))
	defer server.Close()

	cfg := (&jira.Config{
		BaseURL:  server.URL,
		Email:    "bot@example.com",
		APIToken: "token123",
	}).WithHTTPClient(server.Client())

	tool, err := jira.NewCreateIssueTool(cfg)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &jira.CreateIssueRequest{
		ProjectKey:  "WEB",
		Summary:     "Fix login redirect",
		Description: "Users land on a 404 after login.",
		IssueType:   "Bug",
	})
	require.NoError(t, err)
	assert.Equal(t, "WEB-7", res.Key)
	assert.Equal(t, server.URL+"/browse/WEB-7", res.URL)
	assert.Contains(t, res.String(), "created issue WEB-7")
}

func Test_VendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessages":["The value 'NOPE' does not exist for the field 'project'."]}`))
	}))
	defer server.Close()

	cfg := (&jira.Config{BaseURL: server.URL, Email: "e", APIToken: "t"}).WithHTTPClient(server.Client())

	tool, err := jira.NewCreateIssueTool(cfg)
	require.NoError(t, err)

	_, err = tool.Run(context.Background(), &jira.CreateIssueRequest{ProjectKey: "NOPE", Summary: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "does not exist for the field")
}
