package slack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/tools/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PostMessage(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))

		var body map[string]any
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err)
		assert.Equal(t, "C0123", body["channel"])
		assert.Equal(t, "deploy finished", body["text"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"channel": "C0123",
			"ts":      "1712345678.000100",
			"message": map[string]any{"text": "deploy finished"},
		})
	}))
	defer server.Close()

	cfg, err := slack.NewConfig()
	require.NoError(t, err)
	cfg.WithBaseURL(server.URL).WithHTTPClient(server.Client())

	tool, err := slack.NewPostMessageTool(cfg)
	require.NoError(t, err)

	assert.Equal(t, slack.PostMessageToolName, tool.Name())
	assert.Contains(t, llmutils.ToJSONIndent(tool.Parameters()), `"Channel"`)

	ctx := context.Background()

	_, err = tool.Call(ctx, "oops")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	res, err := tool.Run(ctx, &slack.PostMessageRequest{Channel: "C0123", Text: "deploy finished"})
	require.NoError(t, err)
	assert.Equal(t, "C0123", res.Channel)
	assert.Equal(t, "1712345678.000100", res.Timestamp)
	assert.Equal(t, "posted to C0123 at 1712345678.000100", res.String())

	_, err = tool.Run(ctx, &slack.PostMessageRequest{Channel: "C0123"})
	assert.EqualError(t, err, "invalid request: channel and text are required")
}

func Test_PostMessage_VendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Slack returns 200 with ok=false on API errors
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	cfg := (&slack.Config{Token: "xoxb-test"}).WithBaseURL(server.URL).WithHTTPClient(server.Client())

	tool, err := slack.NewPostMessageTool(cfg)
	require.NoError(t, err)

	_, err = tool.Run(context.Background(), &slack.PostMessageRequest{Channel: "C9", Text: "hi"})
	assert.EqualError(t, err, "slack: chat.postMessage failed: channel_not_found")
}

func Test_ListChannels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/conversations.list", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"channels": []map[string]any{
				{"id": "C1", "name": "general", "is_private": false, "num_members": 42},
				{"id": "C2", "name": "random", "is_private": false, "num_members": 17},
			},
			"response_metadata": map[string]any{"next_cursor": "dGVhbTpD"},
		})
	}))
	defer server.Close()

	cfg := (&slack.Config{Token: "xoxb-test"}).WithBaseURL(server.URL).WithHTTPClient(server.Client())

	tool, err := slack.NewListChannelsTool(cfg)
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &slack.ListChannelsRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Channels, 2)
	assert.Equal(t, "general", res.Channels[0].Name)
	assert.Equal(t, "dGVhbTpD", res.NextCursor)
	assert.Contains(t, res.String(), "- general (C1)")

	out, err := tool.Call(context.Background(), `{"Limit":2}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"next_cursor":"dGVhbTpD"`)
}
