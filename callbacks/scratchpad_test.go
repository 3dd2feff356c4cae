package callbacks_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/callbacks"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/mocks/mocktools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Scratchpad(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return("SlackPostMessage").AnyTimes()

	chatCtx := chatmodel.NewChatContext("tenant1", "chat1", nil)
	ctx := chatmodel.WithChatContext(context.Background(), chatCtx)

	sp := callbacks.NewScratchpad(callbacks.ModeVerbose)

	// events without a started run are dropped
	sp.OnToolStart(ctx, tool, "{}")
	stats, _ := sp.EndRun(context.Background())
	assert.Nil(t, stats)

	sp.StartRun(ctx)
	sp.OnToolStart(ctx, tool, `{"Channel":"#ops"}`)
	sp.OnToolEnd(ctx, tool, `{"Channel":"#ops"}`, `{"ok":true}`)
	sp.OnToolStart(ctx, tool, `{"Channel":"#oncall"}`)
	sp.OnToolError(ctx, tool, `{"Channel":"#oncall"}`, errors.New("channel_not_found"))

	stats, transcript := sp.EndRun(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, "chat1", stats.ChatID)
	assert.Equal(t, chatCtx.RunID(), stats.RunID)
	assert.Equal(t, uint32(2), stats.ToolsCalls)
	assert.Equal(t, uint32(1), stats.ToolsCallsSucceeded)
	assert.Equal(t, uint32(1), stats.ToolsCallsFailed)
	assert.Equal(t, uint64(len(`{"Channel":"#ops"}`)+len(`{"Channel":"#oncall"}`)), stats.BytesReceived)
	assert.Equal(t, uint64(len(`{"ok":true}`)), stats.BytesReturned)

	// the transcript is chat message content
	var content chatmodel.ContentProvider = transcript
	text := content.GetContent()
	assert.Equal(t, text, transcript.String())
	assert.Contains(t, text, "*** Run Started ***")
	assert.Contains(t, text, "SlackPostMessage *** Tool Start ***")
	assert.Contains(t, text, `SlackPostMessage Output: {"ok":true}`)
	assert.Contains(t, text, "SlackPostMessage *** Error *** channel_not_found")
	assert.Contains(t, text, "Tool calls: 2, Succeeded: 1, Failed: 1")

	// the run is removed after EndRun
	stats, _ = sp.EndRun(ctx)
	assert.Nil(t, stats)
}

func Test_Recorder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return("RedisGet").AnyTimes()

	st := newFakeStore()
	rec := callbacks.NewRecorder(st)

	// without a chat context nothing is recorded
	rec.OnToolStart(context.Background(), tool, "{}")
	rec.OnToolEnd(context.Background(), tool, "{}", "{}")
	assert.Empty(t, st.added)

	chatCtx := chatmodel.NewChatContext("tenant1", "chat1", nil)
	ctx := chatmodel.WithChatContext(context.Background(), chatCtx)

	rec.OnToolStart(ctx, tool, `{"Key":"session:42"}`)
	rec.OnToolEnd(ctx, tool, `{"Key":"session:42"}`, `{"found":true}`)
	rec.OnToolError(ctx, tool, `{"Key":"session:43"}`, errors.New("connection refused"))

	require.Len(t, st.added, 2)
	assert.Equal(t, "RedisGet", st.added[0].Tool)
	assert.Equal(t, chatCtx.RunID(), st.added[0].RunID)
	assert.Equal(t, `{"found":true}`, st.added[0].Output)
	assert.Empty(t, st.added[0].Error)
	assert.Equal(t, "connection refused", st.added[1].Error)
}
