package callbacks

import (
	"context"
	"sync"
	"time"

	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/store"
	"github.com/effective-security/agenttools/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenttools", "callbacks")

// ensure Recorder implements tools.Callback
var _ tools.Callback = (*Recorder)(nil)

// Recorder persists every tool invocation to the audit store.
// Calls without a ChatContext are not recorded.
type Recorder struct {
	store store.InvocationStore

	// in-flight call start times, keyed by run ID and tool name
	started sync.Map
}

func NewRecorder(st store.InvocationStore) *Recorder {
	return &Recorder{store: st}
}

func (l *Recorder) key(ctx context.Context, tool tools.ITool) (string, bool) {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return "", false
	}
	return chatCtx.RunID() + "/" + tool.Name(), true
}

func (l *Recorder) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	if key, ok := l.key(ctx, tool); ok {
		l.started.Store(key, TimeNowFn())
	}
}

func (l *Recorder) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.record(ctx, tool, input, output, nil)
}

func (l *Recorder) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.record(ctx, tool, input, "", err)
}

func (l *Recorder) record(ctx context.Context, tool tools.ITool, input, output string, callErr error) {
	key, ok := l.key(ctx, tool)
	if !ok {
		return
	}

	now := TimeNowFn()
	startedAt := now
	if v, ok := l.started.LoadAndDelete(key); ok {
		startedAt = v.(time.Time)
	}

	chatCtx := chatmodel.GetChatContext(ctx)
	inv := &store.Invocation{
		RunID:     chatCtx.RunID(),
		Tool:      tool.Name(),
		Input:     input,
		Output:    output,
		StartedAt: startedAt,
		Duration:  now.Sub(startedAt),
	}
	if callErr != nil {
		inv.Error = callErr.Error()
	}

	if err := l.store.Add(ctx, inv); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "record invocation", "err", err.Error())
	}
}
