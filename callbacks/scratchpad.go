package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/tools"
)

// ensure Scratchpad implements tools.Callback
var _ tools.Callback = (*Scratchpad)(nil)

var TimeNowFn = time.Now

type RunStats struct {
	ChatID string
	RunID  string

	Duration            time.Duration
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
	BytesReceived       uint64
	BytesReturned       uint64
}

// Scratchpad collects a per-chat transcript of tool calls and run statistics.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

type run struct {
	stats   RunStats
	chatCtx chatmodel.ChatContext
	started time.Time

	w    bytes.Buffer
	lock sync.Mutex
}

func (r *run) print(args ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for i, arg := range args {
		if i > 0 {
			r.w.WriteString(" ")
		}
		r.w.WriteString(arg)
	}
	r.w.WriteString("\n")
}

func (l *Scratchpad) StartRun(ctx context.Context) {
	l.lock.Lock()
	defer l.lock.Unlock()

	chatCtx := chatmodel.GetChatContext(ctx)
	l.runs[chatCtx.GetChatID()] = &run{
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
		chatCtx: chatCtx,
		started: TimeNowFn(),
	}

	l.runs[chatCtx.GetChatID()].print("*** Run Started ***")
}

// EndRun closes the current run and returns its statistics and transcript.
// The transcript is returned as chatmodel.String so it can be appended
// to the chat history as message content.
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, chatmodel.String) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, ""
	}

	stats := run.stats
	stats.Duration = TimeNowFn().Sub(run.started)

	run.print(fmt.Sprintf("Tool calls: %d, Succeeded: %d, Failed: %d",
		stats.ToolsCalls,
		stats.ToolsCallsSucceeded,
		stats.ToolsCallsFailed,
	))
	run.print(fmt.Sprintf("Bytes In: %d, Bytes Out: %d",
		stats.BytesReceived,
		stats.BytesReturned,
	))
	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, run.chatCtx.GetChatID())
	l.lock.Unlock()

	return &stats, chatmodel.NewString(run.w.String())
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	l.lock.Lock()
	defer l.lock.Unlock()

	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	return l.runs[chatCtx.GetChatID()]
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	atomic.AddUint64(&run.stats.BytesReceived, uint64(len(input)))
	run.print(tool.Name(), "*** Tool Start ***")
	if l.mode == ModeVerbose {
		run.print(tool.Name(), "Input:", input)
	}
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	atomic.AddUint64(&run.stats.BytesReturned, uint64(len(output)))
	if l.mode == ModeVerbose {
		run.print(tool.Name(), "Output:", output)
	}
	run.print(tool.Name(), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(tool.Name(), "*** Error ***", err.Error())
}
