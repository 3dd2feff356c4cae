package callbacks

import (
	"context"

	"github.com/effective-security/agenttools/pkg/metricskey"
	"github.com/effective-security/agenttools/tools"
)

// ensure Metrics implements tools.Callback
var _ tools.Callback = (*Metrics)(nil)

// Metrics emits tool call counters.
// The registry instruments its own Call path; attach Metrics when tools
// are invoked directly.
type Metrics struct{}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (l *Metrics) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	metricskey.StatsToolBytesReceived.IncrCounter(float64(len(input)), tool.Name())
}

func (l *Metrics) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, tool.Name())
	metricskey.StatsToolBytesReturned.IncrCounter(float64(len(output)), tool.Name())
}

func (l *Metrics) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	metricskey.StatsToolCallsFailed.IncrCounter(1, tool.Name())
}
