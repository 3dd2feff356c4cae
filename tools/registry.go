package tools

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/pkg/metricskey"
)

// Registry holds registered tools by name.
// Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ITool
	cb    Callback
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ITool),
	}
}

// WithCallback sets the callback notified on every Call.
func (r *Registry) WithCallback(cb Callback) *Registry {
	r.cb = cb
	return r
}

// Register adds tools to the registry.
// Returns an error if a tool with the same name is already registered.
func (r *Registry) Register(list ...ITool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range list {
		name := tool.Name()
		if _, ok := r.tools[name]; ok {
			return errors.Errorf("tool already registered: %s", name)
		}
		r.tools[name] = tool
	}
	return nil
}

// Get returns the tool with the given name,
// or ErrToolNotFound if it is not registered.
func (r *Registry) Get(name string) (ITool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, errors.WithMessage(chatmodel.ErrToolNotFound, name)
	}
	return tool, nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered tools, sorted by name.
func (r *Registry) All() []ITool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]ITool, 0, len(names))
	for _, name := range names {
		list = append(list, r.tools[name])
	}
	return list
}

// Call looks up the named tool and executes it with the given input.
func (r *Registry) Call(ctx context.Context, name, input string) (string, error) {
	tool, err := r.Get(name)
	if err != nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		return "", err
	}

	if r.cb != nil {
		r.cb.OnToolStart(ctx, tool, input)
	}
	metricskey.StatsToolBytesReceived.IncrCounter(float64(len(input)), name)

	started := time.Now()
	output, err := tool.Call(ctx, input)
	metricskey.PerfToolCall.MeasureSince(started, name)
	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		if errors.Is(err, chatmodel.ErrFailedUnmarshalInput) {
			metricskey.StatsToolInputParseErrors.IncrCounter(1, name)
		}
		if r.cb != nil {
			r.cb.OnToolError(ctx, tool, input, err)
		}
		return "", err
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	metricskey.StatsToolBytesReturned.IncrCounter(float64(len(output)), name)
	if r.cb != nil {
		r.cb.OnToolEnd(ctx, tool, input, output)
	}
	return output, nil
}

// Descriptions returns the catalog of registered tools for prompts.
func (r *Registry) Descriptions() string {
	return GetDescriptions(r.All()...)
}
