// Package store persists an audit trail of tool invocations.
package store

import (
	"context"
	"time"

	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/agenttools", "store")

// maxInvocations caps the audit trail kept per chat.
const maxInvocations = 100

// Invocation is the audit record of a single tool call.
// Input and Output are stored with secret fields redacted.
type Invocation struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	ChatID    string        `json:"chat_id"`
	RunID     string        `json:"run_id,omitempty"`
	Tool      string        `json:"tool"`
	Input     string        `json:"input"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// InvocationStore records tool invocations for the chat identified by the
// ChatContext carried in ctx.
type InvocationStore interface {
	// Add appends an invocation record. The record's ID is assigned when empty.
	Add(ctx context.Context, inv *Invocation) error
	// List returns the recorded invocations for the current chat, oldest first.
	List(ctx context.Context) ([]Invocation, error)
	// Reset removes the recorded invocations for the current chat.
	Reset(ctx context.Context) error
}

func newInvocationID() string {
	return chatmodel.NewID()
}
