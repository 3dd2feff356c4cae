package chatmodel

import (
	"context"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ChatContext carries the identity of a chat session through tool calls.
// It contains the tenant ID, chat ID and a per-run ID used to correlate
// tool invocations in callbacks and the audit store.
type ChatContext interface {
	GetTenantID() string
	GetChatID() string
	SetChatID(chatID string)
	// RunID returns the unique ID of the current run.
	RunID() string
	// AppData returns immutable app data
	AppData() any
	// GetMetadata retrieves metadata by key
	GetMetadata(key string) (value any, ok bool)
	// SetMetadata sets metadata by key
	SetMetadata(key string, value any)
}

type chatContext struct {
	tenantID string
	chatID   string
	runID    string
	metadata sync.Map
	appData  any
}

func (c *chatContext) GetTenantID() string {
	return c.tenantID
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) SetChatID(chatID string) {
	c.chatID = chatID
}

func (c *chatContext) RunID() string {
	return c.runID
}

func (c *chatContext) AppData() any {
	return c.appData
}

func (c *chatContext) GetMetadata(key string) (value any, ok bool) {
	return c.metadata.Load(key)
}

func (c *chatContext) SetMetadata(key string, value any) {
	c.metadata.Store(key, value)
}

func NewChatContext(tenantID, chatID string, appData any) ChatContext {
	return &chatContext{
		tenantID: values.StringsCoalesce(tenantID, NewID()),
		chatID:   values.StringsCoalesce(chatID, NewID()),
		runID:    NewID(),
		appData:  appData,
		metadata: sync.Map{},
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetTenantID retrieves the tenant ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v.GetTenantID()
	}
	return ""
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v.GetChatID()
	}
	return ""
}

// GetTenantAndChatID returns the tenant and chat IDs from the context,
// or an error if the context does not carry a valid ChatContext.
func GetTenantAndChatID(ctx context.Context) (string, string, error) {
	chatCtx := GetChatContext(ctx)
	if chatCtx == nil || chatCtx.GetTenantID() == "" || chatCtx.GetChatID() == "" {
		return "", "", errors.New("invalid chat context")
	}
	return chatCtx.GetTenantID(), chatCtx.GetChatID(), nil
}

// NewID generates a new ID using the flake ID generator.
func NewID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
