package store

import (
	"context"
	"slices"
	"sync"

	"github.com/effective-security/agenttools/chatmodel"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]Invocation
}

func NewMemoryStore() InvocationStore {
	return &inMemory{}
}

func memoryKey(tenantID, chatID string) string {
	return tenantID + "/" + chatID
}

func (m *inMemory) Add(ctx context.Context, inv *Invocation) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	rec := *inv
	if rec.ID == "" {
		rec.ID = newInvocationID()
	}
	rec.TenantID = tenantID
	rec.ChatID = chatID
	rec.Input = RedactSecrets(rec.Input)
	rec.Output = RedactSecrets(rec.Output)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]Invocation)
	}
	key := memoryKey(tenantID, chatID)
	list := append(m.storage[key], rec)
	if len(list) > maxInvocations {
		list = list[len(list)-maxInvocations:]
	}
	m.storage[key] = list
	return nil
}

func (m *inMemory) List(ctx context.Context) ([]Invocation, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil, nil
	}
	return slices.Clone(m.storage[memoryKey(tenantID, chatID)]), nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage != nil {
		delete(m.storage, memoryKey(tenantID, chatID))
	}
	return nil
}
