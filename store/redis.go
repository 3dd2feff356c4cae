package store

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the InvocationStore interface using Redis as
// the backend. The keys namespace is organized as follows:
// - `/<prefix>/toolstore/<tenantID>/invocations/<chatID>` for the invocation list
// - `/<prefix>/toolstore/<tenantID>/chats` for the set of chat IDs with records

type redisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) InvocationStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) getRedisInvocationsKey(tenantID, chatID string) string {
	return path.Join(m.prefix, "toolstore", tenantID, "invocations", chatID)
}

func (m *redisStore) getRedisChatListKey(tenantID string) string {
	return path.Join(m.prefix, "toolstore", tenantID, "chats")
}

func (m *redisStore) Add(ctx context.Context, inv *Invocation) error {
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

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to marshal invocation")
	}

	key := m.getRedisInvocationsKey(tenantID, chatID)
	pipe := m.client.Pipeline()
	pipe.RPush(ctx, key, data)
	// Keep only the most recent records
	pipe.LTrim(ctx, key, -maxInvocations, -1)
	pipe.SAdd(ctx, m.getRedisChatListKey(tenantID), chatID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store invocation in Redis")
	}
	return nil
}

func (m *redisStore) List(ctx context.Context) ([]Invocation, error) {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return nil, err
	}

	key := m.getRedisInvocationsKey(tenantID, chatID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load invocations from Redis")
	}

	var list []Invocation
	for _, item := range data {
		var inv Invocation
		if err := json.Unmarshal([]byte(item), &inv); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal invocation", "err", err.Error())
			continue
		}
		list = append(list, inv)
	}
	return list, nil
}

func (m *redisStore) Reset(ctx context.Context) error {
	tenantID, chatID, err := chatmodel.GetTenantAndChatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.getRedisInvocationsKey(tenantID, chatID))
	pipe.SRem(ctx, m.getRedisChatListKey(tenantID), chatID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset invocations in Redis")
	}
	return nil
}

// ListChats returns the chat IDs with recorded invocations for the tenant.
func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	tenantID := chatmodel.GetTenantID(ctx)
	if tenantID == "" {
		return nil, errors.New("invalid chat context")
	}

	chats, err := m.client.SMembers(ctx, m.getRedisChatListKey(tenantID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	return chats, nil
}
