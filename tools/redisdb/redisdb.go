// Package redisdb provides tools for key-value operations against Redis.
package redisdb

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
	"github.com/redis/go-redis/v9"
)

const (
	GetToolName  = "RedisGet"
	SetToolName  = "RedisSet"
	DelToolName  = "RedisDelete"
	KeysToolName = "RedisKeys"

	// maxKeys caps the number of keys returned by a scan.
	maxKeys = 500

	// maxValueSize bounds the value returned to the model.
	maxValueSize = 64 * 1024
)

// Config holds the Redis client.
type Config struct {
	Client redis.UniversalClient
}

// NewConfig connects to Redis at the given address.
func NewConfig(addr string) *Config {
	return &Config{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func newSchema(cfg *Config, typ reflect.Type) (any, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	sc, err := schema.New(typ)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return sc.Parameters, nil
}

// GetRequest represents the get tool input.
type GetRequest struct {
	Key string `json:"Key" jsonschema:"title=Key,description=The key to read." validate:"required"`
}

// GetResult represents the get tool output.
type GetResult struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

func (r *GetResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *GetResult) String() string {
	if !r.Found {
		return fmt.Sprintf("%s: not found", r.Key)
	}
	return fmt.Sprintf("%s: %s", r.Key, r.Value)
}

// GetTool reads a single key.
type GetTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[GetRequest, GetResult] = (*GetTool)(nil)

func NewGetTool(cfg *Config) (*GetTool, error) {
	params, err := newSchema(cfg, reflect.TypeOf(GetRequest{}))
	if err != nil {
		return nil, err
	}
	return &GetTool{cfg: cfg, funcParams: params}, nil
}

func (t *GetTool) Name() string { return GetToolName }

func (t *GetTool) Description() string {
	return "Reads the string value stored at a Redis key."
}

func (t *GetTool) Parameters() any { return t.funcParams }

func (t *GetTool) Run(ctx context.Context, req *GetRequest) (*GetResult, error) {
	val, err := t.cfg.Client.Get(ctx, req.Key).Result()
	if errors.Is(err, redis.Nil) {
		return &GetResult{Key: req.Key}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get key")
	}
	return &GetResult{
		Key:   req.Key,
		Value: llmutils.TruncateString(val, maxValueSize),
		Found: true,
	}, nil
}

func (t *GetTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[GetRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// SetRequest represents the set tool input.
type SetRequest struct {
	Key        string `json:"Key" jsonschema:"title=Key,description=The key to write." validate:"required"`
	Value      string `json:"Value" jsonschema:"title=Value,description=The string value to store." validate:"required"`
	TTLSeconds int    `json:"TTLSeconds,omitempty" jsonschema:"title=TTLSeconds,description=Optional expiry in seconds. 0 means no expiry."`
}

// SetResult represents the set tool output.
type SetResult struct {
	Key string `json:"key"`
	OK  bool   `json:"ok"`
}

func (r *SetResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *SetResult) String() string {
	return fmt.Sprintf("set %s", r.Key)
}

// SetTool writes a key with an optional TTL.
type SetTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[SetRequest, SetResult] = (*SetTool)(nil)

func NewSetTool(cfg *Config) (*SetTool, error) {
	params, err := newSchema(cfg, reflect.TypeOf(SetRequest{}))
	if err != nil {
		return nil, err
	}
	return &SetTool{cfg: cfg, funcParams: params}, nil
}

func (t *SetTool) Name() string { return SetToolName }

func (t *SetTool) Description() string {
	return "Stores a string value at a Redis key with an optional TTL in seconds."
}

func (t *SetTool) Parameters() any { return t.funcParams }

func (t *SetTool) Run(ctx context.Context, req *SetRequest) (*SetResult, error) {
	if req.TTLSeconds < 0 {
		return nil, errors.New("invalid request: negative TTL")
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	err := t.cfg.Client.Set(ctx, req.Key, req.Value, ttl).Err()
	if err != nil {
		return nil, errors.Wrap(err, "failed to set key")
	}
	return &SetResult{Key: req.Key, OK: true}, nil
}

func (t *SetTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[SetRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// DelRequest represents the delete tool input.
type DelRequest struct {
	Keys []string `json:"Keys" jsonschema:"title=Keys,description=The keys to delete." validate:"required,min=1"`
}

// DelResult represents the delete tool output.
type DelResult struct {
	Deleted int64 `json:"deleted"`
}

func (r *DelResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *DelResult) String() string {
	return fmt.Sprintf("deleted %d keys", r.Deleted)
}

// DelTool removes keys.
type DelTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[DelRequest, DelResult] = (*DelTool)(nil)

func NewDelTool(cfg *Config) (*DelTool, error) {
	params, err := newSchema(cfg, reflect.TypeOf(DelRequest{}))
	if err != nil {
		return nil, err
	}
	return &DelTool{cfg: cfg, funcParams: params}, nil
}

func (t *DelTool) Name() string { return DelToolName }

func (t *DelTool) Description() string {
	return "Deletes one or more Redis keys and returns the number removed."
}

func (t *DelTool) Parameters() any { return t.funcParams }

func (t *DelTool) Run(ctx context.Context, req *DelRequest) (*DelResult, error) {
	n, err := t.cfg.Client.Del(ctx, req.Keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to delete keys")
	}
	return &DelResult{Deleted: n}, nil
}

func (t *DelTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[DelRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

// KeysRequest represents the keys tool input.
type KeysRequest struct {
	Pattern string `json:"Pattern" jsonschema:"title=Pattern,description=A glob pattern such as user:* to match keys against." validate:"required"`
}

// KeysResult represents the keys tool output.
type KeysResult struct {
	Keys      []string `json:"keys"`
	Truncated bool     `json:"truncated,omitempty"`
}

func (r *KeysResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *KeysResult) String() string {
	return llmutils.ToJSON(r.Keys)
}

// KeysTool scans for keys matching a pattern, capped at maxKeys.
type KeysTool struct {
	cfg        *Config
	funcParams any
}

var _ tools.Tool[KeysRequest, KeysResult] = (*KeysTool)(nil)

func NewKeysTool(cfg *Config) (*KeysTool, error) {
	params, err := newSchema(cfg, reflect.TypeOf(KeysRequest{}))
	if err != nil {
		return nil, err
	}
	return &KeysTool{cfg: cfg, funcParams: params}, nil
}

func (t *KeysTool) Name() string { return KeysToolName }

func (t *KeysTool) Description() string {
	return "Scans for Redis keys matching a glob pattern. At most 500 keys are returned."
}

func (t *KeysTool) Parameters() any { return t.funcParams }

func (t *KeysTool) Run(ctx context.Context, req *KeysRequest) (*KeysResult, error) {
	res := &KeysResult{}
	iter := t.cfg.Client.Scan(ctx, 0, req.Pattern, 0).Iterator()
	for iter.Next(ctx) {
		if len(res.Keys) >= maxKeys {
			res.Truncated = true
			break
		}
		res.Keys = append(res.Keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan keys")
	}
	return res, nil
}

func (t *KeysTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[KeysRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
