package redisdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/tools/redisdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) (*miniredis.Miniredis, *redisdb.Config) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redisdb.NewConfig(mr.Addr())
}

func Test_GetSet(t *testing.T) {
	mr, cfg := newTestConfig(t)

	setTool, err := redisdb.NewSetTool(cfg)
	require.NoError(t, err)
	getTool, err := redisdb.NewGetTool(cfg)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = setTool.Call(ctx, "not json")
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))

	setRes, err := setTool.Run(ctx, &redisdb.SetRequest{
		Key:        "session:42",
		Value:      "active",
		TTLSeconds: 60,
	})
	require.NoError(t, err)
	assert.True(t, setRes.OK)
	assert.Equal(t, "set session:42", setRes.String())
	assert.Equal(t, 60*time.Second, mr.TTL("session:42"))

	getRes, err := getTool.Run(ctx, &redisdb.GetRequest{Key: "session:42"})
	require.NoError(t, err)
	assert.True(t, getRes.Found)
	assert.Equal(t, "active", getRes.Value)
	assert.Equal(t, "session:42: active", getRes.String())

	// missing keys are a result, not an error
	getRes, err = getTool.Run(ctx, &redisdb.GetRequest{Key: "session:43"})
	require.NoError(t, err)
	assert.False(t, getRes.Found)
	assert.Equal(t, "session:43: not found", getRes.String())

	_, err = setTool.Run(ctx, &redisdb.SetRequest{Key: "k", Value: "v", TTLSeconds: -1})
	assert.EqualError(t, err, "invalid request: negative TTL")
}

func Test_DelKeys(t *testing.T) {
	mr, cfg := newTestConfig(t)
	mr.Set("user:1", "alice")
	mr.Set("user:2", "bob")
	mr.Set("order:1", "pending")

	keysTool, err := redisdb.NewKeysTool(cfg)
	require.NoError(t, err)
	delTool, err := redisdb.NewDelTool(cfg)
	require.NoError(t, err)

	ctx := context.Background()

	keysRes, err := keysTool.Run(ctx, &redisdb.KeysRequest{Pattern: "user:*"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:1", "user:2"}, keysRes.Keys)
	assert.False(t, keysRes.Truncated)

	delRes, err := delTool.Run(ctx, &redisdb.DelRequest{Keys: []string{"user:1", "user:2", "missing"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), delRes.Deleted)
	assert.Equal(t, "deleted 2 keys", delRes.String())

	// delete requires at least one key
	_, err = delTool.Call(ctx, `{"Keys":[]}`)
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
}

func Test_NewTools_Invalid(t *testing.T) {
	_, err := redisdb.NewGetTool(nil)
	assert.EqualError(t, err, "redis client is required")
	_, err = redisdb.NewSetTool(&redisdb.Config{})
	assert.EqualError(t, err, "redis client is required")
}
