package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscon "github.com/testcontainers/testcontainers-go/modules/redis"
)

func Test_RedisStore(t *testing.T) {
	ctx := context.Background()
	redisContainer, err := rediscon.Run(ctx, "redis:7",
		testcontainers.WithConfigModifier(func(config *container.Config) {
			config.Env = []string{
				"ALLOW_EMPTY_PASSWORD=yes",
			}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, redisContainer.Terminate(ctx))
	})

	state, err := redisContainer.State(ctx)
	require.NoError(t, err)
	require.True(t, state.Running)

	root := fmt.Sprintf("test-%d", time.Now().Unix())

	host, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)

	options, err := redis.ParseURL(host)
	require.NoError(t, err)

	client := redis.NewClient(options)

	rs := client.Ping(ctx) // Ensure the connection is established
	require.NoError(t, rs.Err(), "failed to connect to Redis")

	st := store.NewRedisStore(client, root)

	expErr := "invalid chat context"
	assert.EqualError(t, st.Add(ctx, &store.Invocation{}), expErr)
	assert.EqualError(t, st.Reset(ctx), expErr)
	_, err = st.List(ctx)
	assert.EqualError(t, err, expErr)

	chatCtx := chatmodel.NewChatContext("tenant1", "chat1", nil)
	ctx = chatmodel.WithChatContext(ctx, chatCtx)

	list, err := st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = st.Add(ctx, &store.Invocation{
		Tool:      "JiraSearchIssues",
		Input:     `{"JQL":"project = OPS","ApiToken":"atl-secret"}`,
		Output:    `{"total":3}`,
		StartedAt: time.Now().UTC(),
		Duration:  250 * time.Millisecond,
	})
	require.NoError(t, err)

	err = st.Add(ctx, &store.Invocation{
		Tool:   "WebSearch",
		Input:  `{"Query":"golang"}`,
		Error:  "request failed: status 500",
		Output: "",
	})
	require.NoError(t, err)

	list, err = st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "JiraSearchIssues", list[0].Tool)
	assert.Contains(t, list[0].Input, `"ApiToken":"[REDACTED]"`)
	assert.Contains(t, list[0].Input, `"JQL":"project = OPS"`)
	assert.Equal(t, "WebSearch", list[1].Tool)
	assert.Equal(t, "request failed: status 500", list[1].Error)
	assert.NotEmpty(t, list[0].ID)
	assert.NotEqual(t, list[0].ID, list[1].ID)

	type chatLister interface {
		ListChats(ctx context.Context) ([]string, error)
	}
	chats, err := st.(chatLister).ListChats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chat1"}, chats)

	require.NoError(t, st.Reset(ctx))
	list, err = st.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
