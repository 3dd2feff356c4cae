package chatmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext_Basics(t *testing.T) {
	t.Parallel()
	c := NewChatContext("tid", "cid", 123)
	require.NotNil(t, c)
	assert.Equal(t, "tid", c.GetTenantID())
	assert.Equal(t, "cid", c.GetChatID())
	assert.Equal(t, 123, c.AppData())
	assert.NotEmpty(t, c.RunID())

	c.SetChatID("newid")
	assert.Equal(t, "newid", c.GetChatID())

	val, ok := c.GetMetadata("not-found")
	assert.Nil(t, val)
	assert.False(t, ok)
	c.SetMetadata("foo", 1)
	v, ok := c.GetMetadata("foo")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestNewChatContext_DefaultIDs(t *testing.T) {
	t.Parallel()
	c := NewChatContext("", "", nil)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.GetTenantID())
	assert.NotEmpty(t, c.GetChatID())
	assert.NotEmpty(t, c.RunID())
}

func TestContextPlumbing(t *testing.T) {
	t.Parallel()
	c := NewChatContext("x", "y", nil)
	ctx := context.Background()

	assert.Nil(t, GetChatContext(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetChatID(ctx))

	ctx = WithChatContext(ctx, c)
	got := GetChatContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "x", GetTenantID(ctx))
	assert.Equal(t, "y", GetChatID(ctx))
}

func TestGetTenantAndChatID(t *testing.T) {
	t.Parallel()
	_, _, err := GetTenantAndChatID(context.Background())
	assert.EqualError(t, err, "invalid chat context")

	ctx := WithChatContext(context.Background(), NewChatContext("t1", "c1", nil))
	tenantID, chatID, err := GetTenantAndChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tenantID)
	assert.Equal(t, "c1", chatID)
}
