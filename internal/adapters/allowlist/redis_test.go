package allowlist

import (
	"context"
	"testing"

	"github.com/ifrugal/kb-admin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSource_TracksSetMembership(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	key := "test:allowed-admins"
	require.NoError(t, client.Del(ctx, key).Err())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	src := NewRedisSource(client, key)

	al, err := src.Allowlist(ctx)
	require.NoError(t, err)
	assert.True(t, al.Empty())

	require.NoError(t, client.SAdd(ctx, key, "Ops@Co.com").Err())
	al, err = src.Allowlist(ctx)
	require.NoError(t, err)
	assert.True(t, al.Contains("ops@co.com"))

	require.NoError(t, client.SRem(ctx, key, "Ops@Co.com").Err())
	al, err = src.Allowlist(ctx)
	require.NoError(t, err)
	assert.False(t, al.Contains("ops@co.com"))
}

func TestRedisSource_NilClientErrors(t *testing.T) {
	_, err := NewRedisSource(nil, "").Allowlist(context.Background())
	require.Error(t, err)
}

func TestRedisSource_AddRemoveNormalize(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	key := "test:allowed-admins-edit"
	require.NoError(t, client.Del(ctx, key).Err())
	t.Cleanup(func() { client.Del(context.Background(), key) })

	src := NewRedisSource(client, key)
	assert.Equal(t, key, src.Key())

	n, err := src.Add(ctx, " Admin@Example.com ", "ops@example.com", "admin@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stored, err := client.SMembers(ctx, key).Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"admin@example.com", "ops@example.com"}, stored)

	n, err = src.Remove(ctx, "OPS@example.com", "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	al, err := src.Allowlist(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@example.com"}, al.Members())
}

func TestRedisSource_AddRejectsBlank(t *testing.T) {
	src := NewRedisSource(nil, "")
	_, err := src.Add(context.Background(), " ", "")
	require.Error(t, err)
	_, err = src.Remove(context.Background())
	require.Error(t, err)
}
