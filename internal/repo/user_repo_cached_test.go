package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-directory/internal/core/cache"
	"user-directory/internal/domain"
	"user-directory/internal/repo"
	"user-directory/internal/testutil"
)

func newCachedRepo(t *testing.T) (*repo.CachedUserRepo, *repo.UserRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	inner := repo.NewUserRepo(testutil.NewSeededDB(t))
	return repo.NewCachedUserRepo(inner, c, time.Minute, zaptest.NewLogger(t)), inner, mr
}

func TestCachedUserRepo_ReadThroughByID(t *testing.T) {
	r, _, mr := newCachedRepo(t)
	ctx := context.Background()

	u, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Username-1", u.Username)
	assert.True(t, mr.Exists("users:id:Id-1"))

	// 非纯 ID 条件不落缓存
	_, err = r.Get(ctx, domain.Criteria{Username: "Username-2"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("users:id:Id-2"))
}

func TestCachedUserRepo_ServesFromCache(t *testing.T) {
	r, inner, _ := newCachedRepo(t)
	ctx := context.Background()

	_, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)

	// 绕过装饰器改底层数据，缓存命中仍返回旧值
	u := testutil.User(1)
	u.Username = "behind-the-cache"
	_, err = inner.Update(ctx, &u)
	require.NoError(t, err)

	got, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	assert.Equal(t, "Username-1", got.Username)
}

func TestCachedUserRepo_MutationsInvalidate(t *testing.T) {
	r, _, mr := newCachedRepo(t)
	ctx := context.Background()

	_, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	require.True(t, mr.Exists("users:id:Id-1"))

	u := testutil.User(1)
	u.Username = "fresh"
	changed, err := r.Update(ctx, &u)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, mr.Exists("users:id:Id-1"))

	got, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Username)
}

func TestCachedUserRepo_NegativeEntryClearedByAdd(t *testing.T) {
	r, _, mr := newCachedRepo(t)
	ctx := context.Background()

	got, err := r.Get(ctx, domain.ByID("Id-6"))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, mr.Exists("users:id:Id-6"))

	u := testutil.User(6)
	_, err = r.Add(ctx, &u)
	require.NoError(t, err)

	got, err = r.Get(ctx, domain.ByID("Id-6"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Id-6", got.ID)
}

func TestCachedUserRepo_SoftDeleteHidesCachedUser(t *testing.T) {
	r, _, _ := newCachedRepo(t)
	ctx := context.Background()

	_, err := r.Get(ctx, domain.ByID("Id-2"))
	require.NoError(t, err)

	changed, err := r.SoftDeleteRange(ctx, []domain.User{testutil.User(2)})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := r.Get(ctx, domain.ByID("Id-2"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCachedUserRepo_RedisDownFallsBackToStore(t *testing.T) {
	r, _, mr := newCachedRepo(t)
	mr.Close()

	got, err := r.Get(context.Background(), domain.ByID("Id-3"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Id-3", got.ID)
}

func TestCachedUserRepo_FreshBypassesCache(t *testing.T) {
	r, inner, mr := newCachedRepo(t)
	ctx := context.Background()

	_, err := r.Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	u := testutil.User(1)
	u.Username = "behind-the-cache"
	_, err = inner.Update(ctx, &u)
	require.NoError(t, err)

	got, err := r.Fresh().Get(ctx, domain.ByID("Id-1"))
	require.NoError(t, err)
	assert.Equal(t, "behind-the-cache", got.Username)
	assert.True(t, mr.Exists("users:id:Id-1"))
}
