package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"user-directory/internal/core/cache"
	"user-directory/internal/domain"
)

const userKeyPrefix = "users:id:"

// CachedUserRepo 对“仅按 ID 查询”做 redis 读穿，其余调用透传；
// 任何变更成功或失败后都失效涉及的 key
type CachedUserRepo struct {
	domain.UserRepository
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedUserRepo(inner domain.UserRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedUserRepo {
	if l == nil {
		l = zap.NewNop()
	}
	return &CachedUserRepo{UserRepository: inner, cache: c, ttl: ttl, log: l}
}

func userKey(id string) string { return userKeyPrefix + id }

func (r *CachedUserRepo) Get(ctx context.Context, c domain.Criteria) (*domain.User, error) {
	if c.ID == "" || c.Username != "" || c.Email != "" {
		return r.UserRepository.Get(ctx, c)
	}
	return cache.GetOrLoadJSON(r.cache, ctx, userKey(c.ID), r.ttl, func(ctx context.Context) (*domain.User, error) {
		return r.UserRepository.Get(ctx, c)
	})
}

func (r *CachedUserRepo) Add(ctx context.Context, u *domain.User) (bool, error) {
	defer r.invalidate(ctx, *u)
	return r.UserRepository.Add(ctx, u)
}

func (r *CachedUserRepo) AddRange(ctx context.Context, us []domain.User) (bool, error) {
	defer r.invalidate(ctx, us...)
	return r.UserRepository.AddRange(ctx, us)
}

func (r *CachedUserRepo) Update(ctx context.Context, u *domain.User) (bool, error) {
	defer r.invalidate(ctx, *u)
	return r.UserRepository.Update(ctx, u)
}

func (r *CachedUserRepo) UpdateRange(ctx context.Context, us []domain.User) (bool, error) {
	defer r.invalidate(ctx, us...)
	return r.UserRepository.UpdateRange(ctx, us)
}

func (r *CachedUserRepo) Delete(ctx context.Context, u *domain.User) (bool, error) {
	defer r.invalidate(ctx, *u)
	return r.UserRepository.Delete(ctx, u)
}

func (r *CachedUserRepo) DeleteRange(ctx context.Context, us []domain.User) (bool, error) {
	defer r.invalidate(ctx, us...)
	return r.UserRepository.DeleteRange(ctx, us)
}

func (r *CachedUserRepo) SoftDelete(ctx context.Context, u *domain.User) (bool, error) {
	defer r.invalidate(ctx, *u)
	return r.UserRepository.SoftDelete(ctx, u)
}

func (r *CachedUserRepo) SoftDeleteRange(ctx context.Context, us []domain.User) (bool, error) {
	defer r.invalidate(ctx, us...)
	return r.UserRepository.SoftDeleteRange(ctx, us)
}

// Fresh 绕过缓存，避免用过期快照覆盖整行
func (r *CachedUserRepo) Fresh() domain.UserRepository {
	return r.UserRepository.Fresh()
}

// WithDeleted 视图不走缓存
func (r *CachedUserRepo) WithDeleted() domain.UserRepository {
	return r.UserRepository.WithDeleted()
}

func (r *CachedUserRepo) invalidate(ctx context.Context, us ...domain.User) {
	keys := make([]string, 0, len(us))
	for _, u := range us {
		keys = append(keys, userKey(u.ID))
	}
	// 缓存失效失败不影响主流程，依赖 TTL 兜底
	if err := r.cache.Delete(context.WithoutCancel(ctx), keys...); err != nil {
		r.log.Warn("user cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
