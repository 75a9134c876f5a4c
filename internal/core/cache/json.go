package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON 泛型 JSON 读穿。
// load 返回 nil 时缓存 "null"（负缓存），调用方负责在写入后失效；
// 缓存内容无法解码（结构变更后的旧数据）时删除该 key 并直接回源。
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	out, err := decodeJSON[T](b)
	if err == nil {
		return out, nil
	}

	_ = c.Delete(ctx, key)
	v, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if fresh, e := json.Marshal(v); e == nil {
		_ = c.RDB.Set(ctx, key, fresh, ttl).Err()
	}
	return v, nil
}

func decodeJSON[T any](b []byte) (*T, error) {
	if string(b) == "null" {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
