package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// PostListPrefix keys cached board listing pages.
	PostListPrefix = "nestboard:posts:list:"
	// PostTreePrefix keys cached reply-tree payloads per post.
	PostTreePrefix = "nestboard:posts:tree:"
	// StatsKey caches the aggregated forum statistics document.
	StatsKey = "nestboard:stats"
)

// CacheGetJSON loads and unmarshals a cached value. Returns false on
// miss or any Redis/unmarshal failure; reads never block handlers.
func CacheGetJSON(ctx context.Context, key string, out any) bool {
	val, err := GetRedis().Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			zap.S().Debugw("cache get failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		zap.S().Warnw("cache entry corrupt, dropping", "key", key, "err", err)
		_ = GetRedis().Del(ctx, key).Err()
		return false
	}
	return true
}

// CacheSetJSON stores a value with TTL, best effort.
func CacheSetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.S().Warnw("cache marshal failed", "key", key, "err", err)
		return
	}
	if err := GetRedis().Set(ctx, key, data, ttl).Err(); err != nil {
		zap.S().Debugw("cache set failed", "key", key, "err", err)
	}
}

// InvalidateByPrefix removes all keys under a prefix using SCAN so the
// server stays responsive on large keyspaces.
func InvalidateByPrefix(ctx context.Context, prefix string) {
	client := GetRedis()
	iter := client.Scan(ctx, 0, prefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 500 {
			_ = client.Del(ctx, keys...).Err()
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		zap.S().Debugw("cache scan failed", "prefix", prefix, "err", err)
	}
	if len(keys) > 0 {
		_ = client.Del(ctx, keys...).Err()
	}
}

// InvalidatePostCaches drops listing pages, the affected post's tree
// cache and the stats document after any write touching posts/replies.
func InvalidatePostCaches(ctx context.Context, postID string) {
	InvalidateByPrefix(ctx, PostListPrefix)
	if postID != "" {
		_ = GetRedis().Del(ctx, PostTreePrefix+postID).Err()
	}
	_ = GetRedis().Del(ctx, StatsKey).Err()
}
