package utils

import (
	"context"
	"time"
)

const tokenBlacklistPrefix = "nestboard:token:blacklist:"

// BlacklistToken marks a JWT as revoked until its natural expiry.
func BlacklistToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return GetRedis().Set(ctx, tokenBlacklistPrefix+token, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a token has been revoked. Redis
// failures are treated as "not revoked" so auth stays available.
func IsTokenBlacklisted(ctx context.Context, token string) bool {
	n, err := GetRedis().Exists(ctx, tokenBlacklistPrefix+token).Result()
	if err != nil {
		return false
	}
	return n > 0
}
