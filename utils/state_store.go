package utils

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

const oauthStatePrefix = "nestboard:oauth:state:"

// NewOAuthState mints a random state token and records it for one
// round trip through the provider.
func NewOAuthState(ctx context.Context, ttl time.Duration) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)
	if err := GetRedis().Set(ctx, oauthStatePrefix+state, "1", ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// ConsumeOAuthState validates and burns a state token. A token is
// single use; replays fail.
func ConsumeOAuthState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	n, err := GetRedis().Del(ctx, oauthStatePrefix+state).Result()
	return err == nil && n > 0
}
