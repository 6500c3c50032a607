package utils

import (
	"context"
	"sync"
	"time"
)

// revokedEntry keeps expiration metadata for a revoked session token.
type revokedEntry struct {
	expiresAt time.Time
}

var (
	revoked   = map[string]revokedEntry{}
	revokedMu sync.RWMutex
)

// RevokeSessionToken marks a session token as invalid until its natural
// expiration, so logout takes effect even if the cookie is replayed.
// Prefers Redis; falls back to process memory when Redis is unreachable.
func RevokeSessionToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, "session:revoked:"+token, "1", ttl).Err(); err == nil {
			return
		}
	}
	revokedMu.Lock()
	revoked[token] = revokedEntry{expiresAt: expiresAt}
	revokedMu.Unlock()
}

// IsSessionRevoked reports whether a token was revoked before natural expiration.
func IsSessionRevoked(token string) bool {
	revokedMu.RLock()
	entry, ok := revoked[token]
	revokedMu.RUnlock()
	if ok {
		if time.Now().Before(entry.expiresAt) {
			return true
		}
		revokedMu.Lock()
		delete(revoked, token)
		revokedMu.Unlock()
	}

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "session:revoked:"+token).Result()
		if err == nil {
			return n > 0
		}
		// Fail-open on Redis error to avoid locking everyone out.
	}
	return false
}
