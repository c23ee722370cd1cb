package subscriptions

import (
	"sync"
	"time"
)

type cachedSecret struct {
	secret   string
	cachedAt time.Time
}

type secretCache struct {
	store sync.Map // map[workspace_id]*cachedSecret
	ttl   time.Duration
}

func newSecretCache(ttl time.Duration) *secretCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &secretCache{ttl: ttl}
}

func (c *secretCache) get(workspaceID string) (string, bool) {
	val, ok := c.store.Load(workspaceID)
	if !ok {
		return "", false
	}

	entry := val.(*cachedSecret)
	if time.Since(entry.cachedAt) > c.ttl {
		c.store.Delete(workspaceID)
		return "", false
	}

	return entry.secret, true
}

func (c *secretCache) set(workspaceID, secret string) {
	c.store.Store(workspaceID, &cachedSecret{secret: secret, cachedAt: time.Now()})
}

func (c *secretCache) invalidate(workspaceID string) {
	c.store.Delete(workspaceID)
}
