package gormstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"floorsync-system/internal/database/models"
)

const (
	MENU_ITEM_CACHE_KEY = "floor:menu:item:"
	CACHE_TTL_MEDIUM    = 30 * time.Minute
)

// menuCache keeps menu item lookups out of postgres while orders are
// being placed. Order totals never read from it; they use the preloaded
// menu rows.
type menuCache struct {
	rdb *redis.Client
}

func newMenuCache(rdb *redis.Client) *menuCache {
	return &menuCache{rdb: rdb}
}

func (c *menuCache) get(ctx context.Context, id string) (models.MenuItem, bool) {
	var m models.MenuItem
	if c.rdb == nil {
		return m, false
	}
	cached, err := c.rdb.Get(ctx, MENU_ITEM_CACHE_KEY+id).Result()
	if err == redis.Nil {
		return m, false
	}
	if err != nil {
		slog.Warn("menu cache read failed", "menu_item_id", id, "error", err)
		return m, false
	}
	if err := json.Unmarshal([]byte(cached), &m); err != nil {
		return m, false
	}
	return m, true
}

func (c *menuCache) set(ctx context.Context, m models.MenuItem) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, MENU_ITEM_CACHE_KEY+m.ID, data, CACHE_TTL_MEDIUM).Err(); err != nil {
		slog.Warn("menu cache write failed", "menu_item_id", m.ID, "error", err)
	}
}

func (c *menuCache) evict(ctx context.Context, ids ...string) {
	if c.rdb == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = MENU_ITEM_CACHE_KEY + id
	}
	_ = c.rdb.Del(ctx, keys...)
}
