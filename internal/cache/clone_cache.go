package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"clonehub/internal/model"
)

// CloneCache keeps clones with their documents in Redis. A short-lived dirty
// marker is written on invalidation so a reader that loaded the row before a
// write does not put the old version back.
type CloneCache struct {
	client         *redisv9.Client
	cloneTTL       time.Duration
	dirtyMarkerTTL time.Duration
}

func NewCloneCache(client *redisv9.Client, cloneTTL, dirtyMarkerTTL time.Duration) *CloneCache {
	if cloneTTL <= 0 {
		cloneTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &CloneCache{
		client:         client,
		cloneTTL:       cloneTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *CloneCache) GetClone(ctx context.Context, id string) (*model.Clone, bool, error) {
	raw, err := c.client.Get(ctx, c.cloneKey(id)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get clone failed: %w", err)
	}

	var clone model.Clone
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached clone failed: %w", err)
	}
	return &clone, true, nil
}

// SetClone stores clone unless it was invalidated within the dirty window.
func (c *CloneCache) SetClone(ctx context.Context, clone *model.Clone) error {
	dirty, err := c.isDirty(ctx, clone.ID)
	if err != nil {
		return err
	}
	if dirty {
		return nil
	}

	payload, err := json.Marshal(clone)
	if err != nil {
		return fmt.Errorf("marshal clone cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.cloneKey(clone.ID), payload, c.cloneTTL).Err(); err != nil {
		return fmt.Errorf("redis set clone failed: %w", err)
	}
	return nil
}

func (c *CloneCache) Invalidate(ctx context.Context, id string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.cloneKey(id))
	pipe.Set(ctx, c.dirtyKey(id), "1", c.dirtyMarkerTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate clone failed: %w", err)
	}
	return nil
}

func (c *CloneCache) isDirty(ctx context.Context, id string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *CloneCache) cloneKey(id string) string {
	return "clone:" + id
}

func (c *CloneCache) dirtyKey(id string) string {
	return "clone:dirty:" + id
}
