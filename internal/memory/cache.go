package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"kbagent/internal/model"
)

// TurnCache keeps a short-lived copy of each session's turn log in redis,
// with a dirty marker that suppresses caching while an append is in flight.
type TurnCache struct {
	client         *redisv9.Client
	turnsTTL       time.Duration
	dirtyMarkerTTL time.Duration
}

func NewTurnCache(client *redisv9.Client, turnsTTL, dirtyMarkerTTL time.Duration) *TurnCache {
	if turnsTTL <= 0 {
		turnsTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &TurnCache{
		client:         client,
		turnsTTL:       turnsTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *TurnCache) GetTurns(ctx context.Context, sessionID string) ([]model.Turn, bool, error) {
	raw, err := c.client.Get(ctx, c.turnsKey(sessionID)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get turns failed: %w", err)
	}

	var turns []model.Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached turns failed: %w", err)
	}
	return turns, true, nil
}

func (c *TurnCache) SetTurns(ctx context.Context, sessionID string, turns []model.Turn) error {
	payload, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("marshal turns cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.turnsKey(sessionID), payload, c.turnsTTL).Err(); err != nil {
		return fmt.Errorf("redis set turns failed: %w", err)
	}
	return nil
}

func (c *TurnCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.turnsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete turns failed: %w", err)
	}
	return nil
}

func (c *TurnCache) MarkDirty(ctx context.Context, sessionID string) error {
	if err := c.client.Set(ctx, c.dirtyKey(sessionID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *TurnCache) IsDirty(ctx context.Context, sessionID string) (bool, error) {
	exists, err := c.client.Exists(ctx, c.dirtyKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func (c *TurnCache) turnsKey(sessionID string) string {
	return "kb:conversation:" + sessionID
}

func (c *TurnCache) dirtyKey(sessionID string) string {
	return "kb:conversation:dirty:" + sessionID
}
