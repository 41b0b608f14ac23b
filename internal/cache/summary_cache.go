package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/invensight/stockpulse/internal/config"
	"github.com/invensight/stockpulse/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	summaryKeyPrefix = "stockpulse:status_summary"
	summaryScanBatch = 100
)

// SummaryCache caches the status-summary dashboard between evaluations.
type SummaryCache interface {
	GetSummary(ctx context.Context) ([]domain.StatusSummary, bool, error)
	SetSummary(ctx context.Context, summaries []domain.StatusSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(cfg config.CacheConfig) (SummaryCache, error) {
	if !cfg.Enabled {
		return &noopSummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSummaryCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

func (c *redisSummaryCache) GetSummary(ctx context.Context) ([]domain.StatusSummary, bool, error) {
	payload, err := c.client.Get(ctx, summaryKeyPrefix).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summaries []domain.StatusSummary
	if err := json.Unmarshal(payload, &summaries); err != nil {
		return nil, false, fmt.Errorf("decode status summary cache: %w", err)
	}

	return summaries, true, nil
}

func (c *redisSummaryCache) SetSummary(ctx context.Context, summaries []domain.StatusSummary) error {
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode status summary cache: %w", err)
	}

	if err := c.client.Set(ctx, summaryKeyPrefix, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisSummaryCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, summaryKeyPrefix, summaryScanBatch)
}

func (n *noopSummaryCache) GetSummary(ctx context.Context) ([]domain.StatusSummary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) SetSummary(ctx context.Context, summaries []domain.StatusSummary) error {
	return nil
}

func (n *noopSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}
