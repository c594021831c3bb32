// Package vocab caches the request-time vocabularies fetched from the
// table store. Webhook traffic is bursty and the vocabularies change
// rarely, so a short TTL cache with a background refresh keeps oracle and
// matcher inputs warm without a table-store round trip per message.
package vocab

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/hurttlocker/textask/internal/interpret"
)

const (
	keyCategories = "categories"
	keyStatuses   = "statuses"
	keyTaskTypes  = "task_types"
)

// DefaultTTL is how long a fetched vocabulary stays warm.
const DefaultTTL = 10 * time.Minute

// Fetcher is the upstream vocabulary source (the Coda client in production).
type Fetcher interface {
	Categories(ctx context.Context) ([]interpret.CategoryCandidate, error)
	Statuses(ctx context.Context) (map[string]string, error)
	TaskTypes(ctx context.Context) ([]string, error)
}

// Cached wraps a Fetcher with a TTL cache. It satisfies
// interpret.VocabularySource; fetch failures propagate so the pipeline can
// apply its vocabulary-unavailable fallbacks.
type Cached struct {
	fetcher Fetcher
	cache   *cache.Cache
	logger  *zap.Logger
	cron    *cron.Cron
}

// NewCached builds a caching source. ttl <= 0 uses DefaultTTL; a nil logger
// means no logging.
func NewCached(fetcher Fetcher, ttl time.Duration, logger *zap.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{
		fetcher: fetcher,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// Categories returns the cached category candidates, fetching on a miss.
func (v *Cached) Categories(ctx context.Context) ([]interpret.CategoryCandidate, error) {
	if x, ok := v.cache.Get(keyCategories); ok {
		return x.([]interpret.CategoryCandidate), nil
	}
	out, err := v.fetcher.Categories(ctx)
	if err != nil {
		return nil, err
	}
	v.cache.SetDefault(keyCategories, out)
	return out, nil
}

// Statuses returns the cached status map, fetching on a miss.
func (v *Cached) Statuses(ctx context.Context) (map[string]string, error) {
	if x, ok := v.cache.Get(keyStatuses); ok {
		return x.(map[string]string), nil
	}
	out, err := v.fetcher.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	v.cache.SetDefault(keyStatuses, out)
	return out, nil
}

// TaskTypes returns the cached type names, fetching on a miss.
func (v *Cached) TaskTypes(ctx context.Context) ([]string, error) {
	if x, ok := v.cache.Get(keyTaskTypes); ok {
		return x.([]string), nil
	}
	out, err := v.fetcher.TaskTypes(ctx)
	if err != nil {
		return nil, err
	}
	v.cache.SetDefault(keyTaskTypes, out)
	return out, nil
}

// StartRefresh schedules a background refresh of all three vocabularies on
// the given cron spec (e.g. "@every 5m"). Refresh failures are logged and
// leave the previous cached values in place until they expire.
func (v *Cached) StartRefresh(spec string) error {
	if v.cron != nil {
		return fmt.Errorf("refresh already started")
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, v.refresh); err != nil {
		return fmt.Errorf("scheduling vocabulary refresh: %w", err)
	}
	v.cron = c
	c.Start()
	return nil
}

// StopRefresh stops the background refresh, if running.
func (v *Cached) StopRefresh() {
	if v.cron != nil {
		v.cron.Stop()
		v.cron = nil
	}
}

func (v *Cached) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if out, err := v.fetcher.Categories(ctx); err == nil {
		v.cache.SetDefault(keyCategories, out)
	} else {
		v.logger.Warn("vocabulary refresh failed", zap.String("vocabulary", keyCategories), zap.Error(err))
	}
	if out, err := v.fetcher.Statuses(ctx); err == nil {
		v.cache.SetDefault(keyStatuses, out)
	} else {
		v.logger.Warn("vocabulary refresh failed", zap.String("vocabulary", keyStatuses), zap.Error(err))
	}
	if out, err := v.fetcher.TaskTypes(ctx); err == nil {
		v.cache.SetDefault(keyTaskTypes, out)
	} else {
		v.logger.Warn("vocabulary refresh failed", zap.String("vocabulary", keyTaskTypes), zap.Error(err))
	}
}
