package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "snapshot:"

// sharedLoadTimeout bounds a load shared by concurrent misses, which runs
// detached from the cancellation of whichever caller started it.
const sharedLoadTimeout = 30 * time.Second

// KV is the subset of the Redis client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	ObserveCache(hit bool)
}

type nopCacheObserver struct{}

func (nopCacheObserver) ObserveCache(bool) {}

// TierCache is a read-through Source caching another Source in Redis.
// Concurrent misses for the same key share one load; a caller whose context
// ends stops waiting without failing the others.
type TierCache struct {
	kv          KV
	next        Source
	ttl         time.Duration
	loadTimeout time.Duration
	group       singleflight.Group
	observer CacheObserver
	logger   *slog.Logger
}

// NewTierCache wraps next. A nil observer discards the hit counts.
func NewTierCache(kv KV, next Source, ttl time.Duration, observer CacheObserver) *TierCache {
	if observer == nil {
		observer = nopCacheObserver{}
	}
	return &TierCache{
		kv:          kv,
		next:        next,
		ttl:         ttl,
		loadTimeout: sharedLoadTimeout,
		observer:    observer,
		logger:      logger.WithComponent("tier-cache"),
	}
}

// LoadFiles returns the cached file list of project, loading it on a miss.
func (c *TierCache) LoadFiles(ctx context.Context, project *symbolsearch.ProjectInfo) ([]string, error) {
	key := filesKey(project)
	var files []string
	if c.get(ctx, key, &files) {
		return files, nil
	}
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		files, err := c.next.LoadFiles(ctx, project)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, files)
		return files, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// LoadTier returns the cached tier, loading it on a miss.
func (c *TierCache) LoadTier(ctx context.Context, project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind) (*symbolsearch.TierData, error) {
	key := tierKey(project, kinds)
	var cached wireTier
	if c.get(ctx, key, &cached) {
		data, err := fromWire(project, cached)
		if err == nil {
			return data, nil
		}
		c.logger.Error("cached tier is corrupt", "key", key, "error", err)
	}
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		data, err := c.next.LoadTier(ctx, project, kinds)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, toWireTier(data))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*symbolsearch.TierData), nil
}

// Invalidate drops every cached entry of project.
func (c *TierCache) Invalidate(ctx context.Context, project *symbolsearch.ProjectInfo) error {
	pattern := keyPrefix + escapeGlob(projectKey(project)) + ":*"
	deleted, err := c.kv.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating %s: %w", project, err)
	}
	c.logger.Info("cache invalidated", "project", project.String(), "keys_deleted", deleted)
	return nil
}

// shared runs load at most once per key among concurrent callers. The load
// keeps ctx's values but not its cancellation.
func (c *TierCache) shared(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		return load(loadCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *TierCache) get(ctx context.Context, key string, v any) bool {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.observer.ObserveCache(false)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.observer.ObserveCache(false)
		return false
	}
	c.observer.ObserveCache(true)
	c.logger.Debug("cache hit", "key", key)
	return true
}

func (c *TierCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func filesKey(project *symbolsearch.ProjectInfo) string {
	return keyPrefix + projectKey(project) + ":files"
}

func tierKey(project *symbolsearch.ProjectInfo, kinds []symbolsearch.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return keyPrefix + projectKey(project) + ":tier:" + strings.Join(names, ",")
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
