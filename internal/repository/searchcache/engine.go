// Package searchcache memoizes single-collection search pages in a TTL store.
package searchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/db"
	"github.com/kailas-cloud/fedsearch/internal/domain"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTTL bounds staleness; entries are never invalidated on write.
const DefaultTTL = 600 * time.Second

// store is the consumer interface for the page cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// engine is the upstream search engine.
type engine interface {
	Search(ctx context.Context, q request.PageQuery) (result.Page, error)
}

// CachedEngine caches search pages in a key-value store.
type CachedEngine struct {
	inner      engine
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner engine,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEngine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedEngine{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Search returns a cached page or queries the inner engine.
// Upstream failures are never cached.
func (c *CachedEngine) Search(ctx context.Context, q request.PageQuery) (result.Page, error) {
	key := Key(q)

	if page, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return page, nil
	}
	c.incCache("miss")

	page, err := c.inner.Search(ctx, q)
	if err != nil {
		return result.Page{}, fmt.Errorf("search %s: %w", q.Collection, err)
	}

	c.putToCache(ctx, key, page)
	return page, nil
}

// Key builds "search:{collection}:{query}:{limit}:{cursorMark}". Filters and
// template params, when set, add a digest suffix so they cannot alias.
func Key(q request.PageQuery) string {
	var b strings.Builder
	b.WriteString(domain.KeyPrefix)
	b.WriteString("search:")
	b.WriteString(q.Collection)
	b.WriteByte(':')
	b.WriteString(q.Q)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(q.Rows))
	b.WriteByte(':')
	b.WriteString(q.CursorMark)
	if d := variantDigest(q); d != "" {
		b.WriteByte(':')
		b.WriteString(d)
	}
	return b.String()
}

func variantDigest(q request.PageQuery) string {
	p := q.Params
	if len(q.Filters) == 0 && p.QF == "" && p.FL == "" && p.PF == "" && p.PF2 == "" && p.PF3 == "" &&
		p.PS == "" && p.PS2 == "" && p.PS3 == "" && p.MM == "" && len(p.FacetFields) == 0 {
		return ""
	}
	h := sha256.New()
	for _, part := range []string{p.QF, p.FL, p.PF, p.PF2, p.PF3, p.PS, p.PS2, p.PS3, p.MM} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, f := range p.FacetFields {
		h.Write([]byte(f))
		h.Write([]byte{1})
	}
	for _, fq := range q.Filters {
		h.Write([]byte(fq))
		h.Write([]byte{2})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

func (c *CachedEngine) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEngine) getFromCache(ctx context.Context, key string) (result.Page, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached page", zap.String("key", key), zap.Error(err))
		}
		return result.Page{}, false
	}
	if len(data) == 0 {
		return result.Page{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached page", zap.String("key", key), zap.Error(err))
		return result.Page{}, false
	}
	return e.page(), true
}

func (c *CachedEngine) putToCache(ctx context.Context, key string, page result.Page) {
	data, err := json.Marshal(newEntry(page))
	if err != nil {
		c.logger.Warn("Failed to encode page for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}
