package searchcache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// --- Tests ---

var q = request.PageQuery{Collection: "products", Q: "drill", Rows: 10, CursorMark: "*"}

func TestSearch_MissThenHit(t *testing.T) {
	inner := &mockEngine{page: testPage()}
	ce, ms := newTestEngine(t, inner)
	ctx := context.Background()

	first, err := ce.Search(ctx, q)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := ce.Search(ctx, q)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}

	if inner.calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", inner.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached page differs:\n%+v\n%+v", first, second)
	}
	if ttl := ms.ttls[Key(q)]; ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTTL)
	}
}

func TestSearch_ExpiredEntryRefetches(t *testing.T) {
	inner := &mockEngine{page: testPage()}
	ce, ms := newTestEngine(t, inner)
	ctx := context.Background()

	if _, err := ce.Search(ctx, q); err != nil {
		t.Fatalf("first search: %v", err)
	}
	ms.expire(Key(q))

	if _, err := ce.Search(ctx, q); err != nil {
		t.Fatalf("search after expiry: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", inner.calls)
	}
	if _, ok := ms.data[Key(q)]; !ok {
		t.Error("refetched page was not cached again")
	}
	if ttl := ms.ttls[Key(q)]; ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", ttl, DefaultTTL)
	}
}

func TestSearch_DifferentCursorMisses(t *testing.T) {
	inner := &mockEngine{page: testPage()}
	ce, _ := newTestEngine(t, inner)
	ctx := context.Background()

	_, _ = ce.Search(ctx, q)
	next := q
	next.CursorMark = "AoE="
	_, _ = ce.Search(ctx, next)

	if inner.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", inner.calls)
	}
}

func TestSearch_UpstreamErrorNotCached(t *testing.T) {
	inner := &mockEngine{err: errors.New("solr down")}
	ce, ms := newTestEngine(t, inner)

	if _, err := ce.Search(context.Background(), q); err == nil {
		t.Fatal("expected error")
	}
	if len(ms.data) != 0 {
		t.Errorf("failed page should not be cached: %v", ms.data)
	}
}

func TestSearch_StoreErrorsFallThrough(t *testing.T) {
	inner := &mockEngine{page: testPage()}
	ce, ms := newTestEngine(t, inner)
	ms.getErr = errors.New("redis timeout")
	ms.setErr = errors.New("redis timeout")

	page, err := ce.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("cache errors must not fail the search: %v", err)
	}
	if page.NumFound != 7 {
		t.Errorf("numFound = %d", page.NumFound)
	}
}

func TestSearch_CorruptEntryRefetches(t *testing.T) {
	inner := &mockEngine{page: testPage()}
	ce, ms := newTestEngine(t, inner)
	ms.data[Key(q)] = []byte("{not json")

	if _, err := ce.Search(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", inner.calls)
	}
}

func TestSearch_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ce := New(&mockEngine{page: testPage()}, newMockKVStore(), 0, counter, zap.NewNop())

	_, _ = ce.Search(context.Background(), q)
	_, _ = ce.Search(context.Background(), q)
	_, _ = ce.Search(context.Background(), q)

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestKey(t *testing.T) {
	if got := Key(q); got != "fedsearch:search:products:drill:10:*" {
		t.Errorf("Key = %q", got)
	}

	filtered := q
	filtered.Filters = []string{"in_stock:true"}
	tuned := q
	tuned.Params = template.Params{QF: "title"}

	keys := map[string]bool{Key(q): true, Key(filtered): true, Key(tuned): true}
	if len(keys) != 3 {
		t.Errorf("filters and params must change the key: %v", keys)
	}
	if !strings.HasPrefix(Key(filtered), Key(q)+":") {
		t.Errorf("variant key should extend the base key: %s", Key(filtered))
	}
}
