package searchcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fedsearch/internal/db"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/request"
	"github.com/kailas-cloud/fedsearch/internal/domain/search/result"
)

// --- Mocks ---

type mockEngine struct {
	mu    sync.Mutex
	page  result.Page
	err   error
	calls int
}

func (m *mockEngine) Search(_ context.Context, _ request.PageQuery) (result.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.page, m.err
}

// mockKVStore keeps entries in memory and records the TTL of each write.
type mockKVStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	getKeys []string
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getKeys = append(m.getKeys, key)
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

// expire drops key the way Redis does once its TTL elapses.
func (m *mockKVStore) expire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.ttls, key)
}

func newTestEngine(t *testing.T, inner *mockEngine) (*CachedEngine, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, 0, nil, zap.NewNop()), ms
}

func testPage() result.Page {
	return result.Page{
		Docs:           []map[string]any{{"id": "a1", "price": 9.5}},
		NextCursorMark: "AoE=",
		Facets:         result.Facets{"brand": {{Value: "acme", Count: 3}, {Value: "bolt", Count: 1}}},
		NumFound:       7,
	}
}
