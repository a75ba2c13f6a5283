package template

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/fedsearch/internal/db"
	domtpl "github.com/kailas-cloud/fedsearch/internal/domain/template"
)

// memStore is an in-memory store with Redis hash and string semantics.
type memStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	strings map[string][]byte
	getErr  error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{hashes: map[string]map[string]string{}, strings: map[string][]byte{}}
}

func (m *memStore) HPut(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	h := make(map[string]string, len(fields))
	for k, v := range fields {
		h[k] = v
	}
	m.hashes[key] = h
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.strings, k)
	}
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, h := m.hashes[key]
	_, s := m.strings[key]
	return h || s, nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.strings[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

func mustTemplate(t *testing.T, name string, p domtpl.Params) domtpl.Template {
	t.Helper()
	tpl, err := domtpl.New(name, p)
	if err != nil {
		t.Fatalf("template %s: %v", name, err)
	}
	return tpl
}
