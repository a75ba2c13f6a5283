package collection

import (
	"context"
	"testing"

	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

// mockStore implements the consumer interface for tests. The conditional
// writes consult existsFn and then record through hsetFn.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, keys ...string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) hset(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetNX(ctx context.Context, key string, fields map[string]string) (bool, error) {
	exists, err := m.Exists(ctx, key)
	if err != nil || exists {
		return false, err
	}
	return true, m.hset(ctx, key, fields)
}

func (m *mockStore) HReplace(ctx context.Context, key string, fields map[string]string) (bool, error) {
	exists, err := m.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	return true, m.hset(ctx, key, fields)
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	price, err := field.New("price", field.Number, field.Required(), field.WithMin(0))
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	status, err := field.New("status", field.String, field.WithEnum("new", "used"), field.WithDefault("new"))
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	return domcol.Reconstruct("products", "Products", []field.Field{price, status}, 1, 1700000000000)
}
