package collection

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
)

// store is the consumer interface for collection metadata (ISP).
type store interface {
	HSetNX(ctx context.Context, key string, fields map[string]string) (bool, error)
	HReplace(ctx context.Context, key string, fields map[string]string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/collection.Repository on Redis hashes.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new collection definition. The existence check and the
// write happen in one server-side step.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}
	created, err := r.store.HSetNX(ctx, metaKey(col.Name()), hashData)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", col.Name(), err)
	}
	if !created {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Update replaces an existing collection definition.
func (r *Repo) Update(ctx context.Context, col domcol.Collection) error {
	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}
	replaced, err := r.store.HReplace(ctx, metaKey(col.Name()), hashData)
	if err != nil {
		return fmt.Errorf("update collection %s: %w", col.Name(), err)
	}
	if !replaced {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a collection by name.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return collectionFromHash(m)
}

// Exists reports whether a collection definition is stored.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.Exists(ctx, metaKey(name))
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return ok, nil
}

// List returns all collections sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	keys, err := r.store.Scan(ctx, metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if len(keys) == 0 {
		return []domcol.Collection{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi collections: %w", err)
	}

	collections := make([]domcol.Collection, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		col, err := collectionFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		collections = append(collections, col)
	}

	sort.Slice(collections, func(i, j int) bool {
		if collections[i].CreatedAt() == collections[j].CreatedAt() {
			return collections[i].Name() < collections[j].Name()
		}
		return collections[i].CreatedAt() < collections[j].CreatedAt()
	})
	return collections, nil
}

// Delete removes a collection definition. Stored documents are left alone.
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := metaKey(name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}
	return nil
}

// key pattern: fedsearch:collection:{name}
func metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", domain.KeyPrefix, name)
}
