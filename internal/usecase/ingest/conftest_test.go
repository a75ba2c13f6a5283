package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kailas-cloud/fedsearch/internal/domain"
	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	domcol "github.com/kailas-cloud/fedsearch/internal/domain/collection"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
	doming "github.com/kailas-cloud/fedsearch/internal/domain/ingest"
)

// --- Mocks ---

type mockCollections struct {
	cols map[string]domcol.Collection
}

func (m *mockCollections) Get(_ context.Context, name string) (domcol.Collection, error) {
	col, ok := m.cols[name]
	if !ok {
		return domcol.Collection{}, domain.ErrNotFound
	}
	return col, nil
}

// mockWriter records batches, tracks peak concurrency and can reject
// records by upload index or fail whole batches.
type mockWriter struct {
	mu        sync.Mutex
	sizes     []int
	indices   []int
	docs      []map[string]any
	rejectIdx map[int]bool
	failCall  map[int]bool
	panicCall map[int]bool
	calls     int
	delay     time.Duration
	release   chan struct{}

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockWriter) InsertBatch(_ context.Context, _ string, indices []int, docs []map[string]any) batch.Result {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.release != nil {
		<-m.release
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.calls
	m.calls++
	m.sizes = append(m.sizes, len(docs))

	if m.panicCall[call] {
		panic("driver bug")
	}
	if m.failCall[call] {
		return batch.NewError(indices[0], len(docs), errors.New("connection reset"))
	}

	var failures []batch.Failure
	for i, idx := range indices {
		if m.rejectIdx[idx] {
			failures = append(failures, batch.Failure{Index: idx, Message: "duplicate key"})
			continue
		}
		m.indices = append(m.indices, idx)
		m.docs = append(m.docs, docs[i])
	}
	return batch.NewWritten(indices[0], len(docs), len(docs)-len(failures), failures)
}

func (m *mockWriter) sortedSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]int(nil), m.sizes...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func testCollection(t *testing.T) domcol.Collection {
	t.Helper()
	price, err := field.New("price", field.Number)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	name, err := field.New("name", field.String, field.Required())
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	return domcol.Reconstruct("products", "Products", []field.Field{name, price}, 1, 0)
}

func newTestService(t *testing.T, w *mockWriter, cfg Config) *Service {
	t.Helper()
	colls := &mockCollections{cols: map[string]domcol.Collection{"products": testCollection(t)}}
	return New(colls, w, cfg, nil)
}

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

func waitJobs(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func finalSnapshot(t *testing.T, s *Service, collection string) doming.Snapshot {
	t.Helper()
	waitJobs(t, s)
	snap, err := s.Snapshot(collection)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !snap.Done {
		t.Fatalf("job not done after Wait: %+v", snap)
	}
	return snap
}

func fileGone(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("upload %s should have been removed, stat err=%v", path, err)
	}
}
