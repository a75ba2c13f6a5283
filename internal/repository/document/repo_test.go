package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kailas-cloud/fedsearch/internal/db"
	"github.com/kailas-cloud/fedsearch/internal/domain/batch"
	"github.com/kailas-cloud/fedsearch/internal/domain/collection/field"
)

// --- Mocks ---

type mockStore struct {
	insertManyFn func(ctx context.Context, collection string, docs []map[string]any) (db.InsertResult, error)
}

func (m *mockStore) InsertMany(ctx context.Context, collection string, docs []map[string]any) (db.InsertResult, error) {
	if m.insertManyFn != nil {
		return m.insertManyFn(ctx, collection, docs)
	}
	return db.InsertResult{Inserted: len(docs)}, nil
}

// --- Tests ---

func TestInsertBatch_AllWritten(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms)

	res := repo.InsertBatch(context.Background(), "products", []int{1000, 1001}, []map[string]any{{"a": 1}, {"a": 2}})
	if res.Status() != batch.StatusOK || res.Inserted() != 2 || res.Offset() != 1000 {
		t.Errorf("unexpected result: status=%s inserted=%d offset=%d", res.Status(), res.Inserted(), res.Offset())
	}
}

func TestInsertBatch_PartialMapsUploadIndices(t *testing.T) {
	ms := &mockStore{insertManyFn: func(_ context.Context, _ string, docs []map[string]any) (db.InsertResult, error) {
		return db.InsertResult{
			Inserted:    len(docs) - 1,
			WriteErrors: []db.WriteError{{Index: 1, Code: 11000, Message: "duplicate key"}},
		}, nil
	}}
	repo := New(ms)

	res := repo.InsertBatch(context.Background(), "products", []int{5000, 5003, 5004}, []map[string]any{{}, {}, {}})
	if res.Status() != batch.StatusPartial {
		t.Fatalf("status = %s, want partial", res.Status())
	}
	if res.Inserted() != 2 || res.Failed() != 1 {
		t.Errorf("inserted=%d failed=%d", res.Inserted(), res.Failed())
	}
	f := res.Failures()
	if len(f) != 1 || f[0].Index != 5003 || !strings.Contains(f[0].Message, "duplicate key") {
		t.Errorf("failures = %+v", f)
	}
}

func TestInsertBatch_BatchLevelError(t *testing.T) {
	ms := &mockStore{insertManyFn: func(_ context.Context, _ string, _ []map[string]any) (db.InsertResult, error) {
		return db.InsertResult{}, errors.New("connection reset")
	}}
	repo := New(ms)

	res := repo.InsertBatch(context.Background(), "products", []int{0, 1}, []map[string]any{{}, {}})
	if res.Status() != batch.StatusError || res.Err() == nil {
		t.Fatalf("expected batch error, got %s", res.Status())
	}
	if res.Failed() != 2 {
		t.Errorf("failed = %d, want 2", res.Failed())
	}
}

func TestInsertBatch_Empty(t *testing.T) {
	called := false
	ms := &mockStore{insertManyFn: func(_ context.Context, _ string, _ []map[string]any) (db.InsertResult, error) {
		called = true
		return db.InsertResult{}, nil
	}}

	res := New(ms).InsertBatch(context.Background(), "products", nil, nil)
	if called {
		t.Error("empty batch should not reach the store")
	}
	if res.Status() != batch.StatusOK {
		t.Errorf("status = %s", res.Status())
	}
}

func TestInsertBatch_ConvertsCoercedTypes(t *testing.T) {
	var got map[string]any
	ms := &mockStore{insertManyFn: func(_ context.Context, _ string, docs []map[string]any) (db.InsertResult, error) {
		got = docs[0]
		return db.InsertResult{Inserted: 1}, nil
	}}
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := map[string]any{
		"price":   field.DecimalValue("19.99"),
		"owner":   field.ObjectIDValue("65a1b2c3d4e5f60718293a4b"),
		"created": when,
		"blob":    []byte("hi"),
		"nested":  map[string]any{"id": field.ObjectIDValue("65a1b2c3d4e5f60718293a4b")},
		"list":    []any{field.DecimalValue("1.5"), "x"},
		"name":    "drill",
	}

	New(ms).InsertBatch(context.Background(), "products", []int{0}, []map[string]any{doc})

	if d, ok := got["price"].(primitive.Decimal128); !ok || d.String() != "19.99" {
		t.Errorf("price = %#v", got["price"])
	}
	if id, ok := got["owner"].(primitive.ObjectID); !ok || id.Hex() != "65a1b2c3d4e5f60718293a4b" {
		t.Errorf("owner = %#v", got["owner"])
	}
	if dt, ok := got["created"].(primitive.DateTime); !ok || !dt.Time().Equal(when) {
		t.Errorf("created = %#v", got["created"])
	}
	if b, ok := got["blob"].(primitive.Binary); !ok || string(b.Data) != "hi" {
		t.Errorf("blob = %#v", got["blob"])
	}
	if _, ok := got["nested"].(map[string]any)["id"].(primitive.ObjectID); !ok {
		t.Errorf("nested id not converted: %#v", got["nested"])
	}
	if _, ok := got["list"].([]any)[0].(primitive.Decimal128); !ok {
		t.Errorf("list element not converted: %#v", got["list"])
	}
	if got["name"] != "drill" {
		t.Errorf("name = %v", got["name"])
	}
	if _, ok := doc["price"].(field.DecimalValue); !ok {
		t.Error("input document must not be modified")
	}
}
