package mongo

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kailas-cloud/fedsearch/internal/db"
)

func TestInsertResult_Success(t *testing.T) {
	res, err := insertResult(5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted != 5 || len(res.WriteErrors) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestInsertResult_PartialFailure(t *testing.T) {
	bwe := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			{WriteError: mongo.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key"}},
			{WriteError: mongo.WriteError{Index: 3, Code: 121, Message: "Document failed validation"}},
		},
	}

	res, err := insertResult(10, bwe)
	if err != nil {
		t.Fatalf("partial failure must not be an error: %v", err)
	}
	if res.Inserted != 8 {
		t.Errorf("Inserted = %d, want 8", res.Inserted)
	}
	if len(res.WriteErrors) != 2 {
		t.Fatalf("WriteErrors = %d, want 2", len(res.WriteErrors))
	}
	if res.WriteErrors[0].Index != 1 || res.WriteErrors[0].Code != 11000 {
		t.Errorf("unexpected first write error: %+v", res.WriteErrors[0])
	}
}

func TestInsertResult_WriteConcernIsBatchFailure(t *testing.T) {
	bwe := mongo.BulkWriteException{
		WriteConcernError: &mongo.WriteConcernError{Code: 64, Message: "waiting for replication timed out"},
	}

	_, err := insertResult(10, bwe)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpInsertMany {
		t.Fatalf("expected db.Error for insertMany, got %v", err)
	}
}

func TestInsertResult_NetworkError(t *testing.T) {
	_, err := insertResult(10, context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
}

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore(context.Background(), Config{Database: "x"}); err == nil {
		t.Error("expected error without uri")
	}
	if _, err := NewStore(context.Background(), Config{URI: "mongodb://localhost:27017"}); err == nil {
		t.Error("expected error without database")
	}
}

func TestInsertMany_EmptyBatch(t *testing.T) {
	s := &Store{}
	res, err := s.InsertMany(context.Background(), "books", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted != 0 {
		t.Errorf("Inserted = %d, want 0", res.Inserted)
	}
}
