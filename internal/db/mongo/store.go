// Package mongo implements db.DocumentStore on top of the MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kailas-cloud/fedsearch/internal/db"
	"github.com/kailas-cloud/fedsearch/internal/version"
)

var _ db.DocumentStore = (*Store)(nil)

// Config holds connection parameters for the document store.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store writes ingestion batches into MongoDB collections.
type Store struct {
	client   *mongo.Client
	database *mongo.Database
}

// NewStore connects to MongoDB. The driver connects lazily, so use
// WaitForReady to block until the deployment is reachable.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database is required")
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(version.UserAgent())
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &Store{client: client, database: client.Database(cfg.Database)}, nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the deployment responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for mongo: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// InsertMany performs an unordered insert so a rejected document does not stop the batch.
// Per-document rejections are returned in the result; only batch-level failures return an error.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []map[string]any) (db.InsertResult, error) {
	if len(docs) == 0 {
		return db.InsertResult{}, nil
	}

	payload := make([]any, len(docs))
	for i, d := range docs {
		payload[i] = d
	}

	_, err := s.database.Collection(collection).
		InsertMany(ctx, payload, options.InsertMany().SetOrdered(false))
	return insertResult(len(docs), err)
}

// insertResult folds the driver outcome into db.InsertResult.
func insertResult(n int, err error) (db.InsertResult, error) {
	if err == nil {
		return db.InsertResult{Inserted: n}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return db.InsertResult{}, &db.Error{Op: db.OpInsertMany, Err: err}
	}

	res := db.InsertResult{
		Inserted:    n - len(bwe.WriteErrors),
		WriteErrors: make([]db.WriteError, 0, len(bwe.WriteErrors)),
	}
	for _, we := range bwe.WriteErrors {
		res.WriteErrors = append(res.WriteErrors, db.WriteError{
			Index:   we.Index,
			Code:    we.Code,
			Message: we.Message,
		})
	}
	if res.Inserted < 0 {
		res.Inserted = 0
	}
	return res, nil
}
