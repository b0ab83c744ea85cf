package remote

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoSelectionTimeout = 5 * time.Second

// mongoStore keeps one collection per subject inside the configured
// database, matching the layout the mobile clients read.
type mongoStore struct {
	client   *mongo.Client
	database string
}

func openMongo(ctx context.Context, uri, database string) (Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(mongoSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, mongoSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDB connection failed: %w", err)
	}

	return &mongoStore{client: client, database: database}, nil
}

func (s *mongoStore) Insert(ctx context.Context, subject string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	coll := s.client.Database(s.database).Collection(subject)
	payload := make([]interface{}, len(docs))
	for i := range docs {
		payload[i] = docs[i]
	}

	if _, err := coll.InsertMany(ctx, payload); err != nil {
		return fmt.Errorf("failed to insert attendance batch: %w", err)
	}
	return nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}
