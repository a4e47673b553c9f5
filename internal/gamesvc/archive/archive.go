// Package archive journals finished games in MongoDB. Entries expire after
// the retention period through a TTL index.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/gatortots-services/internal/db"
	"github.com/avvvet/gatortots-services/internal/gamesvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	Collection       = "game_results"
	DefaultRetention = 90 * 24 * time.Hour
)

type entry struct {
	models.GameResult `bson:",inline"`
	ExpiresAt         time.Time `bson:"expires_at"`
}

type Journal struct {
	coll      *mongo.Collection
	retention time.Duration
}

// New prepares the collection and its TTL index.
func New(ctx context.Context, database *mongo.Database, retention time.Duration) (*Journal, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if err := db.CreateTTLIndexForCollection(ctx, database, Collection, "expires_at"); err != nil {
		return nil, err
	}
	return &Journal{coll: database.Collection(Collection), retention: retention}, nil
}

func (j *Journal) Archive(ctx context.Context, result models.GameResult) error {
	doc := entry{GameResult: result, ExpiresAt: expiry(result, j.retention)}
	if _, err := j.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("archive room %d: %w", result.RoomID, err)
	}
	return nil
}

// Recent returns the newest results first.
func (j *Journal) Recent(ctx context.Context, limit int64) ([]models.GameResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "finished_at", Value: -1}}).SetLimit(limit)
	cur, err := j.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find results: %w", err)
	}
	defer cur.Close(ctx)

	var entries []entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	results := make([]models.GameResult, len(entries))
	for i, e := range entries {
		results[i] = e.GameResult
	}
	return results, nil
}

func expiry(result models.GameResult, retention time.Duration) time.Time {
	finished := result.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	return finished.Add(retention)
}
