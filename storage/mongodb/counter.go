package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rotaract/reportdesk/core/sequence"
)

type CounterStore struct {
	coll *mongo.Collection
}

var _ sequence.CounterStore = (*CounterStore)(nil)

func NewCounterStore(db *DB) *CounterStore {
	return &CounterStore{coll: db.Database.Collection(CountersCollection)}
}

func (s *CounterStore) SeedCounter(ctx context.Context, key string, seq int) error {
	update := bson.M{"$setOnInsert": bson.M{"seq": seq, "updatedAt": time.Now().UTC()}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(err, "seeding counter %s", key)
	}
	return nil
}

// AdvanceCounter increments seq modulo limit in a single server-side update.
func (s *CounterStore) AdvanceCounter(ctx context.Context, key string, limit int) (int, error) {
	next := bson.D{{Key: "$add", Value: bson.A{"$seq", 1}}}
	if limit > 0 {
		next = bson.D{{Key: "$mod", Value: bson.A{next, limit}}}
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "seq", Value: next},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
	}

	var c sequence.Counter
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": key}, update, opts).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, sequence.ErrCounterNotFound
		}
		return 0, errors.Wrapf(err, "advancing counter %s", key)
	}
	return c.Seq, nil
}

func (s *CounterStore) ResetCounters(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{})
	return errors.Wrap(err, "resetting counters")
}
