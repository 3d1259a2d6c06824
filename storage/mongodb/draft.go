package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
)

type DraftRepository[T report.Record] struct {
	collection[T]
}

var (
	_ draft.Repository[draft.MeetingDraft] = (*DraftRepository[draft.MeetingDraft])(nil)
	_ draft.Repository[draft.ProjectDraft] = (*DraftRepository[draft.ProjectDraft])(nil)
)

func NewDraftRepository[T report.Record](db *DB, name string, kind report.Kind) *DraftRepository[T] {
	return &DraftRepository[T]{collection: collection[T]{coll: db.Database.Collection(name), kind: kind}}
}

func (repo *DraftRepository[T]) ownedBy(owner, draftID string) bson.M {
	return bson.M{repo.kind.IDField: draftID, "submittedBy": owner}
}

func (repo *DraftRepository[T]) Create(ctx context.Context, d T) (T, error) {
	return repo.insert(ctx, d)
}

func (repo *DraftRepository[T]) Update(ctx context.Context, d T) (T, error) {
	raw, err := bson.Marshal(d)
	if err != nil {
		return d, errors.Wrapf(err, "encoding %s", repo.kind.Resource)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return d, errors.Wrapf(err, "encoding %s", repo.kind.Resource)
	}
	delete(set, "_id")
	delete(set, "createdAt")

	var updated T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = repo.coll.FindOneAndUpdate(ctx, repo.ownedBy(d.Owner(), d.Identifier()), bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return updated, repo.notFound()
		}
		return updated, errors.Wrapf(err, "updating %s", repo.kind.Resource)
	}
	return updated, nil
}

func (repo *DraftRepository[T]) Get(ctx context.Context, draftID string) (T, error) {
	return repo.findOne(ctx, bson.M{repo.kind.IDField: draftID})
}

func (repo *DraftRepository[T]) ListByOwner(ctx context.Context, owner string) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return repo.find(ctx, bson.M{"submittedBy": owner}, opts)
}

func (repo *DraftRepository[T]) Delete(ctx context.Context, owner, draftID string) error {
	return repo.deleteOne(ctx, repo.ownedBy(owner, draftID))
}

func (repo *DraftRepository[T]) DeleteExpired(ctx context.Context, owner string, cutoff time.Time) (int64, error) {
	filter := bson.M{"createdAt": bson.M{"$lt": cutoff}}
	if owner != "" {
		filter["submittedBy"] = owner
	}
	res, err := repo.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting expired %ss", repo.kind.Resource)
	}
	return res.DeletedCount, nil
}
