package mongodb

import (
	"context"
	"regexp"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/report"
)

// collection holds the queries shared by report and draft repositories.
type collection[T report.Record] struct {
	coll *mongo.Collection
	kind report.Kind
}

func (c collection[T]) notFound() error {
	return core.NewNotFoundError(c.kind.Resource)
}

func (c collection[T]) LastIdentifier(ctx context.Context, scope string) (string, error) {
	filter := bson.M{c.kind.IDField: bson.M{"$regex": "^" + regexp.QuoteMeta(scope)}}
	opts := options.FindOne().
		SetSort(bson.D{{Key: c.kind.IDField, Value: -1}}).
		SetProjection(bson.M{c.kind.IDField: 1})

	var doc bson.M
	if err := c.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", errors.Wrapf(err, "finding last %s identifier", c.kind.Resource)
	}
	id, _ := doc[c.kind.IDField].(string)
	return id, nil
}

func (c collection[T]) insert(ctx context.Context, rec T) (T, error) {
	if _, err := c.coll.InsertOne(ctx, rec); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "inserting %s", c.kind.Resource)
	}
	return rec, nil
}

func (c collection[T]) findOne(ctx context.Context, filter bson.M) (T, error) {
	var rec T
	if err := c.coll.FindOne(ctx, filter).Decode(&rec); err != nil {
		if err == mongo.ErrNoDocuments {
			return rec, c.notFound()
		}
		return rec, errors.Wrapf(err, "finding %s", c.kind.Resource)
	}
	return rec, nil
}

func (c collection[T]) deleteOne(ctx context.Context, filter bson.M) error {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return errors.Wrapf(err, "deleting %s", c.kind.Resource)
	}
	if res.DeletedCount == 0 {
		return c.notFound()
	}
	return nil
}

func (c collection[T]) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %ss", c.kind.Resource)
	}
	items := make([]T, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, errors.Wrapf(err, "decoding %ss", c.kind.Resource)
	}
	return items, nil
}

// searchFilter matches search case-insensitively inside the label, and the identifier when the Kind allows it.
func searchFilter(kind report.Kind, search string) bson.M {
	pattern := bson.M{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	if !kind.SearchID {
		return bson.M{kind.LabelField: pattern}
	}
	return bson.M{"$or": bson.A{
		bson.M{kind.LabelField: pattern},
		bson.M{kind.IDField: pattern},
	}}
}

type ReportRepository[T report.Record] struct {
	collection[T]
}

var (
	_ report.Repository[report.MeetingReport] = (*ReportRepository[report.MeetingReport])(nil)
	_ report.Repository[report.ProjectReport] = (*ReportRepository[report.ProjectReport])(nil)
	_ report.Repository[report.MouRecord]     = (*ReportRepository[report.MouRecord])(nil)
)

func NewReportRepository[T report.Record](db *DB, name string, kind report.Kind) *ReportRepository[T] {
	return &ReportRepository[T]{collection: collection[T]{coll: db.Database.Collection(name), kind: kind}}
}

func (repo *ReportRepository[T]) Create(ctx context.Context, rec T) (T, error) {
	return repo.insert(ctx, rec)
}

func (repo *ReportRepository[T]) Query(ctx context.Context, filter report.Filter) ([]T, int64, error) {
	query := bson.M{}
	if filter.SubmittedBy != "" {
		query["submittedBy"] = filter.SubmittedBy
	}
	if filter.Search != "" {
		for k, v := range searchFilter(repo.kind, filter.Search) {
			query[k] = v
		}
	}

	total, err := repo.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "counting %ss", repo.kind.Resource)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(filter.Page.Skip()).
		SetLimit(filter.Page.Limit)
	items, err := repo.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (repo *ReportRepository[T]) Get(ctx context.Context, identifier string) (T, error) {
	return repo.findOne(ctx, bson.M{repo.kind.IDField: identifier})
}

func (repo *ReportRepository[T]) Delete(ctx context.Context, identifier string) error {
	return repo.deleteOne(ctx, bson.M{repo.kind.IDField: identifier})
}
