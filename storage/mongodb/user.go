package mongodb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rotaract/reportdesk/core/user"
)

type UserRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*UserRepository)(nil)

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{coll: db.Database.Collection(UsersCollection)}
}

func (repo *UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	filter := bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}}
	if len(excludedUsers) > 0 {
		ids := make(bson.A, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		filter["_id"] = bson.M{"$nin": ids}
	}

	var usr user.User
	if err := repo.coll.FindOne(ctx, filter).Decode(&usr); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return errors.Wrap(err, "checking username uniqueness")
	}
	if usr.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo *UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, usr); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *UserRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var query bson.M
	switch {
	case filter.ID != "":
		query = bson.M{"_id": filter.ID}
	case filter.UsernameOrEmail != "":
		query = bson.M{"$or": bson.A{
			bson.M{"username": filter.UsernameOrEmail},
			bson.M{"email": filter.UsernameOrEmail},
		}}
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := repo.coll.FindOne(ctx, query).Decode(&usr); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return usr, nil
}

func (repo *UserRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": usr.ID}, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
