package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rotaract/reportdesk/core"
)

// Collection names
const (
	UsersCollection          = "users"
	MeetingReportsCollection = "meetingreports"
	ProjectReportsCollection = "projectreports"
	MouRecordsCollection     = "mous"
	MeetingDraftsCollection  = "meetingdrafts"
	ProjectDraftsCollection  = "projectdrafts"
	CountersCollection       = "counters"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens a client pool and checks the server answers.
func Connect(conf core.MongoConfig, logger core.Logger) (*DB, error) {
	if conf.URI == "" {
		return nil, errors.New("mongodb connection uri is empty")
	}

	clientOptions := options.Client().ApplyURI(conf.URI).
		SetMaxPoolSize(conf.MaxPoolSize).
		SetMinPoolSize(conf.MinPoolSize).
		SetConnectTimeout(conf.ConnectTimeout).
		SetSocketTimeout(conf.SocketTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	if logger != nil {
		logger.Info("connected to mongodb", map[string]interface{}{"database": conf.Database})
	}
	return &DB{Client: client, Database: client.Database(conf.Database)}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}

type index struct {
	collection string
	name       string
	keys       bson.D
	unique     bool
}

var indexes = []index{
	{UsersCollection, "user_username", bson.D{{Key: "username", Value: 1}}, true},
	{UsersCollection, "user_email", bson.D{{Key: "email", Value: 1}}, true},
	{MeetingReportsCollection, "meeting_owner_created", bson.D{{Key: "submittedBy", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	{MeetingReportsCollection, "meeting_id", bson.D{{Key: "meetingId", Value: -1}}, false},
	{ProjectReportsCollection, "project_owner_created", bson.D{{Key: "submittedBy", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	{ProjectReportsCollection, "project_id", bson.D{{Key: "projectId", Value: -1}}, false},
	{MouRecordsCollection, "mou_owner_created", bson.D{{Key: "submittedBy", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	{MouRecordsCollection, "mou_id", bson.D{{Key: "mouId", Value: -1}}, false},
	{MeetingDraftsCollection, "meeting_draft_owner_created", bson.D{{Key: "submittedBy", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	{MeetingDraftsCollection, "meeting_draft_id", bson.D{{Key: "draftId", Value: -1}}, false},
	{ProjectDraftsCollection, "project_draft_owner_created", bson.D{{Key: "submittedBy", Value: 1}, {Key: "createdAt", Value: -1}}, false},
	{ProjectDraftsCollection, "project_draft_id", bson.D{{Key: "draftId", Value: -1}}, false},
}

// EnsureIndexes creates the lookup indexes. Identifiers are not unique: the scan strategy may produce duplicates.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	for _, idx := range indexes {
		opts := options.Index().SetName(idx.name)
		if idx.unique {
			opts.SetUnique(true)
		}
		_, err := db.Database.Collection(idx.collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.keys, Options: opts})
		if err != nil && !isIndexExistsError(err) {
			return errors.Wrapf(err, "creating index %s", idx.name)
		}
	}
	return nil
}

func isIndexExistsError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "IndexOptionsConflict")
}
