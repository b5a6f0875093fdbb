package history

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoCollection   = "history"
	mongoCloseTimeout = 5 * time.Second
)

// MongoStore keeps one document per session holding its capped entry list.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	limit      int
}

type sessionDoc struct {
	ID      string  `bson:"_id"`
	Entries []Entry `bson:"entries"`
}

func NewMongoStore(ctx context.Context, uri, database string, limit int) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(mongoCollection),
		limit:      limit,
	}, nil
}

// Append pushes and trims in a single update, so it is atomic per session.
func (ms *MongoStore) Append(ctx context.Context, sessionID string, e Entry) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	_, err := ms.collection.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		appendUpdate(normalize(e), ms.limit),
		options.Update().SetUpsert(true),
	)
	return err
}

func appendUpdate(e Entry, limit int) bson.M {
	return bson.M{
		"$push": bson.M{
			"entries": bson.M{
				"$each":  bson.A{e},
				"$slice": -limit,
			},
		},
	}
}

func (ms *MongoStore) List(ctx context.Context, sessionID string) ([]Entry, error) {
	var doc sessionDoc
	err := ms.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		out = append(out, normalize(e))
	}
	return out, nil
}

func (ms *MongoStore) Clear(ctx context.Context, sessionID string) error {
	_, err := ms.collection.DeleteOne(ctx, bson.M{"_id": sessionID})
	return err
}

func (ms *MongoStore) Close() error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
