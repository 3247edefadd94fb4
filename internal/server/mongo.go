package server

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ilnaes/sharepad/internal/common"
)

const MongoCollection = "documents"

type mongoDocument struct {
	Name string `bson:"_id"`
	Text string `bson:"text"`
}

// MongoStorage keeps one {_id: name, text} record per document.
type MongoStorage struct {
	client *mongo.Client
	docs   *mongo.Collection
}

func NewMongoStorage(ctx context.Context, uri, database string) (*MongoStorage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrIO, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %s", common.ErrIO, err)
	}

	return &MongoStorage{
		client: client,
		docs:   client.Database(database).Collection(MongoCollection),
	}, nil
}

func (m *MongoStorage) Path(name string) string {
	return fmt.Sprintf("%s/%s", m.docs.Name(), name)
}

func (m *MongoStorage) List(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.docs.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrIO, err)
	}

	var res []mongoDocument
	if err := cur.All(ctx, &res); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrIO, err)
	}

	names := make([]string, len(res))
	for i, d := range res {
		names[i] = d.Name
	}
	return names, nil
}

func (m *MongoStorage) Read(ctx context.Context, name string) (string, error) {
	var d mongoDocument
	err := m.docs.FindOne(ctx, bson.D{{Key: "_id", Value: name}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("%w: %s", common.ErrNotFound, name)
	} else if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrIO, err)
	}
	return d.Text, nil
}

func (m *MongoStorage) Write(ctx context.Context, name, text string) error {
	filter := bson.D{{Key: "_id", Value: name}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "text", Value: text}}}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.docs.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("%w: %s", common.ErrIO, err)
	}
	return nil
}

func (m *MongoStorage) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
