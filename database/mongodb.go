package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is the Store backed by a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func ConnectMongo(ctx context.Context, uri, dbName string, maxPoolSize int, timeout time.Duration) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri)
	if maxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(maxPoolSize))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Ping the database
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.WithField("database", dbName).Info("Connected to MongoDB")
	return &MongoStore{client: client, db: client.Database(dbName)}, nil
}

func (s *MongoStore) Collection(name string) Collection {
	return &mongoCollection{coll: s.db.Collection(name)}
}

func (s *MongoStore) CreateCollection(ctx context.Context, name string, schema bson.M) error {
	opts := options.CreateCollection()
	if schema != nil {
		opts.SetValidator(bson.M{"$jsonSchema": schema})
	}
	return s.db.CreateCollection(ctx, name, opts)
}

func (s *MongoStore) EnsureIndex(ctx context.Context, collection string, spec IndexSpec) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: spec.Field, Value: 1}},
		Options: options.Index().SetUnique(spec.Unique).SetSparse(spec.Sparse),
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model)
	return err
}

func (s *MongoStore) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter) ([]bson.Raw, error) {
	cursor, err := c.coll.Find(ctx, normalizeFilter(filter))
	if err != nil {
		return nil, err
	}
	return drain(ctx, cursor)
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter) (bson.Raw, error) {
	raw, err := c.coll.FindOne(ctx, normalizeFilter(filter)).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (c *mongoCollection) FindJoined(ctx context.Context, filter Filter, join Join) ([]bson.Raw, error) {
	joined := join.As + "Arr"
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: normalizeFilter(filter)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         join.From,
			"localField":   join.LocalField,
			"foreignField": join.ForeignField,
			"as":           joined,
		}}},
		{{Key: "$addFields", Value: bson.M{
			join.As: bson.M{"$arrayElemAt": bson.A{"$" + joined, 0}},
		}}},
		{{Key: "$project", Value: bson.M{joined: 0}}},
	}

	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return drain(ctx, cursor)
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error) {
	result, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, classify(err)
	}
	id, _ := result.InsertedID.(primitive.ObjectID)
	return id, nil
}

func (c *mongoCollection) InsertMany(ctx context.Context, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := c.coll.InsertMany(ctx, docs)
	return classify(err)
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter Filter, update Update) (int64, error) {
	doc := bson.M{}
	if len(update.Set) > 0 {
		doc["$set"] = update.Set
	}
	if len(update.Unset) > 0 {
		unset := bson.M{}
		for _, field := range update.Unset {
			unset[field] = ""
		}
		doc["$unset"] = unset
	}
	if len(doc) == 0 {
		return c.coll.CountDocuments(ctx, normalizeFilter(filter), options.Count().SetLimit(1))
	}

	result, err := c.coll.UpdateOne(ctx, normalizeFilter(filter), doc)
	if err != nil {
		return 0, classify(err)
	}
	return result.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	result, err := c.coll.DeleteOne(ctx, normalizeFilter(filter))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func drain(ctx context.Context, cursor *mongo.Cursor) ([]bson.Raw, error) {
	defer cursor.Close(ctx)

	docs := []bson.Raw{}
	for cursor.Next(ctx) {
		docs = append(docs, append(bson.Raw(nil), cursor.Current...))
	}
	return docs, cursor.Err()
}

// documentValidationFailure is the server error code for $jsonSchema rejects.
const documentValidationFailure = 121

func classify(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == documentValidationFailure {
				return fmt.Errorf("%w: %s", ErrSchemaViolation, e.Message)
			}
		}
	}
	return err
}

// Mongo rejects a nil filter document.
func normalizeFilter(filter Filter) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return filter
}
