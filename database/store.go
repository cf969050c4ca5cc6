package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrSchemaViolation is returned when a write fails the collection's
	// schema validator.
	ErrSchemaViolation = errors.New("document failed validation")
)

// Filter selects documents. Supported operators are plain equality, nil
// (matches null or a missing field) and {"$in": slice}.
type Filter = bson.M

// Update describes a partial write: fields to set and fields to remove.
type Update struct {
	Set   bson.M
	Unset []string
}

// Join is a left outer join of a single foreign document, stored on each
// result under As. When nothing matches, As is absent.
type Join struct {
	From         string
	LocalField   string
	ForeignField string
	As           string
}

// IndexSpec declares an index on a single field.
type IndexSpec struct {
	Field  string
	Unique bool
	// Sparse excludes documents missing Field from the unique constraint.
	Sparse bool
}

type Collection interface {
	Find(ctx context.Context, filter Filter) ([]bson.Raw, error)
	FindOne(ctx context.Context, filter Filter) (bson.Raw, error)
	FindJoined(ctx context.Context, filter Filter, join Join) ([]bson.Raw, error)
	InsertOne(ctx context.Context, doc interface{}) (primitive.ObjectID, error)
	InsertMany(ctx context.Context, docs []interface{}) error
	// UpdateOne applies update to the first match and reports the number of
	// matched documents, which is 0 or 1.
	UpdateOne(ctx context.Context, filter Filter, update Update) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
}

type Store interface {
	Collection(name string) Collection
	// CreateCollection creates name with a $jsonSchema validator. A nil
	// schema creates an unvalidated collection.
	CreateCollection(ctx context.Context, name string, schema bson.M) error
	EnsureIndex(ctx context.Context, collection string, spec IndexSpec) error
	Drop(ctx context.Context) error
	Close(ctx context.Context) error
}
