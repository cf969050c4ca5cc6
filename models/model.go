package models

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

// Model is the shared persistence layer for one collection: rule checks,
// a pre-write hook and decoding of stored documents into T.
type Model[T any] struct {
	store       database.Store
	collection  string
	validator   *Validator
	beforeWrite func(doc bson.M) error
	// mergeUpdate, when set, sees the stored document before an update is
	// validated and may copy fields into the patch so that rules spanning
	// several fields are checked against the resulting state.
	mergeUpdate func(current, patch bson.M)
}

func newModel[T any](store database.Store, collection string, rules Rules) *Model[T] {
	return &Model[T]{
		store:      store,
		collection: collection,
		validator:  NewValidator(store.Collection(collection), rules),
	}
}

func (m *Model[T]) Collection() database.Collection {
	return m.store.Collection(m.collection)
}

func (m *Model[T]) FindAll(ctx context.Context, filter database.Filter) ([]*T, error) {
	docs, err := m.Collection().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](docs)
}

// FindByID returns database.ErrNotFound when no document has the id.
func (m *Model[T]) FindByID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return m.FindOne(ctx, database.Filter{"_id": id})
}

func (m *Model[T]) FindOne(ctx context.Context, filter database.Filter) (*T, error) {
	raw, err := m.Collection().FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return decode[T](raw)
}

// Create validates entity, runs the write hook and stores it. The stored
// document is returned with its assigned id.
func (m *Model[T]) Create(ctx context.Context, entity *T) (*T, error) {
	doc, err := toDocument(entity)
	if err != nil {
		return nil, err
	}
	delete(doc, "_id")

	if err := m.validator.Validate(ctx, doc, nil); err != nil {
		return nil, err
	}
	if err := m.runHook(doc); err != nil {
		return nil, err
	}

	id, err := m.Collection().InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	raw, err := m.Collection().FindOne(ctx, database.Filter{"_id": id})
	if err != nil {
		return nil, err
	}
	return decode[T](raw)
}

// Update applies a partial write. Only fields present in patch are checked.
func (m *Model[T]) Update(ctx context.Context, id primitive.ObjectID, patch bson.M) error {
	_, err := m.update(ctx, id, nil, database.Update{Set: patch})
	return err
}

// update validates the Set part of u and applies it to the document
// matching id and guard. It reports whether a document matched.
func (m *Model[T]) update(ctx context.Context, id primitive.ObjectID, guard database.Filter, u database.Update) (bool, error) {
	patch, err := normalize(u.Set)
	if err != nil {
		return false, err
	}
	delete(patch, "_id")

	if m.mergeUpdate != nil {
		raw, err := m.Collection().FindOne(ctx, database.Filter{"_id": id})
		if err != nil {
			return false, err
		}
		var current bson.M
		if err := bson.Unmarshal(raw, &current); err != nil {
			return false, err
		}
		m.mergeUpdate(current, patch)
	}

	if err := m.validator.Validate(ctx, patch, &id); err != nil {
		return false, err
	}
	if err := m.runHook(patch); err != nil {
		return false, err
	}

	filter := database.Filter{"_id": id}
	for k, v := range guard {
		filter[k] = v
	}
	matched, err := m.Collection().UpdateOne(ctx, filter, database.Update{Set: patch, Unset: u.Unset})
	if err != nil {
		return false, err
	}
	if matched == 0 && guard == nil {
		return false, database.ErrNotFound
	}
	return matched > 0, nil
}

func (m *Model[T]) Delete(ctx context.Context, id primitive.ObjectID) error {
	deleted, err := m.Collection().DeleteOne(ctx, database.Filter{"_id": id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (m *Model[T]) runHook(doc bson.M) error {
	if m.beforeWrite == nil {
		return nil
	}
	return m.beforeWrite(doc)
}

// ParseID converts a hex string into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// IsNotFound reports whether err means the requested entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound) || errors.Is(err, ErrInvalidID)
}

func decode[T any](raw bson.Raw) (*T, error) {
	var v T
	if err := bson.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeAll[T any](docs []bson.Raw) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, raw := range docs {
		v, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func toDocument(v interface{}) (bson.M, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// normalize round-trips a patch through BSON so that hooks and rules see
// the stored representation of nested structs.
func normalize(patch bson.M) (bson.M, error) {
	if len(patch) == 0 {
		return bson.M{}, nil
	}
	return toDocument(patch)
}
