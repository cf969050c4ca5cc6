package database

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store used by the testing environment. It
// keeps BSON documents in insertion order and evaluates the Filter subset
// the application uses.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryData
}

type memoryData struct {
	docs    []bson.Raw
	indexes []IndexSpec
	schema  bson.M
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryData)}
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

func (s *MemoryStore) CreateCollection(_ context.Context, name string, schema bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("collection %s already exists", name)
	}
	s.collections[name] = &memoryData{schema: schema}
	return nil
}

func (s *MemoryStore) EnsureIndex(_ context.Context, collection string, spec IndexSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.data(collection)
	for _, existing := range data.indexes {
		if existing.Field == spec.Field {
			return nil
		}
	}
	data.indexes = append(data.indexes, spec)
	return nil
}

func (s *MemoryStore) Drop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections = make(map[string]*memoryData)
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }

// data must be called with mu held for writing.
func (s *MemoryStore) data(name string) *memoryData {
	data, ok := s.collections[name]
	if !ok {
		data = &memoryData{}
		s.collections[name] = data
	}
	return data
}

func (s *MemoryStore) snapshot(name string) []bson.Raw {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[name]
	if !ok {
		return nil
	}
	docs := make([]bson.Raw, len(data.docs))
	copy(docs, data.docs)
	return docs
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter) ([]bson.Raw, error) {
	docs := []bson.Raw{}
	for _, doc := range c.store.snapshot(c.name) {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, clone(doc))
		}
	}
	return docs, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter) (bson.Raw, error) {
	docs, err := c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *memoryCollection) FindJoined(ctx context.Context, filter Filter, join Join) ([]bson.Raw, error) {
	docs, err := c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	foreign := c.store.snapshot(join.From)

	joined := make([]bson.Raw, 0, len(docs))
	for _, doc := range docs {
		var d bson.D
		if err := bson.Unmarshal(doc, &d); err != nil {
			return nil, err
		}
		if local, err := doc.LookupErr(splitPath(join.LocalField)...); err == nil {
			for _, f := range foreign {
				fv, err := f.LookupErr(splitPath(join.ForeignField)...)
				if err == nil && rawEqual(local, fv) {
					d = append(d, bson.E{Key: join.As, Value: clone(f)})
					break
				}
			}
		}
		out, err := bson.Marshal(d)
		if err != nil {
			return nil, err
		}
		joined = append(joined, out)
	}
	return joined, nil
}

func (c *memoryCollection) InsertOne(_ context.Context, doc interface{}) (primitive.ObjectID, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	return c.insertLocked(doc)
}

func (c *memoryCollection) InsertMany(_ context.Context, docs []interface{}) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, doc := range docs {
		if _, err := c.insertLocked(doc); err != nil {
			return err
		}
	}
	return nil
}

func (c *memoryCollection) insertLocked(doc interface{}) (primitive.ObjectID, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	var d bson.D
	if err := bson.Unmarshal(b, &d); err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := documentID(d)
	if !ok {
		id = primitive.NewObjectID()
		d = append(bson.D{{Key: "_id", Value: id}}, withoutKey(d, "_id")...)
	}

	raw, err := bson.Marshal(d)
	if err != nil {
		return primitive.NilObjectID, err
	}

	data := c.store.data(c.name)
	if err := data.checkSchema(raw); err != nil {
		return primitive.NilObjectID, err
	}
	if err := data.checkUnique(raw, -1); err != nil {
		return primitive.NilObjectID, err
	}
	data.docs = append(data.docs, raw)
	return id, nil
}

func (c *memoryCollection) UpdateOne(_ context.Context, filter Filter, update Update) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	data := c.store.data(c.name)
	for i, doc := range data.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}

		var d bson.D
		if err := bson.Unmarshal(doc, &d); err != nil {
			return 0, err
		}
		d = applyUpdate(d, update)
		raw, err := bson.Marshal(d)
		if err != nil {
			return 0, err
		}
		if err := data.checkSchema(raw); err != nil {
			return 0, err
		}
		if err := data.checkUnique(raw, i); err != nil {
			return 0, err
		}
		data.docs[i] = raw
		return 1, nil
	}
	return 0, nil
}

func (c *memoryCollection) DeleteOne(_ context.Context, filter Filter) (int64, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	data := c.store.data(c.name)
	for i, doc := range data.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			data.docs = append(data.docs[:i], data.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// checkSchema enforces the top-level "required" list of the collection's
// $jsonSchema validator.
func (d *memoryData) checkSchema(raw bson.Raw) error {
	if d.schema == nil {
		return nil
	}
	required, _ := d.schema["required"].([]string)
	for _, field := range required {
		if _, err := raw.LookupErr(field); err != nil {
			return fmt.Errorf("%w: missing %s", ErrSchemaViolation, field)
		}
	}
	return nil
}

// checkUnique validates raw against the unique indexes, ignoring the
// document at position self.
func (d *memoryData) checkUnique(raw bson.Raw, self int) error {
	for _, idx := range append([]IndexSpec{{Field: "_id", Unique: true}}, d.indexes...) {
		if !idx.Unique {
			continue
		}
		value, err := raw.LookupErr(splitPath(idx.Field)...)
		if err != nil {
			if idx.Sparse {
				continue
			}
			value = bson.RawValue{Type: bsontype.Null}
		}
		for i, other := range d.docs {
			if i == self {
				continue
			}
			ov, err := other.LookupErr(splitPath(idx.Field)...)
			if err != nil {
				if idx.Sparse {
					continue
				}
				ov = bson.RawValue{Type: bsontype.Null}
			}
			if rawEqual(value, ov) {
				return ErrDuplicateKey
			}
		}
	}
	return nil
}

func applyUpdate(d bson.D, update Update) bson.D {
	for key, value := range update.Set {
		replaced := false
		for i := range d {
			if d[i].Key == key {
				d[i].Value = value
				replaced = true
				break
			}
		}
		if !replaced {
			d = append(d, bson.E{Key: key, Value: value})
		}
	}
	for _, key := range update.Unset {
		d = withoutKey(d, key)
	}
	return d
}

func matches(doc bson.Raw, filter Filter) (bool, error) {
	for key, want := range filter {
		got, err := doc.LookupErr(splitPath(key)...)
		missing := err != nil

		if cond, ok := want.(bson.M); ok {
			in, ok := cond["$in"]
			if !ok || len(cond) != 1 {
				return false, fmt.Errorf("unsupported filter operator on %s", key)
			}
			if missing {
				return false, nil
			}
			found, err := containsValue(in, got)
			if err != nil {
				return false, err
			}
			if !found {
				return false, nil
			}
			continue
		}

		if isNil(want) {
			if !missing && got.Type != bsontype.Null {
				return false, nil
			}
			continue
		}
		if missing {
			return false, nil
		}
		equal, err := valueEqual(want, got)
		if err != nil {
			return false, err
		}
		if !equal {
			return false, nil
		}
	}
	return true, nil
}

func containsValue(set interface{}, got bson.RawValue) (bool, error) {
	v := reflect.ValueOf(set)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false, fmt.Errorf("$in needs an array, got %T", set)
	}
	for i := 0; i < v.Len(); i++ {
		equal, err := valueEqual(v.Index(i).Interface(), got)
		if err != nil {
			return false, err
		}
		if equal {
			return true, nil
		}
	}
	return false, nil
}

func valueEqual(want interface{}, got bson.RawValue) (bool, error) {
	t, data, err := bson.MarshalValue(want)
	if err != nil {
		return false, err
	}
	return rawEqual(bson.RawValue{Type: t, Value: data}, got), nil
}

func rawEqual(a, b bson.RawValue) bool {
	if af, ok := number(a); ok {
		bf, ok := number(b)
		return ok && af == bf
	}
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

func number(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Double:
		return v.Double(), true
	}
	return 0, false
}

func documentID(d bson.D) (primitive.ObjectID, bool) {
	for _, e := range d {
		if e.Key == "_id" {
			id, ok := e.Value.(primitive.ObjectID)
			return id, ok && !id.IsZero()
		}
	}
	return primitive.NilObjectID, false
}

func withoutKey(d bson.D, key string) bson.D {
	out := make(bson.D, 0, len(d))
	for _, e := range d {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func splitPath(key string) []string {
	return strings.Split(key, ".")
}

func clone(raw bson.Raw) bson.Raw {
	return append(bson.Raw(nil), raw...)
}
