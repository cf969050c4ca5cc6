package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryStoreFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	coll := store.Collection("products")

	require.NoError(t, coll.InsertMany(ctx, []interface{}{
		bson.M{"name": "a", "category": "tools", "stock": int32(3)},
		bson.M{"name": "b", "category": "food", "stock": int64(3)},
		bson.M{"name": "c", "category": "toys", "note": nil},
	}))

	t.Run("equality", func(t *testing.T) {
		docs, err := coll.Find(ctx, Filter{"category": "food"})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "b", docs[0].Lookup("name").StringValue())
	})

	t.Run("numbers compare across types", func(t *testing.T) {
		docs, err := coll.Find(ctx, Filter{"stock": 3})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("in", func(t *testing.T) {
		docs, err := coll.Find(ctx, Filter{"category": bson.M{"$in": []string{"tools", "toys"}}})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("nil matches null and missing", func(t *testing.T) {
		docs, err := coll.Find(ctx, Filter{"note": nil})
		require.NoError(t, err)
		assert.Len(t, docs, 3)
	})

	t.Run("empty filter returns everything in insertion order", func(t *testing.T) {
		docs, err := coll.Find(ctx, nil)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "a", docs[0].Lookup("name").StringValue())
		assert.Equal(t, "c", docs[2].Lookup("name").StringValue())
	})

	t.Run("unsupported operator", func(t *testing.T) {
		_, err := coll.Find(ctx, Filter{"stock": bson.M{"$gt": 1}})
		assert.Error(t, err)
	})

	t.Run("find one miss", func(t *testing.T) {
		_, err := coll.FindOne(ctx, Filter{"name": "zzz"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreInsertAssignsID(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStore().Collection("things")

	id, err := coll.InsertOne(ctx, bson.M{"_id": primitive.NilObjectID, "name": "x"})
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	doc, err := coll.FindOne(ctx, Filter{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "x", doc.Lookup("name").StringValue())
}

func TestMemoryStoreUniqueIndexes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.EnsureIndex(ctx, "users", IndexSpec{Field: "email", Unique: true}))
	require.NoError(t, store.EnsureIndex(ctx, "orders", IndexSpec{Field: "cartOwner", Unique: true, Sparse: true}))

	users := store.Collection("users")
	_, err := users.InsertOne(ctx, bson.M{"email": "a@b.c"})
	require.NoError(t, err)
	_, err = users.InsertOne(ctx, bson.M{"email": "a@b.c"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	orders := store.Collection("orders")
	owner := primitive.NewObjectID()
	first, err := orders.InsertOne(ctx, bson.M{"cartOwner": owner})
	require.NoError(t, err)
	_, err = orders.InsertOne(ctx, bson.M{"cartOwner": owner})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// Documents without the field are exempt from a sparse index.
	_, err = orders.InsertOne(ctx, bson.M{"status": "confirmed"})
	require.NoError(t, err)
	_, err = orders.InsertOne(ctx, bson.M{"status": "confirmed"})
	require.NoError(t, err)

	matched, err := orders.UpdateOne(ctx, Filter{"_id": first}, Update{Unset: []string{"cartOwner"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)
	_, err = orders.InsertOne(ctx, bson.M{"cartOwner": owner})
	assert.NoError(t, err)
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStore().Collection("orders")

	id, err := coll.InsertOne(ctx, bson.M{"status": "cart", "version": 0})
	require.NoError(t, err)

	matched, err := coll.UpdateOne(ctx, Filter{"_id": id, "version": 1}, Update{Set: bson.M{"status": "confirmed"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), matched)

	matched, err = coll.UpdateOne(ctx, Filter{"_id": id, "version": 0}, Update{Set: bson.M{"status": "confirmed", "version": 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	doc, err := coll.FindOne(ctx, Filter{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", doc.Lookup("status").StringValue())

	deleted, err := coll.DeleteOne(ctx, Filter{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	deleted, err = coll.DeleteOne(ctx, Filter{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestMemoryStoreSchemaRequired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.CreateCollection(ctx, SuppliersCollection, Schemas[SuppliersCollection]))
	assert.Error(t, store.CreateCollection(ctx, SuppliersCollection, nil))

	_, err := store.Collection(SuppliersCollection).InsertOne(ctx, bson.M{"phone": "555"})
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestMemoryStoreFindJoined(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	supplierID, err := store.Collection("suppliers").InsertOne(ctx, bson.M{"name": "Acme"})
	require.NoError(t, err)
	products := store.Collection("products")
	_, err = products.InsertOne(ctx, bson.M{"name": "joined", "supplierId": supplierID})
	require.NoError(t, err)
	_, err = products.InsertOne(ctx, bson.M{"name": "orphan", "supplierId": primitive.NewObjectID()})
	require.NoError(t, err)

	docs, err := products.FindJoined(ctx, nil, Join{From: "suppliers", LocalField: "supplierId", ForeignField: "_id", As: "supplier"})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "Acme", docs[0].Lookup("supplier", "name").StringValue())
	_, err = docs[1].LookupErr("supplier")
	assert.Error(t, err)
}

func TestSetupSeedsData(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, Setup(ctx, store))

	users, err := store.Collection(UsersCollection).Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	supplier, err := store.Collection(UsersCollection).FindOne(ctx, Filter{"email": "supplier@db44.com"})
	require.NoError(t, err)
	assert.Equal(t, seedSupplierAcme, supplier.Lookup("supplierId").ObjectID())
	assert.NotEqual(t, "password", supplier.Lookup("password").StringValue())

	// Setup can run again on a populated store.
	require.NoError(t, Setup(ctx, store))
}
