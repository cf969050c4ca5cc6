//go:build integration

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setupMongo(t *testing.T) *MongoStore {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForLog("Waiting for connections").
			WithStartupTimeout(60 * time.Second),
	}
	mongo, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start mongo container: %v", err)
	}
	t.Cleanup(func() {
		if err := mongo.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := mongo.Host(ctx)
	require.NoError(t, err)
	port, err := mongo.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	store, err := ConnectMongo(ctx, uri, "db44_test", 10, 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	require.NoError(t, Setup(ctx, store))
	return store
}

func TestMongoStore(t *testing.T) {
	ctx := context.Background()
	store := setupMongo(t)

	t.Run("seed and filters", func(t *testing.T) {
		products, err := store.Collection(ProductsCollection).Find(ctx, Filter{
			"category": bson.M{"$in": []string{"tools", "food"}},
		})
		require.NoError(t, err)
		assert.Len(t, products, 2)

		admin, err := store.Collection(UsersCollection).FindOne(ctx, Filter{"email": "admin@db44.com"})
		require.NoError(t, err)
		assert.Equal(t, "administrator", admin.Lookup("role").StringValue())

		_, err = store.Collection(UsersCollection).FindOne(ctx, Filter{"email": "nobody@db44.com"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("join", func(t *testing.T) {
		docs, err := store.Collection(ProductsCollection).FindJoined(ctx, Filter{"name": "Wool Toque"}, Join{
			From: SuppliersCollection, LocalField: "supplierId", ForeignField: "_id", As: "supplier",
		})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Northern Goods", docs[0].Lookup("supplier", "name").StringValue())
		_, err = docs[0].LookupErr("supplierArr")
		assert.Error(t, err)
	})

	t.Run("unique index", func(t *testing.T) {
		_, err := store.Collection(SuppliersCollection).InsertOne(ctx, bson.M{"name": "Acme Supplies"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("schema validator", func(t *testing.T) {
		_, err := store.Collection(UsersCollection).InsertOne(ctx, bson.M{"email": "x@db44.com", "role": "customer"})
		assert.ErrorIs(t, err, ErrSchemaViolation)
	})

	t.Run("sparse cart owner", func(t *testing.T) {
		orders := store.Collection(OrdersCollection)
		owner := primitive.NewObjectID()
		first, err := orders.InsertOne(ctx, bson.M{"userId": owner, "status": "cart", "cartOwner": owner})
		require.NoError(t, err)
		_, err = orders.InsertOne(ctx, bson.M{"userId": owner, "status": "cart", "cartOwner": owner})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		matched, err := orders.UpdateOne(ctx, Filter{"_id": first}, Update{
			Set: bson.M{"status": "confirmed"}, Unset: []string{"cartOwner"},
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, matched)
		_, err = orders.InsertOne(ctx, bson.M{"userId": owner, "status": "confirmed"})
		require.NoError(t, err)
		_, err = orders.InsertOne(ctx, bson.M{"userId": owner, "status": "cart", "cartOwner": owner})
		require.NoError(t, err)

		deleted, err := orders.DeleteOne(ctx, Filter{"_id": first})
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)
	})
}
