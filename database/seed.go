package database

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/utils"
)

// Setup drops the database, recreates the schema-validated collections and
// inserts the seed data. Only non-production environments call it.
func Setup(ctx context.Context, store Store) error {
	if err := store.Drop(ctx); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	for _, name := range []string{UsersCollection, ProductsCollection, SuppliersCollection} {
		if err := store.CreateCollection(ctx, name, Schemas[name]); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	if err := EnsureIndexes(ctx, store); err != nil {
		return err
	}
	return Seed(ctx, store)
}

func EnsureIndexes(ctx context.Context, store Store) error {
	for collection, specs := range Indexes {
		for _, spec := range specs {
			if err := store.EnsureIndex(ctx, collection, spec); err != nil {
				return fmt.Errorf("index %s.%s: %w", collection, spec.Field, err)
			}
		}
	}
	return nil
}

var (
	seedSupplierAcme  = mustObjectID("5e1a0651741b255ddda996c4")
	seedSupplierNorth = mustObjectID("5e1a0651741b255ddda996c5")
)

func Seed(ctx context.Context, store Store) error {
	suppliers := []interface{}{
		bson.M{
			"_id":  seedSupplierAcme,
			"name": "Acme Supplies",
			"address": bson.M{
				"firstName": "Wile", "lastName": "Coyote",
				"line1": "1 Canyon Road", "line2": "",
				"city": "Vancouver", "province": "BC", "country": "Canada", "postalCode": "V5K 0A1",
			},
			"phone":   "604-555-0100",
			"website": "https://acme.example.com",
		},
		bson.M{
			"_id":  seedSupplierNorth,
			"name": "Northern Goods",
			"address": bson.M{
				"firstName": "Nora", "lastName": "North",
				"line1": "200 Main Street", "line2": "Unit 4",
				"city": "Calgary", "province": "AB", "country": "Canada", "postalCode": "T2P 1J9",
			},
			"phone":   "403-555-0199",
			"website": "https://northern.example.com",
		},
	}

	products := []interface{}{
		bson.M{"name": "Rocket Skates", "description": "Fast. Very fast.", "stock": 12, "price": 49.99, "category": "sports", "supplierId": seedSupplierAcme},
		bson.M{"name": "Giant Magnet", "description": "Attracts anything metal.", "stock": 4, "price": 19.995, "category": "tools", "supplierId": seedSupplierAcme},
		bson.M{"name": "Wool Toque", "description": "Warm hat for cold days.", "stock": 40, "price": 15.5, "category": "clothing", "supplierId": seedSupplierNorth},
		bson.M{"name": "Maple Syrup", "description": "Grade A amber.", "stock": 100, "price": 9.25, "category": "food", "supplierId": seedSupplierNorth},
	}

	users := []interface{}{}
	for _, u := range []struct {
		email, password, role string
		supplierID            *primitive.ObjectID
	}{
		{"admin@db44.com", "password", "administrator", nil},
		{"customer@db44.com", "password", "customer", nil},
		{"supplier@db44.com", "password", "supplier", &seedSupplierAcme},
	} {
		hash, err := utils.HashPassword(u.password)
		if err != nil {
			return err
		}
		users = append(users, bson.M{"email": u.email, "password": hash, "role": u.role, "supplierId": u.supplierID})
	}

	for name, docs := range map[string][]interface{}{
		SuppliersCollection: suppliers,
		ProductsCollection:  products,
		UsersCollection:     users,
	} {
		if err := store.Collection(name).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		log.WithField("collection", name).WithField("count", len(docs)).Info("Seeded collection")
	}
	return nil
}

func mustObjectID(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}
