package database

import "go.mongodb.org/mongo-driver/bson"

// Collection names.
const (
	UsersCollection     = "users"
	ProductsCollection  = "products"
	SuppliersCollection = "suppliers"
	OrdersCollection    = "orders"
)

var addressSchema = bson.M{
	"bsonType": "object",
	"properties": bson.M{
		"firstName":  bson.M{"bsonType": "string"},
		"lastName":   bson.M{"bsonType": "string"},
		"line1":      bson.M{"bsonType": "string"},
		"line2":      bson.M{"bsonType": "string"},
		"city":       bson.M{"bsonType": "string"},
		"province":   bson.M{"bsonType": "string"},
		"country":    bson.M{"bsonType": "string"},
		"postalCode": bson.M{"bsonType": "string"},
	},
}

// Schemas holds the $jsonSchema validators. Orders are intentionally absent:
// that collection is created on first insert without a validator.
var Schemas = map[string]bson.M{
	UsersCollection: {
		"bsonType": "object",
		"required": []string{"email", "password", "role"},
		"properties": bson.M{
			"email":      bson.M{"bsonType": "string"},
			"password":   bson.M{"bsonType": "string"},
			"role":       bson.M{"enum": bson.A{"customer", "supplier", "administrator"}},
			"supplierId": bson.M{"bsonType": bson.A{"objectId", "null"}},
		},
	},
	ProductsCollection: {
		"bsonType": "object",
		"required": []string{"name", "price", "category", "supplierId"},
		"properties": bson.M{
			"name":        bson.M{"bsonType": "string"},
			"description": bson.M{"bsonType": "string"},
			"stock":       bson.M{"bsonType": bson.A{"int", "long", "double"}, "minimum": 0},
			"price":       bson.M{"bsonType": bson.A{"int", "long", "double", "decimal"}, "minimum": 0},
			"category":    bson.M{"bsonType": "string"},
			"supplierId":  bson.M{"bsonType": "objectId"},
		},
	},
	SuppliersCollection: {
		"bsonType": "object",
		"required": []string{"name"},
		"properties": bson.M{
			"name":    bson.M{"bsonType": "string"},
			"address": addressSchema,
			"phone":   bson.M{"bsonType": "string"},
			"website": bson.M{"bsonType": "string"},
		},
	},
}

// Indexes backs the uniqueness rules at the storage layer. The sparse
// cartOwner index allows at most one open cart per user.
var Indexes = map[string][]IndexSpec{
	UsersCollection:     {{Field: "email", Unique: true}},
	SuppliersCollection: {{Field: "name", Unique: true}},
	OrdersCollection:    {{Field: "cartOwner", Unique: true, Sparse: true}},
}
