package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

type Supplier struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Address Address            `bson:"address" json:"address"`
	Phone   string             `bson:"phone" json:"phone"`
	Website string             `bson:"website" json:"website"`
}

var supplierRules = Rules{
	{Field: "name", Constraints: Required | Unique},
}

type SupplierModel struct {
	*Model[Supplier]
}

func NewSupplierModel(store database.Store) *SupplierModel {
	return &SupplierModel{Model: newModel[Supplier](store, database.SuppliersCollection, supplierRules)}
}
