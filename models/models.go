package models

import "github.com/db44/storefront/database"

// Models bundles the collection models over one store.
type Models struct {
	Users     *UserModel
	Suppliers *SupplierModel
	Products  *ProductModel
	Orders    *OrderModel
}

func New(store database.Store) *Models {
	suppliers := NewSupplierModel(store)
	products := NewProductModel(store, suppliers)
	return &Models{
		Users:     NewUserModel(store),
		Suppliers: suppliers,
		Products:  products,
		Orders:    NewOrderModel(store, products),
	}
}
