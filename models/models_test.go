package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

func newTestModels(t *testing.T) (*Models, database.Store) {
	t.Helper()
	store := database.NewMemoryStore()
	require.NoError(t, database.EnsureIndexes(context.Background(), store))
	return New(store), store
}

func createSupplier(t *testing.T, m *Models, name string) *Supplier {
	t.Helper()
	s, err := m.Suppliers.Create(context.Background(), &Supplier{Name: name})
	require.NoError(t, err)
	return s
}

func createProduct(t *testing.T, m *Models, name, category string, price float64, supplierID primitive.ObjectID) *Product {
	t.Helper()
	p, err := m.Products.Create(context.Background(), &Product{
		Name:       name,
		Category:   category,
		Price:      price,
		Stock:      10,
		SupplierID: supplierID,
	})
	require.NoError(t, err)
	return p
}
