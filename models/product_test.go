package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

func TestProductValidation(t *testing.T) {
	m, _ := newTestModels(t)
	_, err := m.Products.Create(context.Background(), &Product{Stock: 3})
	assert.Equal(t, "Name is required. Price is required. Category is required. Supplier is required.", err.Error())
}

func TestProductJoinsSupplier(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModels(t)
	acme := createSupplier(t, m, "Acme")

	created := createProduct(t, m, "Anvil", "Tools", 99.5, acme.ID)
	assert.Equal(t, "tools", created.Category)

	product, err := m.Products.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, product.Supplier)
	assert.Equal(t, "Acme", product.Supplier.Name)
	assert.Equal(t, "Acme", product.SupplierName())

	orphan := createProduct(t, m, "Orphan", "misc", 1, primitive.NewObjectID())
	product, err = m.Products.FindByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, product.Supplier)
	assert.Equal(t, orphan.SupplierID.Hex(), product.SupplierName())

	_, err = m.Products.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestProductSupplierNeverStored(t *testing.T) {
	ctx := context.Background()
	m, store := newTestModels(t)
	acme := createSupplier(t, m, "Acme")
	p := createProduct(t, m, "Anvil", "tools", 10, acme.ID)

	require.NoError(t, m.Products.Update(ctx, p.ID, bson.M{"supplier": bson.M{"name": "Fake"}, "stock": 2}))
	raw, err := store.Collection(database.ProductsCollection).FindOne(ctx, database.Filter{"_id": p.ID})
	require.NoError(t, err)
	_, err = raw.LookupErr("supplier")
	assert.Error(t, err)
	assert.Equal(t, int32(2), raw.Lookup("stock").Int32())
}

func TestGetNameFromID(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModels(t)
	p := createProduct(t, m, "Anvil", "tools", 10, primitive.NewObjectID())

	name, err := m.Products.GetNameFromID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anvil", name)

	name, err = m.Products.GetNameFromID(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestCatalogCheckboxes(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModels(t)
	acme := createSupplier(t, m, "Acme")
	north := createSupplier(t, m, "North")
	createProduct(t, m, "Anvil", "tools", 10, acme.ID)
	createProduct(t, m, "Hammer", "tools", 5, acme.ID)
	createProduct(t, m, "Syrup", "food", 9, north.ID)

	categories, err := m.Products.GetCategories(ctx, []string{"food"})
	require.NoError(t, err)
	assert.Equal(t, []Checkbox{
		{Name: "tools", ID: "tools", IsSet: false},
		{Name: "food", ID: "food", IsSet: true},
	}, categories)

	// Selections match regardless of case, like the store filter.
	categories, err = m.Products.GetCategories(ctx, []string{"Tools"})
	require.NoError(t, err)
	assert.True(t, categories[0].IsSet)
	assert.False(t, categories[1].IsSet)

	suppliers, err := m.Products.GetSuppliers(ctx, []string{acme.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []Checkbox{
		{Name: "Acme", ID: acme.ID.Hex(), IsSet: true},
		{Name: "North", ID: north.ID.Hex(), IsSet: false},
	}, suppliers)
}

func TestBuildQuery(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestModels(t)
	acme := createSupplier(t, m, "Acme")
	north := createSupplier(t, m, "North")
	createProduct(t, m, "Anvil", "tools", 10, acme.ID)
	createProduct(t, m, "Syrup", "food", 9, north.ID)
	createProduct(t, m, "Toque", "clothing", 15, north.ID)

	names := func(filter database.Filter) []string {
		products, err := m.Products.FindAll(ctx, filter)
		require.NoError(t, err)
		var out []string
		for _, p := range products {
			out = append(out, p.Name)
		}
		return out
	}

	filter, err := m.Products.BuildQuery(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, filter)
	assert.Len(t, names(filter), 3)

	filter, err = m.Products.BuildQuery([]string{"Tools", "food"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Anvil", "Syrup"}, names(filter))

	filter, err = m.Products.BuildQuery([]string{"food", "clothing"}, []string{north.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []string{"Syrup", "Toque"}, names(filter))

	filter, err = m.Products.BuildQuery(nil, []string{acme.ID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []string{"Anvil"}, names(filter))

	_, err = m.Products.BuildQuery(nil, []string{"not-an-id"})
	assert.True(t, IsValidationError(err))
}
