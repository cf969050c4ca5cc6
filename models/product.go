package models

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Stock       int                `bson:"stock" json:"stock"`
	Price       float64            `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	SupplierID  primitive.ObjectID `bson:"supplierId" json:"supplierId"`
	// Supplier is joined at read time and never stored.
	Supplier *Supplier `bson:"supplier,omitempty" json:"supplier,omitempty"`
}

// SupplierName falls back to the raw id when the supplier no longer exists.
func (p *Product) SupplierName() string {
	if p.Supplier != nil {
		return p.Supplier.Name
	}
	return p.SupplierID.Hex()
}

// Checkbox is one option of the store filter form.
type Checkbox struct {
	Name  string
	ID    string
	IsSet bool
}

var productRules = Rules{
	{Field: "name", Constraints: Required},
	{Field: "price", Constraints: Required},
	{Field: "category", Constraints: Required},
	{Field: "supplierId", Label: "supplier", Constraints: Required},
}

var supplierJoin = database.Join{
	From:         database.SuppliersCollection,
	LocalField:   "supplierId",
	ForeignField: "_id",
	As:           "supplier",
}

type ProductModel struct {
	*Model[Product]
	suppliers *SupplierModel
}

func NewProductModel(store database.Store, suppliers *SupplierModel) *ProductModel {
	m := newModel[Product](store, database.ProductsCollection, productRules)
	m.beforeWrite = prepareProduct
	return &ProductModel{Model: m, suppliers: suppliers}
}

func prepareProduct(doc bson.M) error {
	delete(doc, "supplier")
	if category, ok := doc["category"].(string); ok {
		doc["category"] = strings.ToLower(strings.TrimSpace(category))
	}
	return nil
}

// FindAll returns the matching products with their supplier attached.
func (m *ProductModel) FindAll(ctx context.Context, filter database.Filter) ([]*Product, error) {
	docs, err := m.Collection().FindJoined(ctx, filter, supplierJoin)
	if err != nil {
		return nil, err
	}
	return decodeAll[Product](docs)
}

func (m *ProductModel) FindByID(ctx context.Context, id primitive.ObjectID) (*Product, error) {
	products, err := m.FindAll(ctx, database.Filter{"_id": id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, database.ErrNotFound
	}
	return products[0], nil
}

// GetNameFromID returns an empty name for unknown products.
func (m *ProductModel) GetNameFromID(ctx context.Context, id primitive.ObjectID) (string, error) {
	product, err := m.Model.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return product.Name, nil
}

// GetCategories lists the distinct product categories in order of first
// appearance, marking those in selected.
func (m *ProductModel) GetCategories(ctx context.Context, selected []string) ([]Checkbox, error) {
	products, err := m.Model.FindAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	selected = lowerAll(selected)
	seen := map[string]bool{}
	boxes := []Checkbox{}
	for _, p := range products {
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		boxes = append(boxes, Checkbox{Name: p.Category, ID: p.Category, IsSet: contains(selected, p.Category)})
	}
	return boxes, nil
}

// GetSuppliers lists every supplier, marking those whose id is in selected.
func (m *ProductModel) GetSuppliers(ctx context.Context, selected []string) ([]Checkbox, error) {
	suppliers, err := m.suppliers.FindAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	boxes := make([]Checkbox, 0, len(suppliers))
	for _, s := range suppliers {
		id := s.ID.Hex()
		boxes = append(boxes, Checkbox{Name: s.Name, ID: id, IsSet: contains(selected, id)})
	}
	return boxes, nil
}

// BuildQuery turns the store filter selections into a product filter. Empty
// selections do not constrain the result.
func (m *ProductModel) BuildQuery(categories, suppliers []string) (database.Filter, error) {
	filter := database.Filter{}
	if len(categories) > 0 {
		filter["category"] = bson.M{"$in": lowerAll(categories)}
	}
	if len(suppliers) > 0 {
		ids := make([]primitive.ObjectID, 0, len(suppliers))
		for _, s := range suppliers {
			id, err := primitive.ObjectIDFromHex(s)
			if err != nil {
				return nil, NewValidationError(formatError("supplier", "is malformed."))
			}
			ids = append(ids, id)
		}
		filter["supplierId"] = bson.M{"$in": ids}
	}
	return filter, nil
}

// lowerAll matches categories the way prepareProduct stores them.
func lowerAll(values []string) []string {
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return lowered
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
