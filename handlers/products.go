package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
	"github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

// ListProducts shows every product to administrators and a supplier's own
// products to supplier accounts.
func (h *Handler) ListProducts(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	var filter database.Filter
	if !user.IsAdmin() {
		if user.SupplierID == nil {
			return h.render(c, "products/index", "Products", echo.Map{"products": []*models.Product{}})
		}
		filter = database.Filter{"supplierId": *user.SupplierID}
	}
	products, err := h.models.Products.FindAll(ctx, filter)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "products/index", "Products", echo.Map{"products": products})
}

func (h *Handler) ShowProduct(c echo.Context) error {
	product, err := h.findProduct(c, "id")
	if err != nil {
		return fail(c, err, "/products")
	}
	return h.render(c, "products/show", product.Name, echo.Map{"product": product})
}

func (h *Handler) NewProduct(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	suppliers, err := h.models.Suppliers.FindAll(ctx, nil)
	if err != nil {
		return fail(c, err, "/products")
	}
	return h.render(c, "products/new", "New Product", echo.Map{"suppliers": suppliers})
}

// CreateProduct adds a product. Supplier accounts may only add products to
// their own supplier.
func (h *Handler) CreateProduct(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	product := &models.Product{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
	}
	product.Stock, _ = strconv.Atoi(c.FormValue("stock"))
	product.Price, _ = strconv.ParseFloat(c.FormValue("price"), 64)
	if id, err := primitive.ObjectIDFromHex(c.FormValue("supplierId")); err == nil {
		product.SupplierID = id
	} else if user.IsSupplier() && user.SupplierID != nil {
		product.SupplierID = *user.SupplierID
	}

	if !user.IsAdmin() && !user.WorksFor(product.SupplierID) {
		flash(c, session.FlashError, middleware.MsgForbidden)
		return redirect(c, "/products/new")
	}

	created, err := h.models.Products.Create(ctx, product)
	if err != nil {
		return fail(c, err, "/products/new")
	}
	return redirect(c, "/products/"+created.ID.Hex())
}

func (h *Handler) EditProduct(c echo.Context) error {
	product, err := h.findProduct(c, "id")
	if err != nil {
		return fail(c, err, "/products")
	}
	return h.render(c, "products/edit", "Edit Product", echo.Map{"product": product})
}

// UpdateProduct changes only the fields that were filled in.
func (h *Handler) UpdateProduct(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	oid, err := models.ParseID(id)
	if err != nil {
		return fail(c, err, "/products")
	}

	patch := bson.M{}
	for _, field := range []string{"name", "description", "category"} {
		if v := c.FormValue(field); v != "" {
			patch[field] = v
		}
	}
	if v := c.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fail(c, models.NewValidationError("Price must be a number."), "/products/edit/"+id)
		}
		patch["price"] = price
	}
	if v := c.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return fail(c, models.NewValidationError("Stock must be a whole number."), "/products/edit/"+id)
		}
		patch["stock"] = stock
	}

	if err := h.models.Products.Update(ctx, oid, patch); err != nil {
		return fail(c, err, "/products/edit/"+id)
	}
	return redirect(c, "/products/"+id)
}

func (h *Handler) DeleteProduct(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	oid, err := models.ParseID(c.Param("id"))
	if err == nil {
		err = h.models.Products.Delete(ctx, oid)
	}
	if err != nil {
		return fail(c, err, "/products")
	}
	return redirect(c, "/products")
}

func (h *Handler) findProduct(c echo.Context, param string) (*models.Product, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := models.ParseID(c.Param(param))
	if err != nil {
		return nil, err
	}
	return h.models.Products.FindByID(ctx, id)
}

// Store lists products filtered by categories[i] and suppliers[i].
func (h *Handler) Store(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	query := c.QueryParams()
	selectedCategories := indexedValues(query, "categories")
	selectedSuppliers := indexedValues(query, "suppliers")

	filter, err := h.models.Products.BuildQuery(selectedCategories, selectedSuppliers)
	if err != nil {
		return fail(c, err, "/store")
	}
	categories, err := h.models.Products.GetCategories(ctx, selectedCategories)
	if err != nil {
		return fail(c, err, "/")
	}
	suppliers, err := h.models.Products.GetSuppliers(ctx, selectedSuppliers)
	if err != nil {
		return fail(c, err, "/")
	}
	products, err := h.models.Products.FindAll(ctx, filter)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "store/index", "db44 | Store", echo.Map{
		"products":   products,
		"categories": categories,
		"suppliers":  suppliers,
	})
}

func (h *Handler) StoreProduct(c echo.Context) error {
	product, err := h.findProduct(c, "productId")
	if err != nil {
		return fail(c, err, "/store")
	}
	return h.render(c, "store/show", "Product", echo.Map{"product": product})
}
