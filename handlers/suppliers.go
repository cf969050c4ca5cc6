package handlers

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

func (h *Handler) ListSuppliers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	suppliers, err := h.models.Suppliers.FindAll(ctx, nil)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "suppliers/index", "Suppliers List", echo.Map{"suppliers": suppliers})
}

func (h *Handler) ShowSupplier(c echo.Context) error {
	supplier, err := h.findSupplier(c)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "suppliers/show", "Supplier Details", echo.Map{"supplier": supplier})
}

func (h *Handler) NewSupplier(c echo.Context) error {
	return h.render(c, "suppliers/register", "Register Supplier", nil)
}

// supplierAddress accepts either a JSON "address" field or the individual
// address<Field> inputs.
func supplierAddress(c echo.Context) (models.Address, bool, error) {
	if raw := c.FormValue("address"); raw != "" {
		address, err := parseAddressJSON("address", raw)
		return address, true, err
	}
	address := addressFromForm(c, "address")
	return address, address != models.Address{}, nil
}

func (h *Handler) CreateSupplier(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	address, _, err := supplierAddress(c)
	if err != nil {
		return fail(c, err, "/suppliers/register")
	}
	supplier := &models.Supplier{
		Name:    c.FormValue("name"),
		Address: address,
		Phone:   c.FormValue("phone"),
		Website: c.FormValue("website"),
	}
	if _, err := h.models.Suppliers.Create(ctx, supplier); err != nil {
		return fail(c, err, "/suppliers/register")
	}
	flash(c, session.FlashSuccess, "Supplier created.")
	return redirect(c, "/suppliers")
}

func (h *Handler) EditSupplier(c echo.Context) error {
	supplier, err := h.findSupplier(c)
	if err != nil {
		return fail(c, err, "/suppliers")
	}
	return h.render(c, "suppliers/edit", "Edit Supplier", echo.Map{"supplier": supplier})
}

func (h *Handler) UpdateSupplier(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	oid, err := models.ParseID(id)
	if err != nil {
		return fail(c, err, "/suppliers")
	}

	patch := bson.M{}
	for _, field := range []string{"name", "phone", "website"} {
		if v := c.FormValue(field); v != "" {
			patch[field] = v
		}
	}
	address, ok, err := supplierAddress(c)
	if err != nil {
		return fail(c, err, "/suppliers/edit/"+id)
	}
	if ok {
		patch["address"] = address
	}

	if err := h.models.Suppliers.Update(ctx, oid, patch); err != nil {
		return fail(c, err, "/suppliers/edit/"+id)
	}
	return redirect(c, "/suppliers/"+id)
}

func (h *Handler) DeleteSupplier(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	oid, err := models.ParseID(c.Param("id"))
	if err == nil {
		err = h.models.Suppliers.Delete(ctx, oid)
	}
	if err != nil {
		return fail(c, err, "/suppliers")
	}
	return redirect(c, "/suppliers")
}

func (h *Handler) findSupplier(c echo.Context) (*models.Supplier, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := models.ParseID(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return h.models.Suppliers.FindByID(ctx, id)
}
