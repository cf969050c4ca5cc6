package handlers

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/db44/storefront/database"
	"github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

// ListOrders shows all orders to administrators and a customer's own orders
// to customers.
func (h *Handler) ListOrders(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	var filter database.Filter
	if !user.IsAdmin() {
		filter = database.Filter{"userId": user.ID}
	}
	orders, err := h.models.Orders.FindAll(ctx, filter)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "orders/index", "Orders List", echo.Map{"orders": orders})
}

func (h *Handler) ShowOrder(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.findOrder(c)
	if err != nil {
		return fail(c, err, "/orders")
	}
	items, err := h.models.Orders.ParseLineItems(ctx, order.Items)
	if err != nil {
		return fail(c, err, "/orders")
	}
	return h.render(c, "orders/show", "Order Details", echo.Map{
		"order": order,
		"items": items,
		"cost":  models.GetTotalCostOfItems(items),
	})
}

func (h *Handler) EditOrder(c echo.Context) error {
	order, err := h.findOrder(c)
	if err != nil {
		return fail(c, err, "/orders")
	}
	return h.render(c, "orders/edit", "Edit Order", echo.Map{
		"order":    order,
		"statuses": models.OrderStatuses,
	})
}

// UpdateOrder applies an administrator edit. Addresses and items arrive as
// JSON text fields.
func (h *Handler) UpdateOrder(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	back := "/orders/edit/" + id
	oid, err := models.ParseID(id)
	if err != nil {
		return fail(c, err, "/orders")
	}

	patch := bson.M{}
	if v := c.FormValue("userId"); v != "" {
		uid, err := models.ParseID(v)
		if err != nil {
			return fail(c, models.NewValidationError("User is malformed."), back)
		}
		patch["userId"] = uid
	}
	for _, field := range []string{"billingAddress", "shippingAddress"} {
		if raw := c.FormValue(field); raw != "" {
			address, err := parseAddressJSON(field, raw)
			if err != nil {
				return fail(c, err, back)
			}
			patch[field] = address
		}
	}
	if v := c.FormValue("paymentMethod"); v != "" {
		patch["paymentMethod"] = v
	}
	if v := c.FormValue("status"); v != "" {
		patch["status"] = v
	}
	if raw := c.FormValue("items"); raw != "" {
		items, err := parseItemsJSON(raw)
		if err != nil {
			return fail(c, err, back)
		}
		patch["items"] = items
	}

	if err := h.models.Orders.AdminUpdate(ctx, oid, patch); err != nil {
		return fail(c, err, back)
	}
	h.refreshCartCount(c)
	return redirect(c, "/orders/"+id)
}

func (h *Handler) DeleteOrder(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	oid, err := models.ParseID(c.Param("id"))
	if err == nil {
		err = h.models.Orders.Delete(ctx, oid)
	}
	if err != nil {
		return fail(c, err, "/orders")
	}
	h.refreshCartCount(c)
	return redirect(c, "/orders")
}

// refreshCartCount recomputes the badge after an edit that may have touched
// the current user's own cart.
func (h *Handler) refreshCartCount(c echo.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	if count, err := h.models.Orders.GetNumberOfItemsInCartFromUserID(ctx, user.ID); err == nil {
		session.Get(c).SetCartCount(count)
	}
}

func (h *Handler) findOrder(c echo.Context) (*models.Order, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := models.ParseID(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return h.models.Orders.FindByID(ctx, id)
}
