package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/metrics"
	"github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

func (h *Handler) Cart(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	cart, err := h.models.Orders.GetCartFromUserID(ctx, user.ID)
	if err != nil {
		return fail(c, err, "/")
	}
	items, err := h.models.Orders.ParseLineItems(ctx, cart.Items)
	if err != nil {
		return fail(c, err, "/")
	}
	session.Get(c).SetCartCount(models.GetNumberOfItemsInCart(cart.Items))
	return h.render(c, "cart/edit", "Cart", echo.Map{
		"products": items,
		"cost":     models.GetTotalCostOfItems(items),
	})
}

// UpdateCart replaces the cart with the submitted products[i][...] rows.
func (h *Handler) UpdateCart(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	form, err := c.FormParams()
	if err != nil {
		return fail(c, models.NewValidationError("Cart form is malformed."), "/cart")
	}
	var rows []models.LineItemUpdate
	for _, row := range indexedRows(form, "products") {
		rows = append(rows, models.LineItemUpdate{
			ProductID: row["productId"],
			Quantity:  row["quantity"],
			Delete:    checked(row["delete"]),
		})
	}

	user := middleware.CurrentUser(c)
	count, err := h.models.Orders.UpdateCart(ctx, user.ID, rows)
	if err != nil {
		return fail(c, err, "/cart")
	}
	session.Get(c).SetCartCount(count)
	flash(c, session.FlashSuccess, "Cart updated.")
	return redirect(c, "/cart")
}

func (h *Handler) AddToCart(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	productID, err := models.ParseID(c.Param("productId"))
	if err != nil {
		return fail(c, err, "/store")
	}
	quantity, err := strconv.Atoi(c.FormValue("quantity"))
	if err != nil {
		return fail(c, models.NewValidationError("Quantity must be a number."), "/store")
	}
	name, err := h.models.Products.GetNameFromID(ctx, productID)
	if err != nil {
		return fail(c, err, "/store")
	}
	if name == "" {
		return fail(c, models.ErrInvalidID, "/store")
	}

	user := middleware.CurrentUser(c)
	cart, err := h.models.Orders.AddToCart(ctx, user.ID, productID, quantity)
	if err != nil {
		return fail(c, err, "/store")
	}
	metrics.RecordCartAdd(quantity)
	session.Get(c).SetCartCount(models.GetNumberOfItemsInCart(cart.Items))
	log.WithField("user", user.ID.Hex()).WithField("product", productID.Hex()).Debug("Added to cart")

	flash(c, session.FlashSuccess, "Added "+name+" x"+strconv.Itoa(quantity)+" to cart")
	return redirect(c, "/store")
}
