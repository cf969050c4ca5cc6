package handlers

import (
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/metrics"
	"github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

func (h *Handler) cartPage(c echo.Context, name, title string, extra echo.Map) error {
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
	data := echo.Map{
		"cart":           cart,
		"products":       items,
		"numItemsInCart": models.GetNumberOfItemsInCart(cart.Items),
		"cost":           models.GetTotalCostOfItems(items),
	}
	for k, v := range extra {
		data[k] = v
	}
	return h.render(c, name, title, data)
}

func (h *Handler) NewCheckout(c echo.Context) error {
	return h.cartPage(c, "checkout/new", "Checkout", echo.Map{"message": "Input payment and shipping details"})
}

func (h *Handler) CreateCheckout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	billing := addressFromForm(c, "billingAddress")
	shipping := addressFromForm(c, "shippingAddress")
	if checked(c.FormValue("sameAsBilling")) {
		shipping = billing
	}
	if _, err := h.models.Orders.Checkout(ctx, user.ID, billing, shipping); err != nil {
		return fail(c, err, "/checkout")
	}
	return redirect(c, "/checkout/review")
}

func (h *Handler) ReviewCheckout(c echo.Context) error {
	return h.cartPage(c, "checkout/show", "Checkout Review", nil)
}

// ConfirmCheckout places the order and opens a new cart.
func (h *Handler) ConfirmCheckout(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user := middleware.CurrentUser(c)
	order, err := h.models.Orders.ConfirmCart(ctx, user.ID)
	if err != nil {
		metrics.RecordCheckout(false)
		return fail(c, err, "/checkout/review")
	}
	metrics.RecordCheckout(true)
	session.Get(c).SetCartCount(0)
	log.WithField("order", order.ID.Hex()).WithField("user", user.ID.Hex()).Info("Order confirmed")

	flash(c, session.FlashSuccess, "Order placed.")
	return redirect(c, "/orders/"+order.ID.Hex())
}
