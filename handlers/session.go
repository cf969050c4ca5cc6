package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

func (h *Handler) Home(c echo.Context) error {
	return h.render(c, "misc/index", "Welcome to db44!", nil)
}

func (h *Handler) LoginPage(c echo.Context) error {
	return h.render(c, "session/login", "Log in", nil)
}

// Authenticate logs the user in and primes the cart counter.
func (h *Handler) Authenticate(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.models.Users.Authenticate(ctx, c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		if !errors.Is(err, models.ErrInvalidCredentials) {
			log.WithError(err).Error("Login lookup failed")
		}
		flash(c, session.FlashError, "Email or password is incorrect")
		return redirect(c, "/session/login")
	}

	count, err := h.models.Orders.GetNumberOfItemsInCartFromUserID(ctx, user.ID)
	if err != nil {
		return fail(c, err, "/session/login")
	}

	supplierID := ""
	if user.SupplierID != nil {
		supplierID = user.SupplierID.Hex()
	}
	s := session.Get(c)
	if err := s.Login(user.ID.Hex(), user.Email, string(user.Role), supplierID, count); err != nil {
		return err
	}
	log.WithField("user", user.ID.Hex()).Info("User logged in")
	flash(c, session.FlashSuccess, "User is authenticated")
	return redirect(c, "/")
}

func (h *Handler) Logout(c echo.Context) error {
	s := session.Get(c)
	if err := s.Logout(); err != nil {
		return err
	}
	flash(c, session.FlashSuccess, "Logged out")
	return redirect(c, "/")
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
