package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

const (
	userKey = "user"

	MsgUnauthenticated = "Please login to do that action."
	MsgForbidden       = "You do not have permission to do that action"
	MsgEmptyCart       = "You do not have any items in your cart."
)

const lookupTimeout = 10 * time.Second

// LoadUser exposes the session's user, if any, to the handlers.
func LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		data := session.Get(c).Data
		if data.UserID == "" {
			return next(c)
		}
		id, err := primitive.ObjectIDFromHex(data.UserID)
		if err != nil {
			return next(c)
		}
		user := &models.User{ID: id, Email: data.Email, Role: models.Role(data.Role)}
		if sid, err := primitive.ObjectIDFromHex(data.SupplierID); err == nil {
			user.SupplierID = &sid
		}
		c.Set(userKey, user)
		return next(c)
	}
}

// CurrentUser returns nil for anonymous requests.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}

func unauthenticated(c echo.Context) error {
	session.Get(c).AddFlash(session.FlashError, MsgUnauthenticated)
	return c.Redirect(http.StatusFound, "/session/login")
}

func forbidden(c echo.Context) error {
	session.Get(c).AddFlash(session.FlashError, MsgForbidden)
	return c.Redirect(http.StatusFound, "/")
}

// allow builds a gate from a predicate over the current user.
func allow(pred func(c echo.Context, user *models.User) (bool, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return unauthenticated(c)
			}
			ok, err := pred(c, user)
			if err != nil {
				return err
			}
			if !ok {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

var IsAdmin = allow(func(_ echo.Context, u *models.User) (bool, error) {
	return u.IsAdmin(), nil
})

var IsSupplierOrAdmin = allow(func(_ echo.Context, u *models.User) (bool, error) {
	return u.IsSupplier() || u.IsAdmin(), nil
})

var IsCustomerOrAdmin = allow(func(_ echo.Context, u *models.User) (bool, error) {
	return u.IsCustomer() || u.IsAdmin(), nil
})

// IsThatUserOrAdmin gates /users/:id pages.
var IsThatUserOrAdmin = allow(func(c echo.Context, u *models.User) (bool, error) {
	return u.IsAdmin() || u.ID.Hex() == c.Param("id"), nil
})

// WorksThereOrAdmin gates /suppliers/:id edits.
var WorksThereOrAdmin = allow(func(c echo.Context, u *models.User) (bool, error) {
	if u.IsAdmin() {
		return true, nil
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	return err == nil && u.WorksFor(id), nil
})

// HasItemsInCart reads the per-session cart counter.
func HasItemsInCart(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			return unauthenticated(c)
		}
		s := session.Get(c)
		if s.Data.CartCount > 0 {
			return next(c)
		}
		s.AddFlash(session.FlashError, MsgEmptyCart)
		return c.Redirect(http.StatusFound, "/store")
	}
}

// Ownership gates that look up the target document.
type Ownership struct {
	models *models.Models
}

func NewOwnership(m *models.Models) *Ownership {
	return &Ownership{models: m}
}

// OrderedThatOrAdmin admits administrators and the customer who placed the
// order named by :id.
func (o *Ownership) OrderedThatOrAdmin() echo.MiddlewareFunc {
	return allow(func(c echo.Context, u *models.User) (bool, error) {
		if u.IsAdmin() {
			return true, nil
		}
		if !u.IsCustomer() {
			return false, nil
		}
		id, err := models.ParseID(c.Param("id"))
		if err != nil {
			return false, nil
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
		defer cancel()

		order, err := o.models.Orders.FindByID(ctx, id)
		if err != nil {
			return denyMissing(err, "order", c.Param("id"))
		}
		return order.UserID == u.ID, nil
	})
}

// IsSupplierOfProductOrAdmin admits administrators and the supplier that
// sells the product named by :id.
func (o *Ownership) IsSupplierOfProductOrAdmin() echo.MiddlewareFunc {
	return allow(func(c echo.Context, u *models.User) (bool, error) {
		if u.IsAdmin() {
			return true, nil
		}
		if !u.IsSupplier() {
			return false, nil
		}
		id, err := models.ParseID(c.Param("id"))
		if err != nil {
			return false, nil
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), lookupTimeout)
		defer cancel()

		product, err := o.models.Products.Model.FindByID(ctx, id)
		if err != nil {
			return denyMissing(err, "product", c.Param("id"))
		}
		return u.WorksFor(product.SupplierID), nil
	})
}

// denyMissing turns a not-found lookup into a denial and passes store
// errors through.
func denyMissing(err error, kind, id string) (bool, error) {
	if models.IsNotFound(err) {
		log.WithField(kind, id).Debug("Ownership check on missing document")
		return false, nil
	}
	return false, err
}
