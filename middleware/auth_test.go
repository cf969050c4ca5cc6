package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

type fixture struct {
	e      *echo.Echo
	models *models.Models
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := database.NewMemoryStore()
	require.NoError(t, database.EnsureIndexes(context.Background(), store))
	m := models.New(store)
	own := NewOwnership(m)

	sessions := session.NewManager(session.NewMemoryStore(), session.Options{
		Secret: "test", CookieName: "sid", TTL: time.Hour,
	})
	e := echo.New()
	e.Use(sessions.Middleware(), LoadUser)

	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/login/:id", func(c echo.Context) error {
		id, _ := primitive.ObjectIDFromHex(c.Param("id"))
		user, err := m.Users.FindByID(c.Request().Context(), id)
		if err != nil {
			return err
		}
		sid := ""
		if user.SupplierID != nil {
			sid = user.SupplierID.Hex()
		}
		count, _ := m.Orders.GetNumberOfItemsInCartFromUserID(c.Request().Context(), user.ID)
		if err := session.Get(c).Login(user.ID.Hex(), user.Email, string(user.Role), sid, count); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/flashes", func(c echo.Context) error {
		return c.JSON(http.StatusOK, session.Get(c).Flashes())
	})
	e.GET("/admin", ok, IsAdmin)
	e.GET("/supplier-area", ok, IsSupplierOrAdmin)
	e.GET("/customer-area", ok, IsCustomerOrAdmin)
	e.GET("/users/:id", ok, IsThatUserOrAdmin)
	e.GET("/suppliers/:id", ok, WorksThereOrAdmin)
	e.GET("/orders/:id", ok, own.OrderedThatOrAdmin())
	e.GET("/products/:id", ok, own.IsSupplierOfProductOrAdmin())
	e.GET("/checkout", ok, HasItemsInCart)

	return &fixture{e: e, models: m}
}

// client keeps the latest session cookie between requests.
type client struct {
	t      *testing.T
	e      *echo.Echo
	cookie *http.Cookie
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookie = cookies[len(cookies)-1]
	}
	return rec
}

func (f *fixture) loginAs(t *testing.T, user *models.User) *client {
	t.Helper()
	created, err := f.models.Users.Create(context.Background(), user)
	require.NoError(t, err)
	c := &client{t: t, e: f.e}
	rec := c.get("/login/" + created.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	user.ID = created.ID
	return c
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, location, rec.Header().Get(echo.HeaderLocation))
}

func TestUnauthenticated(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, e: f.e}

	for _, path := range []string{"/admin", "/customer-area", "/orders/abc", "/checkout"} {
		assertRedirect(t, c.get(path), "/session/login")
	}
	rec := c.get("/flashes")
	assert.Contains(t, rec.Body.String(), MsgUnauthenticated)
}

func TestRoleGates(t *testing.T) {
	f := newFixture(t)
	supplier := f.models.Suppliers
	acme, err := supplier.Create(context.Background(), &models.Supplier{Name: "Acme"})
	require.NoError(t, err)

	admin := f.loginAs(t, models.NewAdmin("admin@db44.com", "pw"))
	customer := f.loginAs(t, models.NewCustomer("customer@db44.com", "pw"))
	seller := f.loginAs(t, models.NewSupplierUser("supplier@db44.com", "pw", acme.ID))

	assert.Equal(t, http.StatusOK, admin.get("/admin").Code)
	assert.Equal(t, http.StatusOK, admin.get("/supplier-area").Code)
	assert.Equal(t, http.StatusOK, admin.get("/customer-area").Code)

	assertRedirect(t, customer.get("/admin"), "/")
	assertRedirect(t, customer.get("/supplier-area"), "/")
	assert.Equal(t, http.StatusOK, customer.get("/customer-area").Code)
	assert.Contains(t, customer.get("/flashes").Body.String(), MsgForbidden)

	assert.Equal(t, http.StatusOK, seller.get("/supplier-area").Code)
	assertRedirect(t, seller.get("/customer-area"), "/")

	assert.Equal(t, http.StatusOK, seller.get("/suppliers/"+acme.ID.Hex()).Code)
	assertRedirect(t, seller.get("/suppliers/"+primitive.NewObjectID().Hex()), "/")
	assert.Equal(t, http.StatusOK, admin.get("/suppliers/"+acme.ID.Hex()).Code)
}

func TestIsThatUserOrAdmin(t *testing.T) {
	f := newFixture(t)
	me := models.NewCustomer("me@db44.com", "pw")
	c := f.loginAs(t, me)
	other, err := f.models.Users.Create(context.Background(), models.NewCustomer("other@db44.com", "pw"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, c.get("/users/"+me.ID.Hex()).Code)
	assertRedirect(t, c.get("/users/"+other.ID.Hex()), "/")
}

func TestOrderedThatOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	me := models.NewCustomer("me@db44.com", "pw")
	c := f.loginAs(t, me)
	admin := f.loginAs(t, models.NewAdmin("admin@db44.com", "pw"))

	mine, err := f.models.Orders.GetCartFromUserID(ctx, me.ID)
	require.NoError(t, err)
	theirs, err := f.models.Orders.GetCartFromUserID(ctx, primitive.NewObjectID())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, c.get("/orders/"+mine.ID.Hex()).Code)
	assertRedirect(t, c.get("/orders/"+theirs.ID.Hex()), "/")
	assertRedirect(t, c.get("/orders/"+primitive.NewObjectID().Hex()), "/")
	assertRedirect(t, c.get("/orders/not-an-id"), "/")
	assert.Equal(t, http.StatusOK, admin.get("/orders/"+theirs.ID.Hex()).Code)
}

func TestIsSupplierOfProductOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acme, err := f.models.Suppliers.Create(ctx, &models.Supplier{Name: "Acme"})
	require.NoError(t, err)
	north, err := f.models.Suppliers.Create(ctx, &models.Supplier{Name: "North"})
	require.NoError(t, err)
	product, err := f.models.Products.Create(ctx, &models.Product{Name: "Anvil", Price: 5, Category: "tools", SupplierID: acme.ID})
	require.NoError(t, err)

	owner := f.loginAs(t, models.NewSupplierUser("acme@db44.com", "pw", acme.ID))
	rival := f.loginAs(t, models.NewSupplierUser("north@db44.com", "pw", north.ID))
	customer := f.loginAs(t, models.NewCustomer("c@db44.com", "pw"))

	assert.Equal(t, http.StatusOK, owner.get("/products/"+product.ID.Hex()).Code)
	assertRedirect(t, rival.get("/products/"+product.ID.Hex()), "/")
	assertRedirect(t, customer.get("/products/"+product.ID.Hex()), "/")
}

func TestHasItemsInCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	me := models.NewCustomer("me@db44.com", "pw")
	empty := f.loginAs(t, me)

	assertRedirect(t, empty.get("/checkout"), "/store")
	assert.Contains(t, empty.get("/flashes").Body.String(), MsgEmptyCart)

	_, err := f.models.Orders.AddToCart(ctx, me.ID, primitive.NewObjectID(), 2)
	require.NoError(t, err)
	// The counter is read at login.
	empty.get("/login/" + me.ID.Hex())
	assert.Equal(t, http.StatusOK, empty.get("/checkout").Code)
}
