package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/db44/storefront/handlers"
	"github.com/db44/storefront/metrics"
	mw "github.com/db44/storefront/middleware"
)

// SetupRoutes registers every page. Deletes are GET links and updates are
// POST forms carrying _method=PUT.
func SetupRoutes(e *echo.Echo, h *handlers.Handler, own *mw.Ownership) {
	e.GET("/", h.Home)
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	sessions := e.Group("/session")
	sessions.GET("/login", h.LoginPage)
	sessions.POST("/authenticate", h.Authenticate)
	sessions.GET("/logout", h.Logout)

	users := e.Group("/users")
	users.GET("", h.ListUsers, mw.IsAdmin)
	users.GET("/register", h.RegisterPage)
	users.POST("", h.CreateUser)
	users.GET("/:id", h.ShowUser, mw.IsThatUserOrAdmin)
	users.GET("/edit/:id", h.EditUser, mw.IsThatUserOrAdmin)
	users.PUT("/:id", h.UpdateUser, mw.IsThatUserOrAdmin)
	users.GET("/delete/:id", h.DeleteUser, mw.IsAdmin)

	store := e.Group("/store")
	store.GET("", h.Store)
	store.GET("/:productId", h.StoreProduct)

	products := e.Group("/products")
	products.GET("", h.ListProducts, mw.IsSupplierOrAdmin)
	products.GET("/new", h.NewProduct, mw.IsSupplierOrAdmin)
	products.POST("", h.CreateProduct, mw.IsSupplierOrAdmin)
	products.GET("/:id", h.ShowProduct, own.IsSupplierOfProductOrAdmin())
	products.GET("/edit/:id", h.EditProduct, own.IsSupplierOfProductOrAdmin())
	products.PUT("/:id", h.UpdateProduct, own.IsSupplierOfProductOrAdmin())
	products.GET("/delete/:id", h.DeleteProduct, own.IsSupplierOfProductOrAdmin())

	orders := e.Group("/orders")
	orders.GET("", h.ListOrders, mw.IsCustomerOrAdmin)
	orders.GET("/:id", h.ShowOrder, own.OrderedThatOrAdmin())
	orders.GET("/edit/:id", h.EditOrder, mw.IsAdmin)
	orders.PUT("/:id", h.UpdateOrder, mw.IsAdmin)
	orders.GET("/delete/:id", h.DeleteOrder, mw.IsAdmin)

	checkout := e.Group("/checkout", mw.IsCustomerOrAdmin, mw.HasItemsInCart)
	checkout.GET("", h.NewCheckout)
	checkout.PUT("", h.CreateCheckout)
	checkout.GET("/review", h.ReviewCheckout)
	checkout.GET("/confirm", h.ConfirmCheckout)

	cart := e.Group("/cart", mw.IsCustomerOrAdmin)
	cart.GET("", h.Cart)
	cart.PUT("", h.UpdateCart)
	cart.PUT("/add/:productId", h.AddToCart)

	suppliers := e.Group("/suppliers")
	suppliers.GET("", h.ListSuppliers, mw.IsAdmin)
	suppliers.GET("/register", h.NewSupplier, mw.IsAdmin)
	suppliers.POST("", h.CreateSupplier, mw.IsAdmin)
	suppliers.GET("/:id", h.ShowSupplier)
	suppliers.GET("/edit/:id", h.EditSupplier, mw.WorksThereOrAdmin)
	suppliers.PUT("/:id", h.UpdateSupplier, mw.WorksThereOrAdmin)
	suppliers.GET("/delete/:id", h.DeleteSupplier, mw.IsAdmin)
}
