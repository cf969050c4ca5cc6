package handlers

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/middleware"
	"github.com/db44/storefront/models"
	"github.com/db44/storefront/session"
)

func (h *Handler) ListUsers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.models.Users.FindAll(ctx, nil)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "users/index", "Users List", echo.Map{"users": users})
}

func (h *Handler) ShowUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.findUser(c)
	if err != nil {
		return fail(c, err, "/")
	}
	var supplier *models.Supplier
	if user.SupplierID != nil {
		if s, err := h.models.Suppliers.FindByID(ctx, *user.SupplierID); err == nil {
			supplier = s
		}
	}
	return h.render(c, "users/show", "User Details", echo.Map{"user": user, "supplier": supplier})
}

func (h *Handler) RegisterPage(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	suppliers, err := h.models.Suppliers.FindAll(ctx, nil)
	if err != nil {
		return fail(c, err, "/")
	}
	return h.render(c, "users/register", "Registration", echo.Map{
		"message":   "Register a new account",
		"suppliers": suppliers,
	})
}

// CreateUser registers a customer, or a supplier account when the supplier
// box is ticked.
func (h *Handler) CreateUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if c.FormValue("password") != c.FormValue("confirm_password") {
		flash(c, session.FlashError, "Passwords do not match. Please try again.")
		return redirect(c, "/users/register")
	}

	user := models.NewCustomer(c.FormValue("email"), c.FormValue("password"))
	if checked(c.FormValue("inputSupplier")) {
		user.Role = models.RoleSupplier
		if id, err := primitive.ObjectIDFromHex(c.FormValue("supplierId")); err == nil {
			user.SupplierID = &id
		}
	}

	if _, err := h.models.Users.Create(ctx, user); err != nil {
		return fail(c, err, "/users/register")
	}
	flash(c, session.FlashSuccess, "Account successfully created!")
	return redirect(c, "/session/login")
}

func (h *Handler) EditUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.findUser(c)
	if err != nil {
		return fail(c, err, "/users")
	}
	suppliers, err := h.models.Suppliers.FindAll(ctx, nil)
	if err != nil {
		return fail(c, err, "/users")
	}
	return h.render(c, "users/edit", "Edit User", echo.Map{
		"user":       user,
		"supplierCB": user.IsSupplier(),
		"suppliers":  suppliers,
	})
}

// UpdateUser changes the email and, for administrators, the account role.
func (h *Handler) UpdateUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id := c.Param("id")
	oid, err := models.ParseID(id)
	if err != nil {
		return fail(c, err, "/users")
	}

	patch := bson.M{}
	if email := c.FormValue("email"); email != "" {
		patch["email"] = email
	}
	if middleware.CurrentUser(c).IsAdmin() {
		if role := c.FormValue("role"); role != "" {
			patch["role"] = role
		} else if c.FormValue("inputSupplier") != "" {
			patch["role"] = string(models.RoleCustomer)
			if checked(c.FormValue("inputSupplier")) {
				patch["role"] = string(models.RoleSupplier)
			}
		}
		if patch["role"] == string(models.RoleSupplier) {
			if sid, err := primitive.ObjectIDFromHex(c.FormValue("supplierId")); err == nil {
				patch["supplierId"] = sid
			} else {
				patch["supplierId"] = nil
			}
		}
	}

	if err := h.models.Users.Update(ctx, oid, patch); err != nil {
		return fail(c, err, "/users/edit/"+id)
	}
	return redirect(c, "/users/"+id)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	oid, err := models.ParseID(c.Param("id"))
	if err == nil {
		err = h.models.Users.Delete(ctx, oid)
	}
	if err != nil {
		return fail(c, err, "/users")
	}
	flash(c, session.FlashSuccess, "User deleted.")
	return redirect(c, "/users")
}

func (h *Handler) findUser(c echo.Context) (*models.User, error) {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := models.ParseID(c.Param("id"))
	if err != nil {
		return nil, err
	}
	return h.models.Users.FindByID(ctx, id)
}
