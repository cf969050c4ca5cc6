package models

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
	"github.com/db44/storefront/utils"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "administrator"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleSupplier || r == RoleAdmin
}

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"`
	Role     Role               `bson:"role" json:"role"`
	// SupplierID is set only for supplier accounts.
	SupplierID *primitive.ObjectID `bson:"supplierId" json:"supplierId,omitempty"`
}

func NewCustomer(email, password string) *User {
	return &User{Email: email, Password: password, Role: RoleCustomer}
}

func NewAdmin(email, password string) *User {
	return &User{Email: email, Password: password, Role: RoleAdmin}
}

func NewSupplierUser(email, password string, supplierID primitive.ObjectID) *User {
	return &User{Email: email, Password: password, Role: RoleSupplier, SupplierID: &supplierID}
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsSupplier() bool { return u.Role == RoleSupplier }
func (u *User) IsCustomer() bool { return u.Role == RoleCustomer }

// WorksFor reports whether u is a supplier account linked to supplierID.
func (u *User) WorksFor(supplierID primitive.ObjectID) bool {
	return u.IsSupplier() && u.SupplierID != nil && *u.SupplierID == supplierID
}

var userRules = Rules{
	{Field: "email", Constraints: Required | Unique},
	{Field: "password", Constraints: Required},
	{Field: "role", Constraints: Required},
	{
		Field:       "supplierId",
		Label:       "supplier",
		Constraints: Required,
		RequiredIf: func(data bson.M) bool {
			role, _ := data["role"].(string)
			return Role(role) == RoleSupplier
		},
	},
}

type UserModel struct {
	*Model[User]
}

func NewUserModel(store database.Store) *UserModel {
	m := newModel[User](store, database.UsersCollection, userRules)
	m.beforeWrite = prepareUser
	m.mergeUpdate = mergeUserRole
	return &UserModel{Model: m}
}

// prepareUser hashes plaintext passwords and clears the supplier link of
// accounts that are not suppliers.
func prepareUser(doc bson.M) error {
	if role, ok := doc["role"].(string); ok {
		if !Role(role).Valid() {
			return NewValidationError(formatError("role", "is not valid."))
		}
		if Role(role) != RoleSupplier {
			doc["supplierId"] = nil
		}
	}
	if password, ok := doc["password"].(string); ok && password != "" && !utils.IsPasswordHash(password) {
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		doc["password"] = hash
	}
	return nil
}

// mergeUserRole completes a patch that touches only one of role and
// supplierId with the stored value of the other, so the supplier rule and
// prepareUser see the account as it will be after the write.
func mergeUserRole(current, patch bson.M) {
	_, hasRole := patch["role"]
	_, hasSupplier := patch["supplierId"]
	switch {
	case hasRole && !hasSupplier:
		patch["supplierId"] = current["supplierId"]
	case hasSupplier && !hasRole:
		patch["role"] = current["role"]
	}
}

func (m *UserModel) FindByEmail(ctx context.Context, email string) (*User, error) {
	return m.FindOne(ctx, database.Filter{"email": email})
}

// Authenticate returns the user whose email and password match.
func (m *UserModel) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := m.FindByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
