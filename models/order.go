package models

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

type OrderStatus string

const (
	OrderStatusCart      OrderStatus = "cart"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists the statuses an administrator may assign.
var OrderStatuses = []OrderStatus{
	OrderStatusCart, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
}

// PaymentMethod is the only payment method the checkout accepts.
const PaymentMethod = "Credit Card"

const maxCartRetries = 5

type LineItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// LineItemUpdate is one submitted row of the cart form.
type LineItemUpdate struct {
	ProductID string
	Quantity  string
	Delete    bool
}

// ParsedLineItem is a line item resolved against the current product.
type ParsedLineItem struct {
	ProductID    primitive.ObjectID
	Name         string
	Description  string
	Category     string
	SupplierName string
	Quantity     int
	Price        decimal.Decimal
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	BillingAddress  Address            `bson:"billingAddress" json:"billingAddress"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod" json:"paymentMethod"`
	Status          OrderStatus        `bson:"status" json:"status"`
	Items           []LineItem         `bson:"items" json:"items"`
	// Version increases on every cart write.
	Version int `bson:"version" json:"version"`
	// CartOwner mirrors UserID while the order is an open cart.
	CartOwner *primitive.ObjectID `bson:"cartOwner,omitempty" json:"-"`
}

func (o *Order) IsCart() bool { return o.Status == OrderStatusCart }

var orderRules = Rules{
	{Field: "userId", Label: "user", Constraints: Required},
	{Field: "status", Constraints: Required},
}

type OrderModel struct {
	*Model[Order]
	products *ProductModel
}

func NewOrderModel(store database.Store, products *ProductModel) *OrderModel {
	m := newModel[Order](store, database.OrdersCollection, orderRules)
	m.beforeWrite = prepareOrder
	return &OrderModel{Model: m, products: products}
}

func prepareOrder(doc bson.M) error {
	if status, ok := doc["status"].(string); ok && !validStatus(OrderStatus(status)) {
		return NewValidationError(formatError("status", "is not valid."))
	}
	return nil
}

func validStatus(s OrderStatus) bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// GetCartFromUserID returns the user's open cart, creating it on first use.
func (m *OrderModel) GetCartFromUserID(ctx context.Context, userID primitive.ObjectID) (*Order, error) {
	cart, err := m.FindOne(ctx, database.Filter{"cartOwner": userID})
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	cart, err = m.CreateCart(ctx, userID)
	if errors.Is(err, database.ErrDuplicateKey) {
		// Another request created the cart first.
		return m.FindOne(ctx, database.Filter{"cartOwner": userID})
	}
	return cart, err
}

func (m *OrderModel) CreateCart(ctx context.Context, userID primitive.ObjectID) (*Order, error) {
	return m.Create(ctx, &Order{
		UserID:    userID,
		Status:    OrderStatusCart,
		Items:     []LineItem{},
		CartOwner: &userID,
	})
}

// AddToCart adds quantity of the product to the user's cart, merging with
// an existing line for the same product.
func (m *OrderModel) AddToCart(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*Order, error) {
	if quantity < 1 {
		return nil, NewValidationError(formatError("quantity", "must be at least 1."))
	}
	return m.mutateCart(ctx, userID, func(items []LineItem) []LineItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity += quantity
				return items
			}
		}
		return append(items, LineItem{ProductID: productID, Quantity: quantity})
	})
}

// UpdateCart replaces the item list with the submitted rows and returns the
// new number of items in the cart.
func (m *OrderModel) UpdateCart(ctx context.Context, userID primitive.ObjectID, rows []LineItemUpdate) (int, error) {
	items := make([]LineItem, 0, len(rows))
	for _, row := range rows {
		if row.Delete {
			continue
		}
		productID, err := primitive.ObjectIDFromHex(row.ProductID)
		if err != nil {
			return 0, NewValidationError(formatError("product", "is malformed."))
		}
		quantity, err := strconv.Atoi(row.Quantity)
		if err != nil {
			return 0, NewValidationError(formatError("quantity", "must be a number."))
		}
		if quantity < 1 {
			return 0, NewValidationError(formatError("quantity", "must be at least 1."))
		}
		items = append(items, LineItem{ProductID: productID, Quantity: quantity})
	}

	cart, err := m.mutateCart(ctx, userID, func([]LineItem) []LineItem { return items })
	if err != nil {
		return 0, err
	}
	return GetNumberOfItemsInCart(cart.Items), nil
}

// mutateCart applies fn to the cart items and writes the result only if the
// cart version is unchanged, retrying on conflict.
func (m *OrderModel) mutateCart(ctx context.Context, userID primitive.ObjectID, fn func([]LineItem) []LineItem) (*Order, error) {
	for attempt := 0; attempt < maxCartRetries; attempt++ {
		cart, err := m.GetCartFromUserID(ctx, userID)
		if err != nil {
			return nil, err
		}

		items := fn(append([]LineItem{}, cart.Items...))
		ok, err := m.update(ctx, cart.ID,
			database.Filter{"version": cart.Version, "status": OrderStatusCart},
			database.Update{Set: bson.M{"items": items, "version": cart.Version + 1}})
		if err != nil {
			return nil, err
		}
		if ok {
			cart.Items = items
			cart.Version++
			return cart, nil
		}
		log.WithField("cart", cart.ID.Hex()).WithField("attempt", attempt+1).Debug("Cart version conflict, retrying")
	}
	return nil, ErrCartConflict
}

// ParseLineItems resolves each line item against its current product, one
// lookup per item. Items whose product no longer exists are left out.
func (m *OrderModel) ParseLineItems(ctx context.Context, items []LineItem) ([]ParsedLineItem, error) {
	parsed := make([]ParsedLineItem, 0, len(items))
	for _, item := range items {
		product, err := m.products.FindByID(ctx, item.ProductID)
		if errors.Is(err, database.ErrNotFound) {
			log.WithField("product", item.ProductID.Hex()).Warn("Cart references a missing product")
			continue
		}
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, ParsedLineItem{
			ProductID:    product.ID,
			Name:         product.Name,
			Description:  product.Description,
			Category:     product.Category,
			SupplierName: product.SupplierName(),
			Quantity:     item.Quantity,
			Price:        LinePrice(product.Price, item.Quantity),
		})
	}
	return parsed, nil
}

// LinePrice is unitPrice * quantity rounded up to the cent.
func LinePrice(unitPrice float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).RoundCeil(2)
}

func GetTotalCostOfItems(items []ParsedLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total.RoundCeil(2)
}

func GetNumberOfItemsInCart(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func (m *OrderModel) GetNumberOfItemsInCartFromUserID(ctx context.Context, userID primitive.ObjectID) (int, error) {
	cart, err := m.GetCartFromUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return GetNumberOfItemsInCart(cart.Items), nil
}

// Checkout records the addresses and payment method on the open cart.
func (m *OrderModel) Checkout(ctx context.Context, userID primitive.ObjectID, billing, shipping Address) (*Order, error) {
	messages := append(billing.missing("billing address"), shipping.missing("shipping address")...)
	if len(messages) > 0 {
		return nil, NewValidationError(messages...)
	}

	cart, err := m.GetCartFromUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = m.Update(ctx, cart.ID, bson.M{
		"billingAddress":  billing,
		"shippingAddress": shipping,
		"paymentMethod":   PaymentMethod,
	})
	if err != nil {
		return nil, err
	}
	cart.BillingAddress = billing
	cart.ShippingAddress = shipping
	cart.PaymentMethod = PaymentMethod
	return cart, nil
}

// ConfirmCart turns the open cart into a confirmed order and opens a new,
// empty cart for the user.
func (m *OrderModel) ConfirmCart(ctx context.Context, userID primitive.ObjectID) (*Order, error) {
	cart, err := m.GetCartFromUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, NewValidationError("Your cart is empty.")
	}
	if cart.PaymentMethod == "" {
		return nil, NewValidationError("Billing and shipping details are required.")
	}

	ok, err := m.update(ctx, cart.ID,
		database.Filter{"version": cart.Version, "status": OrderStatusCart},
		database.Update{
			Set:   bson.M{"status": OrderStatusConfirmed, "version": cart.Version + 1},
			Unset: []string{"cartOwner"},
		})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCartConflict
	}

	if _, err := m.CreateCart(ctx, userID); err != nil && !errors.Is(err, database.ErrDuplicateKey) {
		return nil, err
	}
	cart.Status = OrderStatusConfirmed
	cart.CartOwner = nil
	cart.Version++
	return cart, nil
}

// AdminUpdate applies an administrator edit. Moving an order out of the
// cart status releases the user's cart slot.
func (m *OrderModel) AdminUpdate(ctx context.Context, id primitive.ObjectID, patch bson.M) error {
	order, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	next := order.Status
	if status, ok := patch["status"]; ok {
		next = OrderStatus(toString(status))
	}
	owner := order.UserID
	if uid, ok := patch["userId"].(primitive.ObjectID); ok {
		owner = uid
	}
	var unset []string
	if next == OrderStatusCart {
		patch["cartOwner"] = owner
	} else if order.IsCart() {
		unset = append(unset, "cartOwner")
	}
	patch["version"] = order.Version + 1

	_, err = m.update(ctx, id, nil, database.Update{Set: patch, Unset: unset})
	if errors.Is(err, database.ErrDuplicateKey) {
		return NewValidationError("User already has an open cart.")
	}
	return err
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case OrderStatus:
		return string(s)
	}
	return ""
}
