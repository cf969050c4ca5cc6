package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/models"
)

// addressFromForm reads the <prefix>FirstName, <prefix>Line1, ... fields.
func addressFromForm(c echo.Context, prefix string) models.Address {
	return models.Address{
		FirstName:  c.FormValue(prefix + "FirstName"),
		LastName:   c.FormValue(prefix + "LastName"),
		Line1:      c.FormValue(prefix + "Line1"),
		Line2:      c.FormValue(prefix + "Line2"),
		City:       c.FormValue(prefix + "City"),
		Province:   c.FormValue(prefix + "Province"),
		Country:    c.FormValue(prefix + "Country"),
		PostalCode: c.FormValue(prefix + "PostalCode"),
	}
}

// parseAddressJSON decodes an address submitted as a JSON object in a
// single form field.
func parseAddressJSON(field, raw string) (models.Address, error) {
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		return models.Address{}, models.NewValidationError(capitalize(field) + " is malformed.")
	}
	r := gjson.Parse(raw)
	return models.Address{
		FirstName:  r.Get("firstName").String(),
		LastName:   r.Get("lastName").String(),
		Line1:      r.Get("line1").String(),
		Line2:      r.Get("line2").String(),
		City:       r.Get("city").String(),
		Province:   r.Get("province").String(),
		Country:    r.Get("country").String(),
		PostalCode: r.Get("postalCode").String(),
	}, nil
}

// parseItemsJSON decodes [{"productId": "...", "quantity": n}, ...].
func parseItemsJSON(raw string) ([]models.LineItem, error) {
	malformed := models.NewValidationError("Items is malformed.")
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		return nil, malformed
	}
	items := []models.LineItem{}
	var err error
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		id, perr := primitive.ObjectIDFromHex(v.Get("productId").String())
		quantity := v.Get("quantity")
		if perr != nil || !quantity.Exists() || quantity.Int() < 1 {
			err = malformed
			return false
		}
		items = append(items, models.LineItem{ProductID: id, Quantity: int(quantity.Int())})
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
