package models

import (
	"context"
	"errors"
	"math"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/db44/storefront/database"
)

type Constraint uint8

const (
	Required Constraint = 1 << iota
	Unique
)

// FieldRule binds constraints to one document field. Label replaces the
// field name in messages. When RequiredIf is set, the Required constraint
// only applies to payloads for which it returns true.
type FieldRule struct {
	Field       string
	Label       string
	Constraints Constraint
	RequiredIf  func(data bson.M) bool
}

type Rules []FieldRule

func (r FieldRule) label() string {
	if r.Label != "" {
		return r.Label
	}
	return r.Field
}

type Validator struct {
	collection database.Collection
	rules      Rules
}

func NewValidator(collection database.Collection, rules Rules) *Validator {
	return &Validator{collection: collection, rules: rules}
}

// Validate checks data against the rules. A non-nil id marks an update:
// required fields may then be omitted, and the document with that id may
// keep its own value for unique fields. All violations are reported together.
func (v *Validator) Validate(ctx context.Context, data bson.M, id *primitive.ObjectID) error {
	var messages []string
	isUpdate := id != nil

	for _, rule := range v.rules {
		if rule.Constraints&Required == 0 {
			continue
		}
		if rule.RequiredIf != nil && !rule.RequiredIf(data) {
			continue
		}
		value, present := data[rule.Field]
		if !truthy(value) && (present || !isUpdate) {
			messages = append(messages, formatError(rule.label(), "is required."))
		}
	}

	for _, rule := range v.rules {
		if rule.Constraints&Unique == 0 {
			continue
		}
		value := data[rule.Field]
		if !truthy(value) {
			continue
		}
		existing, err := v.collection.FindOne(ctx, database.Filter{rule.Field: value})
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		existingID, _ := existing.Lookup("_id").ObjectIDOK()
		if !isUpdate || existingID != *id {
			messages = append(messages, formatError(rule.label(), "has already been taken."))
		}
	}

	if len(messages) > 0 {
		return NewValidationError(messages...)
	}
	return nil
}

// truthy treats empty strings, zero numbers, false, nil and zero ids as
// missing values. Documents and arrays count as present even when empty.
func truthy(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case primitive.ObjectID:
		return !v.IsZero()
	case *primitive.ObjectID:
		return v != nil && !v.IsZero()
	case primitive.Null, primitive.Undefined:
		return false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return truthy(rv.Elem().Interface())
	}
	return true
}
