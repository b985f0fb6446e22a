package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// labels name fields in messages where the json name alone is ambiguous.
var labels = map[string]string{
	"CategoryInput.Name":        "category name",
	"CategoryInput.OrderNumber": "order number",
	"MealInput.Name":            "meal name",
	"MealInput.CategoryName":    "category",
	"MealInput.CategoryID":      "category id",
	"MealInput.OrderNumber":     "order number",
}

// validateStruct runs the struct tags and reports the first failure as a
// *ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]

	label, ok := labels[fe.StructNamespace()]
	if !ok {
		label = strings.ReplaceAll(fe.Field(), "_", " ")
	}
	return &ValidationError{Field: fe.Field(), Message: fieldMessage(label, fe)}
}

func fieldMessage(label string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_without":
		return label + " is required"
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", label, fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return label + " must not be negative"
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "gt":
		if fe.Param() == "0" {
			return label + " must be positive"
		}
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

// Validate trims the name and checks the category payload in place.
func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return validateStruct(in)
}

// Validate normalises the meal payload in place. The category itself is
// resolved by the caller; here it only has to be referenced somehow.
func (in *MealInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.CategoryName = strings.TrimSpace(in.CategoryName)
	if in.Image != nil {
		image := strings.TrimSpace(*in.Image)
		in.Image = &image
	}

	ingredients := make([]string, 0, len(in.Ingredients))
	for _, ingredient := range in.Ingredients {
		if ingredient = strings.TrimSpace(ingredient); ingredient != "" {
			ingredients = append(ingredients, ingredient)
		}
	}
	in.Ingredients = ingredients

	return validateStruct(in)
}

// Record builds the row to store once the category has been resolved.
func (in *MealInput) Record(categoryID int64) MealRecord {
	rec := MealRecord{
		Name:        in.Name,
		Image:       in.Image,
		Description: in.Description,
		Price:       *in.Price,
		CategoryID:  categoryID,
		Ingredients: in.Ingredients,
	}
	if in.OrderNumber != nil {
		rec.OrderNumber = *in.OrderNumber
	}
	return rec
}
