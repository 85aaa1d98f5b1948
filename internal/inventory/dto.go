package inventory

import (
	"strings"

	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
)

// CreateInput carries the text fields of a multipart create request.
// Quantity and Price are pointers so a missing field differs from zero.
type CreateInput struct {
	Name        string
	Quantity    *int
	Location    string
	Description string
	Price       *float64
}

// UpdateInput is a sparse patch: nil fields were absent from the request.
type UpdateInput struct {
	Name        *string
	Quantity    *int
	Location    *string
	Description *string
	Price       *float64
}

func (in CreateInput) validate() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.Quantity == nil {
		missing = append(missing, "quantity")
	}
	if strings.TrimSpace(in.Location) == "" {
		missing = append(missing, "location")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	return checkRanges(in.Quantity, in.Price)
}

func (in UpdateInput) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if in.Location != nil && strings.TrimSpace(*in.Location) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "location cannot be empty")
	}
	return checkRanges(in.Quantity, in.Price)
}

// columns maps the present fields onto their column names.
func (in UpdateInput) columns() map[string]any {
	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Quantity != nil {
		fields["quantity"] = *in.Quantity
	}
	if in.Location != nil {
		fields["location"] = strings.TrimSpace(*in.Location)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Price != nil {
		fields["price"] = *in.Price
	}
	return fields
}

func checkRanges(quantity *int, price *float64) error {
	if quantity != nil && *quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater")
	}
	if price != nil && *price < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
	}
	return nil
}
