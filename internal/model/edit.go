package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Edit is a single typed form change. Each field of the create and update
// payloads has its own Edit type; the id and server-derived fields have none.
type Edit interface {
	applyCreate(r *GroceryCreateRequest)
	applyUpdate(r *GroceryUpdateRequest)
}

type SetName string
type SetBrand string
type SetType GroceryType
type SetCurrentPrice float64
type SetCurrentSeller Seller
type SetLowStockThreshold int
type SetQuantityInStock int
type SetShouldInclude bool

func (e SetName) applyCreate(r *GroceryCreateRequest) { r.Name = string(e) }
func (e SetName) applyUpdate(r *GroceryUpdateRequest) { r.Name = string(e) }

func (e SetBrand) applyCreate(r *GroceryCreateRequest) { r.Brand = string(e) }
func (e SetBrand) applyUpdate(r *GroceryUpdateRequest) { r.Brand = string(e) }

func (e SetType) applyCreate(r *GroceryCreateRequest) { r.Type = GroceryType(e) }
func (e SetType) applyUpdate(r *GroceryUpdateRequest) { r.Type = GroceryType(e) }

func (e SetCurrentPrice) applyCreate(r *GroceryCreateRequest) { r.CurrentPrice = float64(e) }
func (e SetCurrentPrice) applyUpdate(r *GroceryUpdateRequest) { r.CurrentPrice = float64(e) }

func (e SetCurrentSeller) applyCreate(r *GroceryCreateRequest) { r.CurrentSeller = Seller(e) }
func (e SetCurrentSeller) applyUpdate(r *GroceryUpdateRequest) { r.CurrentSeller = Seller(e) }

func (e SetLowStockThreshold) applyCreate(r *GroceryCreateRequest) { r.LowStockThreshold = int(e) }
func (e SetLowStockThreshold) applyUpdate(r *GroceryUpdateRequest) { r.LowStockThreshold = int(e) }

func (e SetQuantityInStock) applyCreate(r *GroceryCreateRequest) { r.QuantityInStock = int(e) }
func (e SetQuantityInStock) applyUpdate(r *GroceryUpdateRequest) { r.QuantityInStock = int(e) }

// should_include is not part of the create payload.
func (e SetShouldInclude) applyCreate(r *GroceryCreateRequest) {}
func (e SetShouldInclude) applyUpdate(r *GroceryUpdateRequest) { r.ShouldInclude = bool(e) }

// Apply applies edits in order.
func (r *GroceryCreateRequest) Apply(edits ...Edit) {
	for _, e := range edits {
		e.applyCreate(r)
	}
}

// Apply applies edits in order.
func (r *GroceryUpdateRequest) Apply(edits ...Edit) {
	for _, e := range edits {
		e.applyUpdate(r)
	}
}

var ErrUnknownField = errors.New("unknown field")

// ParseEdit converts a form field name and its raw text into a typed Edit.
func ParseEdit(field, value string) (Edit, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "name":
		return SetName(value), nil
	case "brand":
		return SetBrand(value), nil
	case "type":
		t := GroceryType(strings.ToLower(value))
		if !t.Valid() {
			return nil, fmt.Errorf("type: invalid value %q", value)
		}
		return SetType(t), nil
	case "current_price", "price":
		// Form inputs may carry a currency prefix.
		p, err := strconv.ParseFloat(strings.TrimPrefix(value, "$"), 64)
		if err != nil {
			return nil, fmt.Errorf("current_price: %w", err)
		}
		if !finite(p) {
			return nil, fmt.Errorf("current_price: %q is not a number", value)
		}
		return SetCurrentPrice(p), nil
	case "current_seller", "seller":
		s := Seller(strings.ToLower(value))
		if !s.Valid() {
			return nil, fmt.Errorf("current_seller: invalid value %q", value)
		}
		return SetCurrentSeller(s), nil
	case "low_stock_threshold", "threshold":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("low_stock_threshold: %w", err)
		}
		return SetLowStockThreshold(n), nil
	case "quantity_in_stock", "quantity":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("quantity_in_stock: %w", err)
		}
		return SetQuantityInStock(n), nil
	case "should_include", "include":
		b, err := parseYesNo(value)
		if err != nil {
			return nil, fmt.Errorf("should_include: %w", err)
		}
		return SetShouldInclude(b), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
}

func parseYesNo(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(value)
}

// Validate reports every problem with the payload joined into one error.
func (r GroceryCreateRequest) Validate() error {
	return validateFields(r.Name, r.Brand, r.Type, r.CurrentPrice, r.CurrentSeller, r.LowStockThreshold, r.QuantityInStock)
}

// Validate reports every problem with the payload joined into one error.
func (r GroceryUpdateRequest) Validate() error {
	err := validateFields(r.Name, r.Brand, r.Type, r.CurrentPrice, r.CurrentSeller, r.LowStockThreshold, r.QuantityInStock)
	if strings.TrimSpace(r.ID) == "" {
		err = errors.Join(errors.New("id is required"), err)
	}
	return err
}

func validateFields(name, brand string, t GroceryType, price float64, seller Seller, threshold, quantity int) error {
	var errs []error
	if strings.TrimSpace(name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(brand) == "" {
		errs = append(errs, errors.New("brand is required"))
	}
	if !t.Valid() {
		errs = append(errs, fmt.Errorf("invalid type %q", t))
	}
	if !finite(price) || price < 0 {
		errs = append(errs, errors.New("current_price must be a number, 0 or greater"))
	}
	if !seller.Valid() {
		errs = append(errs, fmt.Errorf("invalid current_seller %q", seller))
	}
	if threshold < 0 {
		errs = append(errs, errors.New("low_stock_threshold must be 0 or greater"))
	}
	if quantity < 0 {
		errs = append(errs, errors.New("quantity_in_stock must be 0 or greater"))
	}
	return errors.Join(errs...)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
