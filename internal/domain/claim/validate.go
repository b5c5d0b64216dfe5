package claim

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validateOnce    sync.Once
	requestValidate *validator.Validate
)

// validatorInstance returns the shared validator. Decimals are validated through
// their sign so that tags like "nonnegative" never go through a float.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return int64(d.Sign())
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("nonnegative", func(fl validator.FieldLevel) bool {
			return fl.Field().Int() >= 0
		})
		requestValidate = v
	})
	return requestValidate
}

// Bounds on every request decimal. Values are checked on their exponent and
// coefficient only, never rendered or rescaled, so an input like 1e-50000000
// is refused without being expanded.
const (
	MaxScale         = 12
	MaxIntegerDigits = 15
)

// Validate enforces the request preconditions: at least one item, and no
// negative claimed amount, excess or co-pay rate. An empty item list is
// reported before any negative value, and both before an out of range one.
func Validate(req Request) error {
	err := validatorInstance().Struct(req)
	if err == nil {
		return checkBounds(req)
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}

	var negative *ValidationError
	for _, fe := range vErrs {
		switch fe.Tag() {
		case "required", "min":
			return &ValidationError{Kind: ErrEmptyClaim, Field: fe.Namespace()}
		case "nonnegative":
			if negative == nil {
				negative = &ValidationError{Kind: ErrNegativeValue, Field: fe.Namespace()}
			}
		}
	}
	if negative != nil {
		return negative
	}
	return err
}

// checkBounds rejects decimals with more than MaxScale fractional digits or
// more than MaxIntegerDigits integer digits.
func checkBounds(req Request) error {
	for i, item := range req.ClaimItems {
		if !inBounds(item.ClaimedAmount) {
			return &ValidationError{Kind: ErrOutOfRange, Field: fmt.Sprintf("Request.ClaimItems[%d].ClaimedAmount", i)}
		}
	}
	scalars := []struct {
		field string
		value decimal.Decimal
	}{
		{"Request.PolicyLimit", req.PolicyLimit},
		{"Request.Excess", req.Excess},
		{"Request.CoPayRate", req.CoPayRate},
	}
	for _, sc := range scalars {
		if !inBounds(sc.value) {
			return &ValidationError{Kind: ErrOutOfRange, Field: sc.field}
		}
	}
	return nil
}

func inBounds(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < -MaxScale {
		return false
	}
	return int64(d.NumDigits())+exp <= MaxIntegerDigits
}
