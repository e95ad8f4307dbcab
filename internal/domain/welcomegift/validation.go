// internal/domain/welcomegift/validation.go
package welcomegift

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9]{3,32}$`)

// validate reads the same `binding` tags gin checks, so requests built
// outside HTTP get identical rules.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// RegisterValidations adds the welcome-gift rules to v. The HTTP server calls
// it on gin's validator engine.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("couponcode", func(fl validator.FieldLevel) bool {
		return couponCodePattern.MatchString(normalizeCouponCode(fl.Field().String()))
	})
}

// validateStruct runs struct validation and folds field errors into one ErrInvalidInput.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "couponcode":
		return field + " must be 3-32 uppercase letters or digits"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "min", "gte":
		return field + " must be at least " + fe.Param()
	case "max", "lte":
		return field + " must be at most " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	}
	return field + " is invalid"
}

// validateRewardValue enforces the per-type meaning of RewardValue and MaxDiscount.
func validateRewardValue(t RewardType, value float64, maxDiscount *int64) error {
	switch t {
	case RewardPercentage:
		if value <= 0 || value > 100 {
			return fmt.Errorf("%w: percentage reward value must be between 0 and 100", ErrInvalidInput)
		}
	case RewardFixedAmount:
		if value <= 0 {
			return fmt.Errorf("%w: fixed amount reward value must be positive", ErrInvalidInput)
		}
	case RewardBuyOneGetOne, RewardFreeShipping:
		if value < 0 {
			return fmt.Errorf("%w: reward value cannot be negative", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown reward type %q", ErrInvalidInput, t)
	}

	if maxDiscount != nil && *maxDiscount <= 0 {
		return fmt.Errorf("%w: maxDiscount must be positive", ErrInvalidInput)
	}
	return nil
}
