package validation

import (
	"github.com/go-playground/validator/v10"
)

// Tag names usable in struct validation.
const (
	TagNIC            = "nic"
	TagPhone          = "lkphone"
	TagStrongPassword = "strongpassword"
)

// Register installs the donor field rules on v so DTOs can use them as tags.
func Register(v *validator.Validate) error {
	rules := map[string]func(string) (bool, string){
		TagNIC:            ValidateNIC,
		TagPhone:          ValidatePhone,
		TagStrongPassword: ValidatePasswordStrength,
	}
	for tag, rule := range rules {
		rule := rule
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			ok, _ := rule(fl.Field().String())
			return ok
		}); err != nil {
			return err
		}
	}
	return nil
}

// New returns a validator with the donor rules registered.
func New() *validator.Validate {
	v := validator.New()
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}
