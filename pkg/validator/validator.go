// pkg/validator/validator.go
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var ninPattern = regexp.MustCompile(`^\d{11}$`)
var bvnPattern = regexp.MustCompile(`^\d{11}$`)
var phonePattern = regexp.MustCompile(`^\+?234\d{10}$|^0\d{10}$`)

// Init registers custom validators on gin's binding engine.
func Init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterValidation("nin", func(fl validator.FieldLevel) bool {
		return ninPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("bvn", func(fl validator.FieldLevel) bool {
		return bvnPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("ng_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}
