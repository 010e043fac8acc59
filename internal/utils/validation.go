package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// validate is shared across requests; validator.New is expensive enough
// that a per-call instance shows up under load.
var validate = validator.New()

// Validate checks a struct's validator tags. Gin's binding already runs
// the tags on bound request bodies; this is the pass for structs built in
// code.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FormatValidationError flattens validator errors into a single message
// naming each offending field and the rule it broke.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		parts := make([]string, 0, len(errs))
		for _, e := range errs {
			parts = append(parts, fmt.Sprintf("%s failed on the %s rule", e.Field(), e.Tag()))
		}
		return strings.Join(parts, ", ")
	}
	return err.Error()
}

// BindAndValidate binds the JSON request body into obj and validates it,
// answering with a BadRequest and returning false on either failure.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		BadRequest(c, "Invalid request payload: "+err.Error())
		return false
	}
	if err := Validate(obj); err != nil {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return false
	}
	return true
}
