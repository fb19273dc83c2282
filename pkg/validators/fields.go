package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonName)
	}
}

// jsonName reports fields by the name clients send them under
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}

	return name
}

// Fields checks the binding tags of v with the same validator gin binds
// request bodies with
func Fields(v any) error {
	return FieldsError(binding.Validator.ValidateStruct(v))
}

// FieldsError turns tag validation failures into one readable error. Other
// errors are returned as they are.
func FieldsError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required.", fe.Field()))
		case "min":
			if fe.Param() == "1" {
				msgs = append(msgs, fmt.Sprintf("%s may not be blank.", fe.Field()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters long.", fe.Field(), fe.Param()))
			}
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters long.", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s.", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid.", fe.Field()))
		}
	}

	return errors.New(strings.Join(msgs, " "))
}
