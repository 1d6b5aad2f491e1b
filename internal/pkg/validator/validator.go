package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their request name so errors match the body or query,
	// both here and in gin's binding validator.
	validate.RegisterTagNameFunc(requestName)
	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		engine.RegisterTagNameFunc(requestName)
	}

	// Decimals are validated through their string form.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation("money_positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
}

func requestName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

// Validate returns field -> failed tag, or nil when v is valid.
func Validate(v interface{}) map[string]string {
	return Fields(validate.Struct(v))
}

// Fields converts a validation or binding error into field -> failed tag.
// Errors that name no field, such as malformed JSON, are reported under "_".
func Fields(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
