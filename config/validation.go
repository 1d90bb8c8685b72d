package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report koanf key names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every section of cfg and returns the first failure as a
// *ConfigError naming the offending key.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return toConfigError(verrs[0])
}

func toConfigError(fe validator.FieldError) *ConfigError {
	// Namespace is "Config.node.host"; drop the root type name
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	envVar := EnvPrefix + strings.ToUpper(strings.ReplaceAll(field, ".", "_"))

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field, envVar, field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %v", fe.Value()), strings.Fields(fe.Param()))
	case "min":
		return NewValidationError(field, fmt.Sprintf("must be at least %s (got %v)", fe.Param(), fe.Value()))
	case "max":
		return NewValidationError(field, fmt.Sprintf("must be at most %s (got %v)", fe.Param(), fe.Value()))
	case "startswith":
		return NewValidationError(field, fmt.Sprintf("must start with %q (got %q)", fe.Param(), fe.Value()))
	case "file":
		return NewValidationError(field, fmt.Sprintf("file %v does not exist", fe.Value()))
	default:
		return NewValidationError(field, fmt.Sprintf("failed %s validation (got %v)", fe.Tag(), fe.Value()))
	}
}
