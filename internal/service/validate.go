package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

var validate = newValidator()

var (
	stringPtrType      = reflect.TypeOf((*string)(nil))
	optionalStringType = reflect.TypeOf(domain.Optional[string]{})
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		o, ok := field.Interface().(domain.Optional[string])
		if !ok || !o.Set || o.Null {
			return nil
		}
		return o.Value
	}, domain.Optional[string]{})
	return v
}

// validateStruct checks struct tags and reports the first violation as
// VALIDATION.INVALID_FIELD.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.InvalidField(fe.Field(), fieldMessage(fe))
	}
	return domain.InvalidField("", err.Error())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// validatePayload trims the text fields of the CRM payload s points to and
// then validates it, so tags see the values that will be stored.
func validatePayload(s any) error {
	trimPayload(s)
	return validateStruct(s)
}

// trimPayload trims string, *string and Optional[string] fields in place.
// A blank *string becomes nil and a blank Optional[string] becomes null.
func trimPayload(s any) {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return
	}
	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Type() {
		case stringPtrType:
			if !f.IsNil() {
				f.Set(reflect.ValueOf(optionalText(f.Interface().(*string))))
			}
		case optionalStringType:
			o := f.Interface().(domain.Optional[string])
			if o.Set && !o.Null {
				o.Value = strings.TrimSpace(o.Value)
				if o.Value == "" {
					o = domain.Null[string]()
				}
				f.Set(reflect.ValueOf(o))
			}
		default:
			if f.Kind() == reflect.String {
				f.SetString(strings.TrimSpace(f.String()))
			}
		}
	}
}
