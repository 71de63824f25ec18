// Package validator wraps go-playground/validator with JSON field names and the marketplace tags:
//
//	locale             one of the supported locale codes (en, hi, ta)
//	role               customer, farmer or admin
//	notification_type  one of the notification types
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/models"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError is a single failed rule.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors collects every failed rule of one struct.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	var b strings.Builder
	for i, err := range v {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Field + " failed on " + err.Tag)
		if err.Param != "" {
			b.WriteString("=" + err.Param)
		}
	}
	return b.String()
}

// ValidateStruct runs the struct's validate tags. Rule failures come back as ValidationErrors.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	failures := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

// RegisterValidation adds a custom rule.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		rules := map[string]validator.Func{
			"locale": func(fl validator.FieldLevel) bool {
				return i18n.IsSupported(fl.Field().String())
			},
			"role": func(fl validator.FieldLevel) bool {
				return models.Role(fl.Field().String()).Valid()
			},
			"notification_type": func(fl validator.FieldLevel) bool {
				return models.NotificationType(fl.Field().String()).Valid()
			},
		}
		for tag, fn := range rules {
			if err := validate.RegisterValidation(tag, fn); err != nil {
				panic(err)
			}
		}
	})
	return validate
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
