package services

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MaxCategoryLength and MaxDescriptionLength bound free-text input.
const (
	MaxCategoryLength    = 15
	MaxDescriptionLength = 100
)

var categoryPattern = regexp.MustCompile(`^[\p{L}\p{N} ]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("category", validateCategory)
	return v
}

// validateCategory accepts letters, digits and spaces up to MaxCategoryLength runes.
func validateCategory(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.TrimSpace(s) == "" || utf8.RuneCountInString(s) > MaxCategoryLength {
		return false
	}
	return categoryPattern.MatchString(s)
}

// fieldMessages turns validator errors into one message per field.
func fieldMessages(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["input"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "category":
		return fmt.Sprintf("must be 1-%d letters, digits or spaces", MaxCategoryLength)
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
