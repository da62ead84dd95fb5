package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// NewValidator создает валидатор с тегом notblank и json-именами полей в ошибках.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
	return v
}

// NewValidationError переводит ошибку валидатора в ErrValidationFailed
// с сообщением о первом невалидном поле, например "movie imdbId cannot be empty".
func NewValidationError(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrValidationFailed
	}
	return &Error{ID: ErrValidationFailed.ID, Message: fieldMessage(verrs[0])}
}

func fieldMessage(fe validator.FieldError) string {
	subject := strings.TrimSpace(entityName(fe.StructNamespace()) + " " + fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return subject + " cannot be empty"
	case "min":
		if fe.Kind() == reflect.Slice {
			return subject + " cannot be empty"
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", subject, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be less than or equal to %s", subject, fe.Param())
	default:
		return fmt.Sprintf("%s is not valid (%s)", subject, fe.Tag())
	}
}

func entityName(namespace string) string {
	root, _, _ := strings.Cut(namespace, ".")
	switch {
	case strings.HasPrefix(root, "Movie"):
		return "movie"
	case strings.HasPrefix(root, "Series"):
		return "series"
	case strings.HasPrefix(root, "Review"):
		return "review"
	default:
		return ""
	}
}
