package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// Validator wraps go-playground/validator with the service's custom tags
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// report json names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerRules()
	return v
}

func (v *Validator) registerRules() {
	_ = v.validate.RegisterValidation("option_letter", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseOption(fl.Field().String())
		return ok
	})
	_ = v.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.DifficultyLevel(fl.Field().String()).Valid()
	})
	_ = v.validate.RegisterValidation("pass_percentage", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 0 && n <= 100
	})
	_ = v.validate.RegisterValidation("question_marks", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 1 && n <= 100
	})
}

// Validate returns ValidationErrors, or nil when s is valid
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	default:
		return fmt.Sprintf("validation failed: %d field errors", len(ve))
	}
}

// NewValidationError builds a single-field error for checks done outside struct tags
func NewValidationError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: messageFor(fe),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "option_letter":
		return "must be one of A, B, C, D"
	case "difficulty_level":
		return "must be one of easy, medium, hard"
	case "pass_percentage":
		return "must be between 0 and 100"
	case "question_marks":
		return "must be between 1 and 100"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
