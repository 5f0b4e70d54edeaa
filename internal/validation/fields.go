package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"inkwell/internal/models"
)

// Fields collects per-field messages the way a bound form does. The first message per field wins.
type Fields map[string]string

// Add records msg for field unless the field already has a message.
func (f Fields) Add(field, msg string) {
	if _, exists := f[field]; !exists {
		f[field] = msg
	}
}

// Check records the error returned by a validator.
func (f Fields) Check(field string, err error) {
	if err != nil {
		f.Add(field, err.Error())
	}
}

// Required flags blank values.
func (f Fields) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.Add(field, "This field is required.")
	}
}

// MaxLength flags values longer than max characters.
func (f Fields) MaxLength(field, value string, max int) {
	if n := utf8.RuneCountInString(value); n > max {
		f.Add(field, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n))
	}
}

// OptionalEmail validates value only when it is non-empty.
func (f Fields) OptionalEmail(field, value string) {
	if value != "" {
		f.Check(field, ValidateEmail(value))
	}
}

// Err returns a field validation AppError, or nil when nothing was recorded.
func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return models.NewFieldValidationError(f)
}
