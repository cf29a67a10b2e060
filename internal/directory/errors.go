package directory

import (
	"errors"
	"sort"
	"strings"

	"github.com/philanthrohub/directory/internal/validation"
)

// ErrNameAndCategoryRequired is the message returned when a direct create
// omits either required field.
const ErrNameAndCategoryRequired = "Name and category are required"

// ValidationError reports a rejected create or submission. Message is the
// summary shown to the caller; Fields carries per-field messages when known.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + validation.FieldErrors(e.Fields).Error()
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func newFieldValidationError(fields validation.FieldErrors) *ValidationError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &ValidationError{
		Message: "Invalid submission: " + strings.Join(keys, ", "),
		Fields:  map[string]string(fields),
	}
}
