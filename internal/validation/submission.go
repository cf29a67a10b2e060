// submission.go validates application wizard submissions field by field and
// reports one human-readable message per failing field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/philanthrohub/directory/internal/db/models"
)

// Field keys reported in FieldErrors. Nested fields use dotted paths.
const (
	FieldName                  = "name"
	FieldWebsite               = "website"
	FieldCountry               = "country"
	FieldCategory              = "category"
	FieldOtherCategory         = "otherCategory"
	FieldDescription           = "description"
	FieldCompliance            = "compliance"
	FieldComplianceOtherDetail = "compliance.otherDescription"
	FieldContactEmail          = "contactEmail"
)

// minFreeTextLen applies to the free-text "Other" category and document name.
const minFreeTextLen = 3

var fieldMessages = map[string]string{
	FieldName:                  "Organization name is required and must be at least 3 characters",
	FieldWebsite:               "Please enter a valid website URL (starting with http:// or https://)",
	FieldCountry:               "Please select a country of operation",
	FieldCategory:              "Please select a primary category",
	FieldOtherCategory:         "Please specify your category",
	FieldDescription:           "Please provide a description of at least 20 characters",
	FieldCompliance:            "Please select at least one verification document to proceed",
	FieldComplianceOtherDetail: "Please specify the name of the document",
	FieldContactEmail:          "Please enter a valid email address",
}

// FieldErrors maps a field key to the message shown next to that field.
type FieldErrors map[string]string

// Error implements error with a stable, sorted rendering of the failing fields.
func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, f[k])
	}
	return strings.Join(parts, "; ")
}

// SubmissionValidator checks wizard submissions. It is safe for concurrent use.
type SubmissionValidator struct {
	validate *validator.Validate
}

// NewSubmissionValidator builds a validator with the submission rules registered.
func NewSubmissionValidator() *SubmissionValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so keys line up with the request payload.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(submissionRules, models.Submission{})
	v.RegisterStructValidation(complianceRules, models.Compliance{})

	return &SubmissionValidator{validate: v}
}

// Validate returns nil when s is acceptable, or FieldErrors describing every
// failing field.
func (sv *SubmissionValidator) Validate(s models.Submission) error {
	err := sv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate submission: %w", err)
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe.Namespace())
		msg, ok := fieldMessages[key]
		if !ok {
			msg = fmt.Sprintf("failed %q check", fe.Tag())
		}
		out[key] = msg
	}
	return out
}

// fieldKey drops the leading struct type name from a validator namespace.
func fieldKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func submissionRules(sl validator.StructLevel) {
	s := sl.Current().Interface().(models.Submission)

	if s.Category == models.CategoryOther && utf8.RuneCountInString(s.OtherCategory) < minFreeTextLen {
		sl.ReportError(s.OtherCategory, FieldOtherCategory, "OtherCategory", "other_category", "")
	}
	if !s.Compliance.AnySelected() {
		sl.ReportError(s.Compliance, FieldCompliance, "Compliance", "one_document", "")
	}
}

func complianceRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(models.Compliance)

	if c.Other && utf8.RuneCountInString(c.OtherDescription) < minFreeTextLen {
		sl.ReportError(c.OtherDescription, "otherDescription", "OtherDescription", "other_document", "")
	}
}
