// Package models - submission.go defines the payload posted by the multi-step
// application wizard.
package models

// CategoryOther is the wizard category that requires a free-text OtherCategory.
const CategoryOther = "Other"

// Countries lists the countries of operation offered by the wizard.
var Countries = []string{"Global", "India", "USA", "UK", "Canada", "Australia", "Other"}

// SubmissionCategories lists the primary categories offered by the wizard.
var SubmissionCategories = []string{
	"Education",
	"Healthcare",
	"Environment",
	"Animal Welfare",
	"Human Rights",
	"Disaster Relief",
	CategoryOther,
}

// Compliance records which verification documents an applicant can provide.
type Compliance struct {
	FCRA             bool   `json:"fcra" yaml:"fcra"`
	TaxExempt        bool   `json:"taxExempt" yaml:"taxExempt"`
	AnnualReports    bool   `json:"annualReports" yaml:"annualReports"`
	Other            bool   `json:"other" yaml:"other"`
	OtherDescription string `json:"otherDescription,omitempty" yaml:"otherDescription,omitempty"`
}

// AnySelected reports whether at least one document is checked.
func (c Compliance) AnySelected() bool {
	return c.FCRA || c.TaxExempt || c.AnnualReports || c.Other
}

// Submission is the final payload of the application wizard.
type Submission struct {
	Name          string     `json:"name" yaml:"name" validate:"min=3"`
	Website       string     `json:"website" yaml:"website" validate:"required,http_url"`
	Country       string     `json:"country" yaml:"country" validate:"required"`
	Category      string     `json:"category" yaml:"category" validate:"required"`
	OtherCategory string     `json:"otherCategory,omitempty" yaml:"otherCategory,omitempty"`
	Description   string     `json:"description" yaml:"description" validate:"min=20"`
	Compliance    Compliance `json:"compliance" yaml:"compliance"`
	ContactEmail  string     `json:"contactEmail" yaml:"contactEmail" validate:"required,email"`
}

// ResolvedCategory is the category the organization is listed under: the
// free-text OtherCategory when "Other" was picked, the picked value otherwise.
func (s Submission) ResolvedCategory() string {
	if s.Category == CategoryOther {
		return s.OtherCategory
	}
	return s.Category
}
