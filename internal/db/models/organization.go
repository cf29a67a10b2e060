// Package models - organization.go defines the Organization record listed by the
// directory and the status tags attached to it by the two creation paths.
package models

// Status tags appended after the category on creation.
const (
	TagVerified            = "Verified"
	TagPendingVerification = "Pending Verification"
)

// Organization is a single nonprofit listed in the directory. Records are
// created once and never mutated afterwards.
type Organization struct {
	ID          string   `json:"id" db:"id" yaml:"id"`
	Name        string   `json:"name" db:"name" yaml:"name"`
	Description string   `json:"description" db:"description" yaml:"description"`
	Category    string   `json:"category" db:"category" yaml:"category"`
	Tags        []string `json:"tags" db:"-" yaml:"tags"`
	Country     string   `json:"country,omitempty" db:"country" yaml:"country,omitempty"`
	Website     string   `json:"website" db:"website" yaml:"website"`
	Image       string   `json:"image" db:"image" yaml:"image"`
	Verified    bool     `json:"verified" db:"verified" yaml:"verified"`
}

// Clone returns a deep copy so callers cannot alias a stored record's tags.
func (o Organization) Clone() Organization {
	c := o
	if o.Tags != nil {
		c.Tags = append([]string(nil), o.Tags...)
	}
	return c
}

// HasTag reports whether tag is attached to the organization (exact match).
func (o Organization) HasTag(tag string) bool {
	for _, t := range o.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// CloneAll deep-copies a list of organizations, preserving order.
func CloneAll(orgs []Organization) []Organization {
	if orgs == nil {
		return nil
	}
	out := make([]Organization, len(orgs))
	for i, o := range orgs {
		out[i] = o.Clone()
	}
	return out
}
