// Package filter combines the directory listing with a free-text query and a
// category selection to produce the visible result set.
//
// Every function here is a pure projection of its inputs: nothing is cached
// and nothing is mutated, so callers may recompute on every change.
package filter

import (
	"sort"
	"strings"

	"github.com/philanthrohub/directory/internal/db/models"
)

// Filter returns the organizations matching both the text query and the
// category selection, in their original relative order.
//
// The query matches case-insensitively as a substring of the name, the
// category or any tag. An empty query matches everything. Whitespace in the
// query is significant. An empty selection admits every category; otherwise
// the organization's category must be selected exactly as stored.
func Filter(orgs []models.Organization, query string, selected []string) []models.Organization {
	q := strings.ToLower(query)
	allowed := categorySet(selected)

	out := make([]models.Organization, 0, len(orgs))
	for _, org := range orgs {
		if !matchesCategory(org, allowed) || !matchesText(org, q) {
			continue
		}
		out = append(out, org)
	}
	return out
}

// Categories returns the distinct categories present in orgs, sorted ascending.
func Categories(orgs []models.Organization) []string {
	seen := make(map[string]struct{}, len(orgs))
	out := make([]string, 0)
	for _, org := range orgs {
		if _, ok := seen[org.Category]; ok {
			continue
		}
		seen[org.Category] = struct{}{}
		out = append(out, org.Category)
	}
	sort.Strings(out)
	return out
}

// MatchCategories narrows a category list to the entries containing search,
// ignoring case. Order is preserved; an empty search returns every category.
func MatchCategories(categories []string, search string) []string {
	s := strings.ToLower(search)
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if strings.Contains(strings.ToLower(c), s) {
			out = append(out, c)
		}
	}
	return out
}

// matchesText expects q to be lowercased already.
func matchesText(org models.Organization, q string) bool {
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(org.Name), q) ||
		strings.Contains(strings.ToLower(org.Category), q) {
		return true
	}
	for _, tag := range org.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// matchesCategory treats a nil set as "no selection".
func matchesCategory(org models.Organization, allowed map[string]struct{}) bool {
	if allowed == nil {
		return true
	}
	_, ok := allowed[org.Category]
	return ok
}

func categorySet(selected []string) map[string]struct{} {
	if len(selected) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		set[c] = struct{}{}
	}
	return set
}
