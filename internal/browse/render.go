package browse

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/philanthrohub/directory/internal/db/models"
)

// loadingPlaceholders is how many skeleton cards the loading state shows.
const loadingPlaceholders = 6

// Theme is the palette used by Renderer. Colors are ANSI 256 codes.
type Theme struct {
	Title    lipgloss.Color
	Text     lipgloss.Color
	Faint    lipgloss.Color
	Category lipgloss.Color
	Tag      lipgloss.Color
	Verified lipgloss.Color
	Error    lipgloss.Color
	Border   lipgloss.Color
}

// DefaultTheme suits a dark terminal.
var DefaultTheme = Theme{
	Title:    lipgloss.Color("255"),
	Text:     lipgloss.Color("252"),
	Faint:    lipgloss.Color("245"),
	Category: lipgloss.Color("75"),
	Tag:      lipgloss.Color("141"),
	Verified: lipgloss.Color("114"),
	Error:    lipgloss.Color("196"),
	Border:   lipgloss.Color("240"),
}

// Renderer draws views for one output.
type Renderer struct {
	card     lipgloss.Style
	name     lipgloss.Style
	category lipgloss.Style
	country  lipgloss.Style
	body     lipgloss.Style
	tag      lipgloss.Style
	verified lipgloss.Style
	faint    lipgloss.Style
	errStyle lipgloss.Style
	chip     lipgloss.Style
}

// NewRenderer returns a renderer whose color support is detected from w.
func NewRenderer(w io.Writer, theme Theme) *Renderer {
	return newRenderer(lipgloss.NewRenderer(w), theme)
}

// NewPlainRenderer returns a renderer that never emits color escapes.
func NewPlainRenderer(w io.Writer) *Renderer {
	lr := lipgloss.NewRenderer(w)
	lr.SetColorProfile(termenv.Ascii)
	return newRenderer(lr, DefaultTheme)
}

func newRenderer(lr *lipgloss.Renderer, theme Theme) *Renderer {
	return &Renderer{
		card: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1).
			Width(72),
		name:     lr.NewStyle().Bold(true).Foreground(theme.Title),
		category: lr.NewStyle().Foreground(theme.Category),
		country:  lr.NewStyle().Foreground(theme.Faint),
		body:     lr.NewStyle().Foreground(theme.Text),
		tag:      lr.NewStyle().Foreground(theme.Tag),
		verified: lr.NewStyle().Foreground(theme.Verified),
		faint:    lr.NewStyle().Foreground(theme.Faint),
		errStyle: lr.NewStyle().Bold(true).Foreground(theme.Error),
		chip:     lr.NewStyle().Foreground(theme.Category).Padding(0, 1),
	}
}

// Render draws the whole listing for v.
func (r *Renderer) Render(v View) string {
	var sb strings.Builder
	sb.WriteString(r.header(v))
	sb.WriteString("\n\n")

	switch v.Status {
	case StatusLoading:
		for i := 0; i < loadingPlaceholders; i++ {
			sb.WriteString(r.card.Render(r.faint.Render(LoadingMessage)))
			sb.WriteString("\n")
		}
	case StatusError:
		sb.WriteString(r.errStyle.Render(ErrorMessage))
		sb.WriteString("\n")
		if v.Err != nil {
			sb.WriteString(r.faint.Render(v.Err.Error()))
			sb.WriteString("\n")
		}
	case StatusEmpty:
		sb.WriteString(r.name.Render(v.EmptyMessage()))
		sb.WriteString("\n")
		sb.WriteString(r.faint.Render(EmptyHint))
		sb.WriteString("\n")
	case StatusResults:
		for _, org := range v.Organizations {
			sb.WriteString(r.Card(org))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (r *Renderer) header(v View) string {
	parts := []string{}
	if v.Status == StatusResults || v.Status == StatusEmpty {
		parts = append(parts, fmt.Sprintf("%d of %d organizations", len(v.Organizations), v.Total))
	}
	if v.Filters.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("search: %q", v.Filters.SearchQuery))
	}
	line := r.faint.Render(strings.Join(parts, "  "))

	if len(v.Filters.SelectedCategories) == 0 {
		return line
	}
	chips := make([]string, len(v.Filters.SelectedCategories))
	for i, c := range v.Filters.SelectedCategories {
		chips[i] = r.chip.Render("[x] " + c)
	}
	return line + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

// Card draws one organization.
func (r *Renderer) Card(org models.Organization) string {
	title := r.name.Render(org.Name) + "  " + r.category.Render(org.Category)
	if org.Country != "" {
		title += "  " + r.country.Render(org.Country)
	}

	lines := []string{title}
	if org.Description != "" {
		lines = append(lines, r.body.Render(org.Description))
	}
	if len(org.Tags) > 0 {
		tags := make([]string, len(org.Tags))
		for i, t := range org.Tags {
			if t == models.TagVerified {
				tags[i] = r.verified.Render("#" + t)
			} else {
				tags[i] = r.tag.Render("#" + t)
			}
		}
		lines = append(lines, strings.Join(tags, " "))
	}
	if org.Website != "" {
		lines = append(lines, r.faint.Render(org.Website))
	}
	return r.card.Render(strings.Join(lines, "\n"))
}

// RenderCategories lists categories one per line, marking the selected ones.
func (r *Renderer) RenderCategories(categories, selected []string) string {
	chosen := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		chosen[s] = struct{}{}
	}

	var sb strings.Builder
	for _, c := range categories {
		mark := "[ ]"
		if _, ok := chosen[c]; ok {
			mark = "[x]"
		}
		sb.WriteString(r.chip.Render(mark + " " + c))
		sb.WriteString("\n")
	}
	return sb.String()
}
