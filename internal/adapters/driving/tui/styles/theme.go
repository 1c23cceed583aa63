// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// Theme defines the colour palette for the progress view.
type Theme struct {
	// Primary is the main accent colour.
	Primary lipgloss.Color

	// Secondary marks the page currently being recognised.
	Secondary lipgloss.Color

	// Foreground is the default text colour.
	Foreground lipgloss.Color

	// Muted is for pending pages and help text.
	Muted lipgloss.Color

	// Success marks recognised pages and completed runs.
	Success lipgloss.Color

	// Warning marks retried pages.
	Warning lipgloss.Color

	// Error marks failed pages and runs.
	Error lipgloss.Color

	// Border is the panel border colour.
	Border lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Secondary:  lipgloss.Color("#06B6D4"), // Cyan
		Foreground: lipgloss.Color("#CDD6F4"), // Light gray
		Muted:      lipgloss.Color("#6C7086"), // Medium gray
		Success:    lipgloss.Color("#A6E3A1"), // Green
		Warning:    lipgloss.Color("#F9E2AF"), // Yellow
		Error:      lipgloss.Color("#F38BA8"), // Red
		Border:     lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	// Title style for the document header.
	Title lipgloss.Style

	// Subtitle style for the run status line.
	Subtitle lipgloss.Style

	// Normal style for regular text.
	Normal lipgloss.Style

	// Muted style for pending pages and details.
	Muted lipgloss.Style

	// Active style for the page being recognised.
	Active lipgloss.Style

	// Error style for failed pages and errors.
	Error lipgloss.Style

	// Success style for recognised pages.
	Success lipgloss.Style

	// Warning style for retries.
	Warning lipgloss.Style

	// Help style for the key help footer.
	Help lipgloss.Style

	// Panel style for the text preview.
	Panel lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Subtitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Normal: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Error: lipgloss.NewStyle().
			Foreground(theme.Error),

		Success: lipgloss.NewStyle().
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Foreground(theme.Warning),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// ForPage returns the style for a page row.
func (s *Styles) ForPage(status domain.PageStatus) lipgloss.Style {
	switch status {
	case domain.PageDone:
		return s.Success
	case domain.PageFailed:
		return s.Error
	case domain.PageProcessing:
		return s.Active
	default:
		return s.Muted
	}
}

// ForDocument returns the style for a document status.
func (s *Styles) ForDocument(status domain.DocumentStatus) lipgloss.Style {
	switch status {
	case domain.DocumentDone:
		return s.Success
	case domain.DocumentFailed:
		return s.Error
	case domain.DocumentProcessing:
		return s.Active
	default:
		return s.Muted
	}
}
