package driving

import "github.com/custodia-labs/docscan/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.Settings, error)

	// Set stores a single value by dotted key, e.g. "processing.dpi".
	Set(key, value string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// Path returns the configuration file path.
	Path() string
}
