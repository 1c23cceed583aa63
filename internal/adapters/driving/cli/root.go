// Package cli provides the docscan command line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

// Global flags.
var (
	verbose   bool
	configDir string
	logFormat string
)

// Services used by commands. Set by the bootstrap hook or by tests.
var (
	documentService   driving.DocumentService
	searchService     driving.SearchService
	statsService      driving.StatsService
	settingsService   driving.SettingsService
	progressService   driving.ProgressService
	liveSearchService driving.LiveSearchService
	dispatcher        driving.Dispatcher
	scheduler         driving.Scheduler
	settings          *domain.Settings
	closeServices     func() error
)

// Options are the global flag values handed to the bootstrap hook.
type Options struct {
	ConfigDir string
}

// Services bundles everything a command may need.
type Services struct {
	Documents  driving.DocumentService
	Search     driving.SearchService
	Stats      driving.StatsService
	Settings   driving.SettingsService
	Progress   driving.ProgressService
	LiveSearch driving.LiveSearchService
	Dispatcher driving.Dispatcher
	Scheduler  driving.Scheduler

	// Config is the resolved configuration the services were built with.
	Config *domain.Settings

	// Close releases storage. May be nil.
	Close func() error
}

// Bootstrap builds the services once flags are parsed.
type Bootstrap func(opts Options) (*Services, error)

var bootstrap Bootstrap

// SetBootstrap installs the hook that wires services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "docscan",
	Short: "OCR document processing with live progress and search",
	Long: `docscan turns uploaded PDFs and images into searchable text.

Run 'docscan serve' for the HTTP API with live progress streams, or
'docscan process FILE' to recognise a single document from the terminal.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.docscan)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatConsole, "Log format: console or json")
}

// Execute runs the root command. Cancelling ctx stops long-running
// commands such as serve.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if err := logger.SetFormat(logFormat); err != nil {
		return err
	}

	if cmd.Annotations[skipBootstrap] == "true" || bootstrap == nil || documentService != nil {
		return nil
	}

	svc, err := bootstrap(Options{ConfigDir: configDir})
	if err != nil {
		return fmt.Errorf("starting docscan: %w", err)
	}
	if svc == nil {
		return errors.New("bootstrap returned no services")
	}
	apply(svc)
	return nil
}

func apply(svc *Services) {
	documentService = svc.Documents
	searchService = svc.Search
	statsService = svc.Stats
	settingsService = svc.Settings
	progressService = svc.Progress
	liveSearchService = svc.LiveSearch
	dispatcher = svc.Dispatcher
	scheduler = svc.Scheduler
	settings = svc.Config
	closeServices = svc.Close
}

func teardown() error {
	if closeServices == nil {
		return nil
	}
	closeFn := closeServices
	closeServices = nil
	return closeFn()
}

// currentSettings returns the loaded configuration or defaults.
func currentSettings() domain.Settings {
	if settings != nil {
		return *settings
	}
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			return *s
		}
	}
	return domain.DefaultSettings()
}
