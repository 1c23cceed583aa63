package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and configure docscan settings",
	Long: `View and configure docscan settings.

Settings live in config.toml inside the config directory. Any key can be
overridden with an environment variable, e.g. processing.dpi is overridden
by DOCSCAN_PROCESSING_DPI.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a single setting",
	Long: `Change a single setting by its dotted key.

Examples:
  docscan settings set processing.dpi 200
  docscan settings set processing.default_language deu
  docscan settings set inbox.enabled true
  docscan settings set scheduler.temp_cleanup.interval 30m`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runSettingsPath,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Walk through storage, OCR and inbox settings step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docscan settings wizard' to fix configuration issues.")
		return nil
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("Server:")
	cmd.Printf("  Address:          %s\n", s.Server.Addr)
	cmd.Printf("  Max upload:       %d bytes\n", s.Server.MaxUploadBytes)
	cmd.Printf("  SSE keep-alive:   %s\n", s.Server.KeepAlive)
	cmd.Printf("  Shutdown timeout: %s\n", s.Server.ShutdownTimeout)
	cmd.Printf("  SSE write limit:  %s (%d frames queued)\n", s.Server.EventWriteTimeout, s.Server.EventBuffer)
	cmd.Println()

	cmd.Println("Storage:")
	cmd.Printf("  Driver:     %s\n", s.Storage.Driver)
	cmd.Printf("  Upload dir: %s\n", s.Storage.UploadDir)
	if s.Storage.Driver == domain.StorageSQLite {
		cmd.Printf("  Database:   %s\n", s.Storage.DatabasePath)
	}
	cmd.Println()

	cmd.Println("Processing:")
	cmd.Printf("  Language:        %s\n", s.Processing.DefaultLanguage)
	cmd.Printf("  DPI:             %d\n", s.Processing.DPI)
	cmd.Printf("  Concurrent runs: %d\n", s.Processing.MaxConcurrentRuns)
	cmd.Printf("  Page attempts:   %d (%s apart)\n", s.Processing.MaxAttempts, s.Processing.RetryDelay)
	cmd.Println()

	cmd.Println("Inbox:")
	if s.Inbox.Enabled {
		cmd.Printf("  Enabled: yes\n")
		cmd.Printf("  Dir:     %s\n", s.Inbox.Dir)
	} else {
		cmd.Printf("  Enabled: no\n")
	}
	cmd.Println()

	cmd.Println("Scheduler:")
	if s.Scheduler.Enabled {
		cmd.Printf("  Enabled:     yes\n")
		cmd.Printf("  Stale after: %s\n", s.Scheduler.StaleAfter)
		for _, id := range []string{domain.TaskIDStaleRunRecovery, domain.TaskIDTempCleanup} {
			task := s.Scheduler.GetTaskConfig(id)
			state := "off"
			if task.Enabled {
				state = "every " + task.Interval.String()
			}
			cmd.Printf("  %s: %s\n", id, state)
		}
	} else {
		cmd.Printf("  Enabled: no\n")
	}
	cmd.Println()

	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println(settingsService.Path())
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	current, err := settingsService.Get()
	if err != nil {
		defaults := settingsService.GetDefaults()
		current = &defaults
	}

	cmd.Println("docscan Settings Wizard")
	cmd.Println("=======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Storage
	cmd.Println("Step 1: Select Storage")
	cmd.Println("----------------------")
	drivers := []domain.StorageDriver{domain.StorageSQLite, domain.StorageMemory}
	defaultDriver := 1
	for i, d := range drivers {
		cmd.Printf("  %d. %s\n", i+1, d)
		if d == current.Storage.Driver {
			defaultDriver = i + 1
		}
	}
	cmd.Printf("\nEnter choice [%d]: ", defaultDriver)
	driver := drivers[parseChoice(readLine(reader), len(drivers), defaultDriver)-1]
	if err := settingsService.Set("storage.driver", driver.String()); err != nil {
		return fmt.Errorf("failed to set storage driver: %w", err)
	}
	cmd.Printf("Storage set to: %s\n\n", driver)

	// Step 2: OCR
	cmd.Println("Step 2: OCR")
	cmd.Println("-----------")
	cmd.Printf("Default language [%s]: ", current.Processing.DefaultLanguage)
	if lang := readLine(reader); lang != "" {
		if err := settingsService.Set("processing.default_language", lang); err != nil {
			return fmt.Errorf("failed to set language: %w", err)
		}
	}
	cmd.Printf("PDF resolution in DPI [%d]: ", current.Processing.DPI)
	if dpi := readLine(reader); dpi != "" {
		if err := settingsService.Set("processing.dpi", dpi); err != nil {
			return fmt.Errorf("failed to set DPI: %w", err)
		}
	}
	cmd.Printf("Documents processed at once [%d]: ", current.Processing.MaxConcurrentRuns)
	if runs := readLine(reader); runs != "" {
		if err := settingsService.Set("processing.max_concurrent_runs", runs); err != nil {
			return fmt.Errorf("failed to set concurrent runs: %w", err)
		}
	}
	cmd.Println()

	// Step 3: Inbox
	cmd.Println("Step 3: Inbox")
	cmd.Println("-------------")
	cmd.Println("  1. Disabled")
	cmd.Println("  2. Watch a folder for new files")
	defaultInbox := 1
	if current.Inbox.Enabled {
		defaultInbox = 2
	}
	cmd.Printf("\nEnter choice [%d]: ", defaultInbox)
	enabled := parseChoice(readLine(reader), 2, defaultInbox) == 2
	if err := settingsService.Set("inbox.enabled", strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("failed to set inbox: %w", err)
	}
	if enabled {
		cmd.Printf("Inbox folder [%s]: ", current.Inbox.Dir)
		if dir := readLine(reader); dir != "" {
			if err := settingsService.Set("inbox.dir", dir); err != nil {
				return fmt.Errorf("failed to set inbox dir: %w", err)
			}
		}
	}
	cmd.Println()

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if _, err := settingsService.Get(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Printf("All settings are valid and saved to %s.\n", settingsService.Path())
	}

	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}
