package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

// Test helper functions in settings.go

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestReadLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  deu  \nlast"))
	assert.Equal(t, "deu", readLine(reader))
	assert.Equal(t, "last", readLine(reader))
	assert.Equal(t, "", readLine(reader))
}

func TestSettingsCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range settingsCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"show", "set", "path", "wizard"}, names)
}

func TestSettingsShowCmd_Defaults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "show"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	out := buf.String()
	assert.Contains(t, out, "Address:          :5001")
	assert.Contains(t, out, "Driver:     sqlite")
	assert.Contains(t, out, "Database:   docscan.db")
	assert.Contains(t, out, "Language:        eng")
	assert.Contains(t, out, "DPI:             300")
	assert.Contains(t, out, "Page attempts:   2 (1s apart)")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsSetCmd_UpdatesValue(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "set", "processing.dpi", "200"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Set processing.dpi = 200")

	s, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, 200, s.Processing.DPI)
}

func TestSettingsSetCmd_RejectsUnknownKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "set", "search.mode", "hybrid"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "failed to set search.mode")
}

func TestSettingsSetCmd_RequiresKeyAndValue(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "set", "processing.dpi"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestSettingsPathCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "path"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, ":memory:\n", buf.String())
}

func TestSettingsWizardCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	// memory storage, German, 200 DPI, 3 runs, inbox on in /srv/inbox
	input := strings.NewReader("2\ndeu\n200\n3\n2\n/srv/inbox\n")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(input)
	rootCmd.SetArgs([]string{"settings", "wizard"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "Storage set to: memory")
	assert.Contains(t, buf.String(), "All settings are valid and saved")

	s, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.StorageMemory, s.Storage.Driver)
	assert.Equal(t, "deu", s.Processing.DefaultLanguage)
	assert.Equal(t, 200, s.Processing.DPI)
	assert.Equal(t, 3, s.Processing.MaxConcurrentRuns)
	assert.True(t, s.Inbox.Enabled)
	assert.Equal(t, "/srv/inbox", s.Inbox.Dir)
}

func TestSettingsWizardCmd_KeepsDefaultsOnEmptyInput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs([]string{"settings", "wizard"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	require.NoError(t, rootCmd.Execute())

	s, err := settingsService.Get()
	require.NoError(t, err)
	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Storage.Driver, s.Storage.Driver)
	assert.Equal(t, defaults.Processing.DPI, s.Processing.DPI)
	assert.False(t, s.Inbox.Enabled)
}

func TestSettingsCmds_ServiceNotConfigured(t *testing.T) {
	for _, args := range [][]string{
		{"settings", "show"},
		{"settings", "set", "processing.dpi", "1"},
		{"settings", "path"},
		{"settings", "wizard"},
	} {
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs(args)

		err := rootCmd.Execute()
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "settings service not configured")
	}
	rootCmd.SetArgs(nil)
}
