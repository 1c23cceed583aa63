package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyServerAddr        = "server.addr"
	keyServerMaxUpload   = "server.max_upload_bytes"
	keyServerKeepAlive   = "server.keep_alive"
	keyServerShutdown    = "server.shutdown_timeout"
	keyServerWriteTO     = "server.event_write_timeout"
	keyServerEventBuffer = "server.event_buffer"
	keyStorageDriver     = "storage.driver"
	keyStorageUploadDir  = "storage.upload_dir"
	keyStorageDatabase   = "storage.database_path"
	keyProcRuns          = "processing.max_concurrent_runs"
	keyProcAttempts      = "processing.max_attempts"
	keyProcRetryDelay    = "processing.retry_delay"
	keyProcDPI           = "processing.dpi"
	keyProcLanguage      = "processing.default_language"
	keyStatsMinInterval  = "stats.min_interval"
	keyStatsBurst        = "stats.burst"
	keyInboxEnabled      = "inbox.enabled"
	keyInboxDir          = "inbox.dir"
	keySchedulerEnabled  = "scheduler.enabled"
	keySchedulerStale    = "scheduler.stale_after"
	schedulerTaskKeyBase = "scheduler."
)

// SettingsService reads application settings from the config store,
// falling back to defaults for anything unset or malformed.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Server: domain.ServerSettings{
			Addr:              s.getString(keyServerAddr, d.Server.Addr),
			MaxUploadBytes:    int64(s.getInt(keyServerMaxUpload, int(d.Server.MaxUploadBytes))),
			KeepAlive:         s.getDuration(keyServerKeepAlive, d.Server.KeepAlive),
			ShutdownTimeout:   s.getDuration(keyServerShutdown, d.Server.ShutdownTimeout),
			EventWriteTimeout: s.getDuration(keyServerWriteTO, d.Server.EventWriteTimeout),
			EventBuffer:       s.getInt(keyServerEventBuffer, d.Server.EventBuffer),
		},
		Storage: domain.StorageSettings{
			Driver:       s.getDriver(d.Storage.Driver),
			UploadDir:    s.getString(keyStorageUploadDir, d.Storage.UploadDir),
			DatabasePath: s.getString(keyStorageDatabase, d.Storage.DatabasePath),
		},
		Processing: domain.ProcessingSettings{
			MaxConcurrentRuns: s.getInt(keyProcRuns, d.Processing.MaxConcurrentRuns),
			MaxAttempts:       s.getInt(keyProcAttempts, d.Processing.MaxAttempts),
			RetryDelay:        s.getDuration(keyProcRetryDelay, d.Processing.RetryDelay),
			DPI:               s.getInt(keyProcDPI, d.Processing.DPI),
			DefaultLanguage:   s.getString(keyProcLanguage, d.Processing.DefaultLanguage),
		},
		Stats: domain.StatsSettings{
			MinInterval: s.getDuration(keyStatsMinInterval, d.Stats.MinInterval),
			Burst:       s.getInt(keyStatsBurst, d.Stats.Burst),
		},
		Inbox: domain.InboxSettings{
			Enabled: s.getBool(keyInboxEnabled, d.Inbox.Enabled),
			Dir:     s.getString(keyInboxDir, d.Inbox.Dir),
		},
		Scheduler: s.getSchedulerConfig(),
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Set stores a single value. The value is converted to the type of the
// key's default so the TOML file keeps native types.
func (s *SettingsService) Set(key, value string) error {
	key = strings.TrimSpace(key)
	var typed any = value

	switch key {
	case keyServerAddr, keyStorageUploadDir, keyStorageDatabase, keyProcLanguage, keyInboxDir:
	case keyStorageDriver:
		if !domain.StorageDriver(value).IsValid() {
			return fmt.Errorf("%w: storage driver %q", domain.ErrInvalidInput, value)
		}
	case keyServerMaxUpload, keyServerEventBuffer, keyProcRuns, keyProcAttempts, keyProcDPI, keyStatsBurst:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case keyInboxEnabled, keySchedulerEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	case keyServerKeepAlive, keyServerShutdown, keyServerWriteTO, keyProcRetryDelay, keyStatsMinInterval, keySchedulerStale:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s expects a duration like 30s", domain.ErrInvalidInput, key)
		}
	default:
		if !s.isTaskKey(key) {
			return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
		}
		if strings.HasSuffix(key, ".enabled") {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
			}
			typed = b
		} else if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s expects a duration like 1h", domain.ErrInvalidInput, key)
		}
	}

	return s.configStore.Set(key, typed)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// taskConfigKeys maps task IDs to their TOML table names.
var taskConfigKeys = map[string]string{
	domain.TaskIDStaleRunRecovery: "stale_run_recovery",
	domain.TaskIDTempCleanup:      "temp_cleanup",
}

func (s *SettingsService) isTaskKey(key string) bool {
	for _, name := range taskConfigKeys {
		prefix := schedulerTaskKeyBase + name + "."
		if key == prefix+"enabled" || key == prefix+"interval" {
			return true
		}
	}
	return false
}

// getSchedulerConfig returns the scheduler configuration.
func (s *SettingsService) getSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(keySchedulerEnabled, cfg.Enabled)
	cfg.StaleAfter = s.getDuration(keySchedulerStale, cfg.StaleAfter)

	for taskID, name := range taskConfigKeys {
		prefix := schedulerTaskKeyBase + name + "."
		taskCfg := cfg.TaskConfigs[taskID]
		taskCfg.Enabled = s.getBool(prefix+"enabled", taskCfg.Enabled)
		taskCfg.Interval = s.getDuration(prefix+"interval", taskCfg.Interval)
		cfg.TaskConfigs[taskID] = taskCfg
	}
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getDriver(defaultVal domain.StorageDriver) domain.StorageDriver {
	val := s.configStore.GetString(keyStorageDriver)
	if val == "" {
		return defaultVal
	}
	driver := domain.StorageDriver(val)
	if !driver.IsValid() {
		return defaultVal
	}
	return driver
}
