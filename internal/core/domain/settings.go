package domain

import (
	"fmt"
	"time"
)

// StorageDriver selects the document repository backend.
type StorageDriver string

// Available storage drivers.
const (
	// StorageSQLite persists documents in a SQLite database.
	StorageSQLite StorageDriver = "sqlite"

	// StorageMemory keeps documents in process memory only.
	StorageMemory StorageDriver = "memory"
)

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	return d == StorageSQLite || d == StorageMemory
}

// String returns the string representation.
func (d StorageDriver) String() string {
	return string(d)
}

// ServerSettings configures the HTTP server.
type ServerSettings struct {
	// Addr is the listen address, e.g. ":5001".
	Addr string

	// MaxUploadBytes bounds the size of an uploaded file.
	MaxUploadBytes int64

	// KeepAlive is the interval between SSE comment frames.
	KeepAlive time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// EventWriteTimeout bounds a single SSE write. A client that stops
	// reading is dropped once it expires.
	EventWriteTimeout time.Duration

	// EventBuffer is the number of frames queued per SSE client before the
	// client is dropped as too slow.
	EventBuffer int
}

// StorageSettings configures where documents and uploads live.
type StorageSettings struct {
	// Driver is the repository backend.
	Driver StorageDriver

	// UploadDir holds stored uploads, thumbnails and per-run page images.
	UploadDir string

	// DatabasePath is the SQLite file. Relative paths are resolved
	// against the config directory.
	DatabasePath string
}

// ProcessingSettings configures the OCR pipeline.
type ProcessingSettings struct {
	// MaxConcurrentRuns bounds how many documents are processed at once.
	MaxConcurrentRuns int

	// MaxAttempts is the number of tries per page.
	MaxAttempts int

	// RetryDelay is the fixed pause between page attempts.
	RetryDelay time.Duration

	// DPI is the PDF rasterisation resolution.
	DPI int

	// DefaultLanguage is the OCR language for new uploads.
	DefaultLanguage string
}

// StatsSettings configures global statistics broadcasts.
type StatsSettings struct {
	// MinInterval is the minimum spacing between broadcasts.
	MinInterval time.Duration

	// Burst is how many broadcasts may happen back to back.
	Burst int
}

// InboxSettings configures the watched drop folder.
type InboxSettings struct {
	// Enabled turns the inbox watcher on.
	Enabled bool

	// Dir is the watched directory.
	Dir string
}

// Settings holds all application settings.
type Settings struct {
	Server     ServerSettings
	Storage    StorageSettings
	Processing ProcessingSettings
	Stats      StatsSettings
	Inbox      InboxSettings
	Scheduler  SchedulerConfig
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:              ":5001",
			MaxUploadBytes:    50 << 20,
			KeepAlive:         15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			EventWriteTimeout: 10 * time.Second,
			EventBuffer:       64,
		},
		Storage: StorageSettings{
			Driver:       StorageSQLite,
			UploadDir:    "uploads",
			DatabasePath: "docscan.db",
		},
		Processing: ProcessingSettings{
			MaxConcurrentRuns: 2,
			MaxAttempts:       2,
			RetryDelay:        time.Second,
			DPI:               300,
			DefaultLanguage:   DefaultLanguage,
		},
		Stats: StatsSettings{
			MinInterval: 250 * time.Millisecond,
			Burst:       1,
		},
		Inbox: InboxSettings{
			Enabled: false,
			Dir:     "inbox",
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

// Validate checks settings for values the services cannot run with.
func (s Settings) Validate() error {
	if !s.Storage.Driver.IsValid() {
		return fmt.Errorf("%w: storage driver %q", ErrInvalidInput, s.Storage.Driver)
	}
	if s.Storage.UploadDir == "" {
		return fmt.Errorf("%w: upload dir is empty", ErrInvalidInput)
	}
	if s.Server.EventBuffer < 1 {
		return fmt.Errorf("%w: event buffer must be at least 1", ErrInvalidInput)
	}
	if s.Processing.MaxConcurrentRuns < 1 {
		return fmt.Errorf("%w: max concurrent runs must be at least 1", ErrInvalidInput)
	}
	if s.Processing.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidInput)
	}
	if s.Processing.DPI <= 0 {
		return fmt.Errorf("%w: dpi must be positive", ErrInvalidInput)
	}
	if s.Inbox.Enabled && s.Inbox.Dir == "" {
		return fmt.Errorf("%w: inbox enabled without a directory", ErrInvalidInput)
	}
	return nil
}
