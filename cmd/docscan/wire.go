package main

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docscan/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docscan/internal/adapters/driven/imagenorm"
	"github.com/custodia-labs/docscan/internal/adapters/driven/ocr/tesseract"
	"github.com/custodia-labs/docscan/internal/adapters/driven/raster"
	"github.com/custodia-labs/docscan/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docscan/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docscan/internal/adapters/driving/cli"
	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driven"
	"github.com/custodia-labs/docscan/internal/core/services"
	"github.com/custodia-labs/docscan/internal/logger"
)

// stores groups the repositories selected by the storage driver.
type stores struct {
	documents driven.DocumentStore
	counters  driven.StatsStore
	scheduler driven.SchedulerStore
	close     func() error
}

// bootstrap loads settings and wires every service the commands use.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)

	cfg, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", configStore.Path(), err)
	}

	st, err := openStores(cfg.Storage, filepath.Dir(configStore.Path()))
	if err != nil {
		return nil, err
	}

	progress := services.NewProgressBroadcaster()
	live := services.NewLiveSearchNotifier()
	stats := services.NewStatsService(st.documents, st.counters, cfg.Stats.MinInterval, cfg.Stats.Burst)

	recogniser := services.NewPageRecogniser(
		tesseract.NewEngine(),
		imagenorm.NewNormaliser(),
		progress,
		cfg.Storage.UploadDir,
	)
	pipeline := services.NewPipeline(
		st.documents,
		raster.NewRasterizer(cfg.Processing.DPI),
		recogniser,
		progress,
		live,
		stats,
		services.PipelineConfig{
			UploadDir: cfg.Storage.UploadDir,
			Retry: services.RetryPolicy{
				MaxAttempts: cfg.Processing.MaxAttempts,
				Delay:       cfg.Processing.RetryDelay,
			},
		},
	)
	dispatcher := services.NewDispatcher(pipeline, cfg.Processing.MaxConcurrentRuns)

	documents := services.NewDocumentService(st.documents, raster.NewValidator(), dispatcher, services.DocumentServiceConfig{
		UploadDir:       cfg.Storage.UploadDir,
		DefaultLanguage: cfg.Processing.DefaultLanguage,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes,
	})

	logger.Debug("storage: %s, uploads: %s", cfg.Storage.Driver, cfg.Storage.UploadDir)

	return &cli.Services{
		Documents:  documents,
		Search:     services.NewSearchService(st.documents, stats),
		Stats:      stats,
		Settings:   settingsService,
		Progress:   progress,
		LiveSearch: live,
		Dispatcher: dispatcher,
		Scheduler:  services.NewScheduler(cfg.Scheduler, st.scheduler, st.documents, dispatcher, cfg.Storage.UploadDir),
		Config:     cfg,
		Close:      st.close,
	}, nil
}

// openStores opens the repositories for the configured driver. A relative
// database path is resolved against configDir.
func openStores(cfg domain.StorageSettings, configDir string) (*stores, error) {
	if cfg.Driver == domain.StorageMemory {
		logger.Warn("memory storage: documents are lost when docscan exits")
		return &stores{
			documents: memory.NewDocumentStore(),
			counters:  memory.NewStatsStore(),
			scheduler: memory.NewSchedulerStore(),
			close:     func() error { return nil },
		}, nil
	}

	dbPath := cfg.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(configDir, dbPath)
	}
	store, err := sqlite.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &stores{
		documents: store.DocumentStore(),
		counters:  store.StatsStore(),
		scheduler: store.SchedulerStore(),
		close:     store.Close,
	}, nil
}
