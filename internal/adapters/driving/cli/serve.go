package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docscan/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docscan/internal/adapters/driving/inbox"
	"github.com/custodia-labs/docscan/internal/logger"
)

var (
	serveAddr  string
	serveInbox string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with upload, search and document endpoints plus
server-sent event streams for run progress, live search and statistics.

Background maintenance (stale run recovery, page directory cleanup) runs
while the server is up when the scheduler is enabled. With the inbox
enabled, files dropped into the inbox folder are uploaded automatically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, :5001)")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "watch this folder for new files (overrides settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	cfg := currentSettings()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveInbox != "" {
		cfg.Inbox.Enabled = true
		cfg.Inbox.Dir = serveInbox
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Documents:  documentService,
		Search:     searchService,
		Stats:      statsService,
		Progress:   progressService,
		LiveSearch: liveSearchService,
	}, httpapi.Config{
		Addr:              cfg.Server.Addr,
		UploadDir:         cfg.Storage.UploadDir,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		KeepAlive:         cfg.Server.KeepAlive,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		EventWriteTimeout: cfg.Server.EventWriteTimeout,
		EventBuffer:       cfg.Server.EventBuffer,
		Version:           version,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return server.Run(ctx)
	})

	if scheduler != nil && cfg.Scheduler.Enabled {
		g.Go(func() error {
			return ignoreCanceled(scheduler.Start(ctx))
		})
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("scheduler stop error: %v", err)
			}
		}()
	}

	if cfg.Inbox.Enabled {
		watcher := inbox.New(documentService, inbox.Config{
			Dir:      cfg.Inbox.Dir,
			Language: cfg.Processing.DefaultLanguage,
		})
		g.Go(func() error {
			return ignoreCanceled(watcher.Run(ctx))
		})
		cmd.Printf("Watching inbox %s\n", cfg.Inbox.Dir)
	}

	cmd.Printf("docscan listening on %s\n", cfg.Server.Addr)
	err = g.Wait()

	if dispatcher != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if waitErr := waitForRuns(drainCtx); waitErr != nil {
			logger.Warn("runs still active after %s; they will be recovered on next start",
				cfg.Server.ShutdownTimeout.Round(time.Second))
		}
	}
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
