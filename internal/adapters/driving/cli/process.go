package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docscan/internal/adapters/driving/tui"
	"github.com/custodia-labs/docscan/internal/core/domain"
	"github.com/custodia-labs/docscan/internal/core/ports/driving"
	"github.com/custodia-labs/docscan/internal/logger"
)

var (
	processLanguage string
	processTitle    string
	processPlain    bool

	reprocessLanguage string
	reprocessPlain    bool
)

// interactive reports whether stdout is a terminal. Replaced in tests.
var interactive = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Upload a file and recognise it",
	Long: `Uploads a PDF or image and runs OCR over every page.

On a terminal a live progress view shows each page as it is recognised.
Press q to stop watching; the command still waits for the run to
finish. Use --plain for line-by-line output.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Run OCR again for a stored document",
	Long: `Resets every page of the document and runs OCR again from the stored
upload, optionally in a different language.`,
	Args: cobra.ExactArgs(1),
	RunE: runReprocess,
}

func init() {
	processCmd.Flags().StringVarP(&processLanguage, "language", "l", "", "OCR language (default from settings)")
	processCmd.Flags().StringVarP(&processTitle, "title", "t", "", "document title (default is the file name)")
	processCmd.Flags().BoolVar(&processPlain, "plain", false, "print progress lines instead of the interactive view")

	reprocessCmd.Flags().StringVarP(&reprocessLanguage, "language", "l", "", "switch the OCR language")
	reprocessCmd.Flags().BoolVar(&reprocessPlain, "plain", false, "print progress lines instead of the interactive view")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(reprocessCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := documentService.Upload(cmd.Context(), driving.UploadRequest{
		Filename: filepath.Base(path),
		Title:    processTitle,
		Language: processLanguage,
		Content:  f,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded %s as %s (%s)\n", doc.OriginalFilename, doc.ID, doc.Language)
	return follow(cmd, doc.ID, processPlain)
}

func runReprocess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Reprocess(cmd.Context(), args[0], reprocessLanguage)
	if err != nil {
		return fmt.Errorf("reprocess failed: %w", err)
	}

	cmd.Printf("Reprocessing %s (%s)\n", doc.ID, doc.Language)
	return follow(cmd, doc.ID, reprocessPlain)
}

// follow reports progress of a dispatched run until it ends.
func follow(cmd *cobra.Command, documentID string, plain bool) error {
	if progressService == nil || dispatcher == nil {
		return errors.New("progress service not configured")
	}

	if !plain && interactive() {
		return watchInteractive(cmd, documentID)
	}
	return watchPlain(cmd, documentID)
}

// runProgressView shows the live view until the run ends or the user stops
// watching. It reports the run's result and whether it finished. Replaced in
// tests.
var runProgressView = func(cmd *cobra.Command, documentID string) (tui.Result, bool, error) {
	app, err := tui.NewApp(&tui.Ports{Documents: documentService, Progress: progressService}, documentID)
	if err != nil {
		return tui.Result{}, false, fmt.Errorf("failed to create progress view: %w", err)
	}
	defer app.Close()
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return tui.Result{}, false, fmt.Errorf("progress view error: %w", err)
	}
	if err := app.Err(); err != nil {
		return tui.Result{}, false, err
	}
	return app.Result(), app.Finished(), nil
}

func watchInteractive(cmd *cobra.Command, documentID string) error {
	result, finished, err := runProgressView(cmd, documentID)
	if err != nil {
		return err
	}
	if finished {
		return report(cmd, result)
	}

	// Leaving the view only detaches the observer; the run must not die
	// with the process.
	cmd.Println("Stopped watching. Waiting for the run to finish (Ctrl+C aborts it)...")
	if err := waitForRuns(cmd.Context()); err != nil {
		return err
	}
	doc, err := documentService.Get(cmd.Context(), documentID)
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}
	return report(cmd, tui.ResultOf(doc))
}

func watchPlain(cmd *cobra.Command, documentID string) error {
	ctx := cmd.Context()

	sink := tui.NewChannelSink(64)
	unsubscribe := progressService.Subscribe(documentID, sink)

	var failure string
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for e := range sink.Events() {
			printEvent(cmd, e)
			if e.Kind == domain.ProgressFailed {
				failure = e.Error
			}
		}
	}()

	waitErr := waitForRuns(ctx)
	unsubscribe()
	sink.Close()
	<-printed
	if waitErr != nil {
		return waitErr
	}

	doc, err := documentService.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load result: %w", err)
	}
	result := tui.ResultOf(doc)
	result.Error = failure
	return report(cmd, result)
}

// waitForRuns blocks until the dispatcher is idle or ctx ends.
func waitForRuns(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printEvent(cmd *cobra.Command, e domain.ProgressEvent) {
	switch e.Kind {
	case domain.ProgressProcessing:
		cmd.Println("Processing...")
	case domain.ProgressConverting:
		cmd.Println("Converting PDF to images...")
	case domain.ProgressStartingOCR:
		if e.Attempt > 1 {
			cmd.Printf("Page %d/%d: retrying (attempt %d/%d)\n", e.CurrentPage, e.TotalPages, e.Attempt, e.MaxAttempts)
		} else {
			cmd.Printf("Page %d/%d: recognising\n", e.CurrentPage, e.TotalPages)
		}
	case domain.ProgressPageStep:
		logger.Debug("page %d: %s", e.Page, e.Step)
	case domain.ProgressPageComplete:
		cmd.Printf("Page %d/%d: done (%.1f%% confidence)\n", e.CurrentPage, e.TotalPages, e.Confidence)
	case domain.ProgressPageFailed:
		cmd.Printf("Page %d/%d: failed: %s\n", e.CurrentPage, e.TotalPages, e.Error)
	case domain.ProgressFailed:
		cmd.Printf("Run failed: %s\n", e.Error)
	}
}

func report(cmd *cobra.Command, r tui.Result) error {
	cmd.Println()
	cmd.Printf("Status:     %s\n", r.Status)
	cmd.Printf("Pages:      %d (%d ok, %d failed)\n", r.TotalPages, r.SuccessfulPages, r.FailedPages)
	if r.SuccessfulPages > 0 {
		cmd.Printf("Confidence: %.1f%%\n", r.AverageConfidence)
	}
	if r.Status == domain.DocumentFailed {
		if r.Error != "" {
			return fmt.Errorf("processing failed: %s", r.Error)
		}
		return errors.New("processing failed")
	}
	return nil
}
