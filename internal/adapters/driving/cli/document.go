package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect processed documents",
	Long:  `List documents, show per-page OCR results, or print recognised text.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info and page results",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentContentCmd = &cobra.Command{
	Use:   "content [doc-id]",
	Short: "Print recognised text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentContent,
}

var (
	documentListLimit  int
	documentListOffset int
)

const timestampLayout = "2006-01-02 15:04:05"

func init() {
	documentListCmd.Flags().IntVarP(&documentListLimit, "limit", "n", 20, "maximum number of documents")
	documentListCmd.Flags().IntVar(&documentListOffset, "offset", 0, "number of documents to skip")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentContentCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context(), documentListLimit, documentListOffset)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		done, failed, _ := docs[i].PageTotals()
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:  %s\n", docs[i].DisplayTitle())
		cmd.Printf("    Status: %s (%d/%d pages, %d failed)\n", docs[i].Status, done, len(docs[i].Pages), failed)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:     %s\n", doc.DisplayTitle())
	cmd.Printf("  File:      %s\n", doc.OriginalFilename)
	cmd.Printf("  Stored as: %s\n", doc.StoredFilename)
	cmd.Printf("  Type:      %s (%d bytes)\n", doc.MimeType, doc.Size)
	cmd.Printf("  Language:  %s\n", doc.Language)
	cmd.Printf("  Status:    %s\n", doc.Status)
	cmd.Printf("  Created:   %s\n", doc.CreatedAt.Format(timestampLayout))
	cmd.Printf("  Updated:   %s\n", doc.UpdatedAt.Format(timestampLayout))

	if doc.Meta != nil {
		cmd.Println("\n  Summary:")
		cmd.Printf("    Pages:      %d (%d ok, %d failed)\n", doc.Meta.TotalPages, doc.Meta.SuccessfulPages, doc.Meta.FailedPages)
		cmd.Printf("    Confidence: %.1f%%\n", doc.Meta.AverageConfidence)
		cmd.Printf("    Completed:  %s\n", doc.Meta.CompletedAt.Format(timestampLayout))
	}

	if len(doc.Pages) > 0 {
		cmd.Println("\n  Pages:")
		for _, p := range doc.Pages {
			cmd.Printf("    %3d  %-10s %s\n", p.PageNumber, p.Status, pageDetail(p))
		}
	}

	return nil
}

func pageDetail(p domain.Page) string {
	switch p.Status {
	case domain.PageDone:
		return fmt.Sprintf("%.1f%% confidence, %d words", p.Confidence, p.WordCount)
	case domain.PageFailed:
		return fmt.Sprintf("after %d attempts: %s", p.Attempts, p.Error)
	default:
		return ""
	}
}

func runDocumentContent(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	content, err := documentService.GetContent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document content: %w", err)
	}

	cmd.Println(content)
	return nil
}
