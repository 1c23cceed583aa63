package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscan/internal/core/domain"
)

var (
	searchLimit int
	searchPage  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search recognised documents",
	Long: `Searches the recognised text of every processed page, case-insensitively.
Each matching document lists the pages that contain the query with a
snippet around the first occurrence. Every search counts towards the
global search statistic.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of documents (at most 50)")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "result page")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Page:  searchPage,
		Limit: searchLimit,
	}

	resp, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp == nil || len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (page %d, %d of %d documents):\n", resp.Page, len(resp.Results), resp.Total)
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}

		cmd.Printf("  [%d] %s (%d pages)\n", i+1, title, r.TotalPages)
		cmd.Printf("      ID: %s\n", r.DocumentID)
		for _, p := range r.Pages {
			cmd.Printf("      p.%d (%.0f%%) %s\n", p.PageNumber, p.Confidence, p.Snippet)
		}
		cmd.Println()
	}

	return nil
}
