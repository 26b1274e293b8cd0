package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/photo-search/internal/config"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search registered photos by name or tag",
	Long: `Search registered photos through the API and print one page of results.
Without a query every registered photo is listed.

Example:
  photo-search search tom
  photo-search search "tomas novak" --page 1 --per-page 20`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int("page", 0, "Zero-based page number")
	searchCmd.Flags().Int("per-page", 0, "Results per page (server default when 0)")
	searchCmd.Flags().String("endpoint", "", "API endpoint (overrides API_ENDPOINT)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := apiClient(cmd, cfg)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	list, err := client.SearchPhotos(cmd.Context(), query, mustGetInt(cmd, "page"), mustGetInt(cmd, "per-page"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(list.Results) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTAGS")
	for _, p := range list.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, strings.Join(p.Tags, ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nPage %d of %d (%d per page)\n", list.Page+1, list.PageCount, list.PerPage)
	return nil
}
