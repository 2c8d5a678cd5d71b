package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/copygate/internal/adcopy"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <url>",
		Short: "Prints the page signals for one landing page",
		Long: `Runs a single acquisition (cache, fetch, extraction, and language
resolution) and prints the resulting page signals as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: runScrape,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	if err := adcopy.ValidateTargetURL(args[0]); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	page := appInstance.GetPipeline().Acquire(cmd.Context(), args[0])

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(page); err != nil {
		return fmt.Errorf("encode page signals: %w", err)
	}
	return nil
}
