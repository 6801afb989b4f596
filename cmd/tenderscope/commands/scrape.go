package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/report"
)

var (
	scrapeKeywords []string
	scrapeCSV      string
	scrapeClassify bool
	scrapeFull     bool
)

func init() {
	scrapeCmd.Flags().StringSliceVarP(&scrapeKeywords, "keyword", "k", nil, "Keyword to search; repeat or comma-separate. Defaults to the configured list.")
	scrapeCmd.Flags().StringVar(&scrapeCSV, "csv", "", "Write the report to this file.")
	scrapeCmd.Flags().BoolVar(&scrapeClassify, "classify", false, "Score each tender for relevance against the keywords.")
	scrapeCmd.Flags().BoolVar(&scrapeFull, "full", false, "Revisit tenders already in the database.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [-k <keyword>]... [--csv <path>] [--classify] [--full]",
	Short: "Runs one crawl, prints the results and stores them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		keywords := scrapeKeywords
		if len(keywords) == 0 {
			keywords = cfg.Portal.Keywords
		}

		a, err := newApp(cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.runner.Run(cmd.Context(), models.GenerateRequest{
			Keywords: keywords,
			Classify: scrapeClassify,
			Full:     scrapeFull,
		})
		if err != nil {
			return err
		}

		for _, k := range res.Keywords {
			slog.Info("keyword summary",
				"keyword", k.Keyword,
				"records", k.Records,
				"pages", k.Pages,
				"skipped", k.Skipped,
				"dropped", k.Dropped,
				"error", k.Error,
			)
		}
		report.RenderTable(cmd.OutOrStdout(), res.Records)

		if scrapeCSV != "" {
			if err := writeCSV(scrapeCSV, res.Records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", scrapeCSV)
		}
		return nil
	},
}

func writeCSV(path string, records []models.TenderRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
