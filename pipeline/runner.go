// Package pipeline runs a full generate cycle: crawl, score, persist, export.
package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/tenderscope/classifier"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/report"
	"github.com/use-agent/tenderscope/scraper"
	"github.com/use-agent/tenderscope/store"
)

// KeywordScraper crawls the portal for a list of keywords.
type KeywordScraper interface {
	ScrapeKeywords(ctx context.Context, keywords []string, seen *scraper.TitleSet) ([]models.TenderRecord, []models.KeywordSummary)
}

// Runner wires the crawl to persistence and reporting. Classifier and
// OutputDir are optional.
type Runner struct {
	Scraper    KeywordScraper
	Store      *store.Store
	Classifier classifier.Classifier
	Workers    int
	OutputDir  string

	now func() time.Time
}

// Result is the outcome of a completed run.
type Result struct {
	Records  []models.TenderRecord
	Keywords []models.KeywordSummary
	CSVPath  string

	// Unscored counts records the classifier failed on.
	Unscored int
}

// Message summarises the run for job status and logs.
func (r *Result) Message() string {
	var b strings.Builder
	b.WriteString(pluralize(len(r.Records), "new tender"))
	if r.CSVPath != "" {
		b.WriteString(" written to ")
		b.WriteString(r.CSVPath)
	}
	return b.String()
}

// Run executes one generate cycle. Unless req.Full is set, titles stored by
// earlier runs are skipped and the new records are merged into the store;
// a full run replaces the stored tenders. The run fails only when every keyword failed or
// persistence failed; partial keyword failures are reported in Keywords.
func (r *Runner) Run(ctx context.Context, req models.GenerateRequest) (*Result, error) {
	start := r.clock()

	// ── 1. Historical titles ────────────────────────────────────────
	seen := scraper.NewTitleSet()
	if !req.Full {
		titles, err := r.Store.Titles(ctx)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to load stored titles", err)
		}
		seen = scraper.NewTitleSet(titles...)
	}

	// ── 2. Crawl ────────────────────────────────────────────────────
	records, summaries := r.Scraper.ScrapeKeywords(ctx, req.Keywords, seen)
	if err := ctx.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "run cancelled during crawl", err)
	}
	if len(records) == 0 && allFailed(summaries) {
		return nil, models.NewScrapeError(models.ErrCodeSearchUnavailable,
			"no keyword could be searched: "+summaries[0].Error, nil)
	}

	res := &Result{Records: records, Keywords: summaries}

	// ── 3. Relevance ────────────────────────────────────────────────
	if req.Classify && r.Classifier != nil {
		failed, err := classifier.ClassifyAll(ctx, r.Classifier, records, req.Keywords, r.Workers)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "run cancelled during classification", err)
		}
		res.Unscored = failed
	}

	// ── 4. Persist and export ───────────────────────────────────────
	// Incremental runs only see tenders missing from the store, so they merge;
	// a full run has the whole picture and replaces it.
	report.Sort(records)
	save := r.Store.SaveRun
	if req.Full {
		save = r.Store.ReplaceRun
	}
	if err := save(ctx, records); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to save run", err)
	}
	if r.OutputDir != "" {
		path, err := report.WriteFile(r.OutputDir, records, start)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeStorage, "failed to write report", err)
		}
		res.CSVPath = path
	}

	slog.Info("generate run finished",
		"keywords", len(req.Keywords),
		"records", len(records),
		"skipped_history", seen.Len(),
		"unscored", res.Unscored,
		"csv", res.CSVPath,
		"duration", r.clock().Sub(start).Round(time.Millisecond),
	)
	return res, nil
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func allFailed(summaries []models.KeywordSummary) bool {
	if len(summaries) == 0 {
		return false
	}
	for _, s := range summaries {
		if s.Error == "" {
			return false
		}
	}
	return true
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
