// Package scraper crawls the GeBIZ tender portal: it searches a keyword,
// walks the Open and Closed result tabs page by page, opens each tender's
// detail page and turns it into a models.TenderRecord.
package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Scraper runs keyword crawls against the portal. Each crawl gets its own
// page from the PageSource. It is safe for concurrent use.
type Scraper struct {
	pages   browser.PageSource
	cfg     config.ScraperConfig
	portal  string
	base    *url.URL
	sel     Selectors
	locator *Locator
	policy  WaitPolicy
	limiter *rate.Limiter
	active  atomic.Int32
}

// New creates a Scraper for the portal landing page at portalURL.
func New(pages browser.PageSource, portalURL string, cfg config.ScraperConfig, sel Selectors) (*Scraper, error) {
	base, err := url.Parse(portalURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			"portal URL must be absolute: "+portalURL,
			err,
		)
	}

	limit := rate.Inf
	if cfg.NavigationsPerSecond > 0 {
		limit = rate.Limit(cfg.NavigationsPerSecond)
	}

	return &Scraper{
		pages:   pages,
		cfg:     cfg,
		portal:  portalURL,
		base:    base,
		sel:     sel,
		locator: NewLocator(sel),
		policy: WaitPolicy{
			Timeout:   cfg.WaitTimeout,
			Listing:   cfg.ListingTimeout,
			Staleness: cfg.StalenessTimeout,
			Poll:      cfg.PollInterval,
		},
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Active returns the number of keyword sessions currently holding a page.
func (s *Scraper) Active() int {
	return int(s.active.Load())
}

// MaxSessions is the configured keyword concurrency.
func (s *Scraper) MaxSessions() int {
	if s.cfg.MaxSessions < 1 {
		return 1
	}
	return s.cfg.MaxSessions
}

// ScrapeKeywords crawls each keyword and merges the results by title in
// keyword order. A keyword whose crawl fails is logged and contributes
// whatever it collected before failing. With a single session, titles
// collected for earlier keywords are not revisited by later ones.
func (s *Scraper) ScrapeKeywords(ctx context.Context, keywords []string, seen *TitleSet) ([]models.TenderRecord, []models.KeywordSummary) {
	results := make([][]models.TenderRecord, len(keywords))
	summaries := make([]models.KeywordSummary, len(keywords))

	run := func(i int, known *TitleSet) {
		recs, summary, err := s.scrapeKeyword(ctx, keywords[i], known)
		if err != nil {
			slog.Error("keyword crawl failed", "keyword", keywords[i], "error", err)
			summary.Error = err.Error()
		}
		results[i] = recs
		summaries[i] = summary
	}

	if s.MaxSessions() == 1 {
		known := seen.Clone()
		for i := range keywords {
			if ctx.Err() != nil {
				summaries[i] = models.KeywordSummary{Keyword: keywords[i], Error: ctx.Err().Error()}
				continue
			}
			run(i, known)
			for _, rec := range results[i] {
				known.Add(rec.Title)
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.MaxSessions())
		for i := range keywords {
			g.Go(func() error {
				run(i, seen)
				return nil
			})
		}
		_ = g.Wait()
	}

	return MergeByTitle(results...), summaries
}

// ScrapeByKeyword runs one keyword crawl: search, walk the Open tab, switch
// to the Closed tab and walk it, then merge by title with Open records
// first. Titles in seen are never opened. The only failure that aborts the
// crawl is an unusable search box; the page is closed on every path.
func (s *Scraper) ScrapeByKeyword(ctx context.Context, keyword string, seen *TitleSet) ([]models.TenderRecord, error) {
	recs, _, err := s.scrapeKeyword(ctx, keyword, seen)
	return recs, err
}

func (s *Scraper) scrapeKeyword(ctx context.Context, keyword string, seen *TitleSet) ([]models.TenderRecord, models.KeywordSummary, error) {
	summary := models.KeywordSummary{Keyword: keyword}
	if s.cfg.KeywordTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.KeywordTimeout)
		defer cancel()
	}

	page, err := s.pages.NewPage(ctx)
	if err != nil {
		return nil, summary, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}
	s.active.Add(1)
	defer s.active.Add(-1)
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Warn("page close failed", "keyword", keyword, "error", closeErr)
		}
	}()

	start := time.Now()
	cs := s.newSession(keyword, page, seen)
	recs, err := cs.run(ctx)
	summary = cs.stats
	summary.Records = len(recs)
	cs.log.Info("keyword crawl finished",
		"records", len(recs),
		"pages", summary.Pages,
		"skipped", summary.Skipped,
		"dropped", summary.Dropped,
		"duration", time.Since(start),
	)
	return recs, summary, categorizeError(err)
}

// categorizeError maps context errors to a ScrapeError with the right code.
func categorizeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, "keyword crawl timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "keyword crawl cancelled", err)
	default:
		return err
	}
}
