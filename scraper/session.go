package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/models"
)

// CrawlSession is the state of one keyword crawl. It owns its page
// exclusively and is driven by a single goroutine; every step leaves the
// page in the state the next step expects.
type CrawlSession struct {
	keyword string
	page    browser.Page
	wait    WaitPolicy
	sel     Selectors
	locator *Locator
	base    *url.URL
	scraper *Scraper

	// history is read-only input from earlier runs; visited holds titles
	// collected by this session.
	history *TitleSet
	visited *TitleSet
	results []models.TenderRecord

	stats models.KeywordSummary
	log   *slog.Logger
}

func (s *Scraper) newSession(keyword string, page browser.Page, history *TitleSet) *CrawlSession {
	return &CrawlSession{
		keyword: keyword,
		page:    page,
		wait:    s.policy,
		sel:     s.sel,
		locator: s.locator,
		base:    s.base,
		scraper: s,
		history: history,
		visited: NewTitleSet(),
		stats:   models.KeywordSummary{Keyword: keyword},
		log:     slog.With("keyword", keyword),
	}
}

// Results returns the records collected so far, Open tab first.
func (cs *CrawlSession) Results() []models.TenderRecord {
	return cs.results
}

func (cs *CrawlSession) seen(title string) bool {
	return cs.visited.Has(title) || cs.history.Has(title)
}

func (cs *CrawlSession) collect(rec models.TenderRecord) {
	cs.visited.Add(rec.Title)
	cs.results = append(cs.results, rec)
}

// await runs cond against the session page.
func (cs *CrawlSession) await(ctx context.Context, cond Condition, timeout time.Duration) (Match, error) {
	return Await(ctx, cs.page, cond, timeout, cs.wait.Poll)
}

// navigate loads target, pacing through the shared limiter and retrying
// failed loads with exponential backoff.
func (cs *CrawlSession) navigate(ctx context.Context, target string) error {
	cfg := cs.scraper.cfg

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.RetryInitialInterval
	retries := cfg.NavigationRetries
	if retries < 0 {
		retries = 0
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := cs.scraper.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := cs.page.Navigate(ctx, target)
		if err != nil && attempt <= retries {
			cs.log.Debug("navigation failed, retrying", "url", target, "attempt", attempt, "error", err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))
	if err != nil {
		return models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("navigate to %s after %d attempts", target, attempt),
			err,
		)
	}
	return nil
}

// resolve turns a link target into an absolute URL against the portal.
func (cs *CrawlSession) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil || cs.base == nil {
		return href
	}
	return cs.base.ResolveReference(ref).String()
}
