package scraper

import (
	"context"

	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/models"
)

// run drives the session through both tabs. Records collected before a
// cancellation are returned alongside the context error.
func (cs *CrawlSession) run(ctx context.Context) ([]models.TenderRecord, error) {
	// ── 1. Landing page and search box ───────────────────────────────
	if err := cs.navigate(ctx, cs.scraper.portal); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSearchUnavailable, "portal unreachable", err)
	}
	box, err := cs.await(ctx, PresentByID(cs.sel.SearchInput), cs.wait.Timeout)
	if err != nil {
		return nil, cs.searchUnavailable(ctx, "search box not found", err)
	}
	if err := box.Element.Clear(ctx); err != nil {
		return nil, cs.searchUnavailable(ctx, "search box not interactable", err)
	}

	// ── 2. Submit the keyword ────────────────────────────────────────
	// The landing page may already show a listing; its first link is the
	// anchor that goes stale once results for the keyword render.
	anchor, _ := cs.page.Find(ctx, browser.Class(cs.sel.ListingLink))

	if err := box.Element.Input(ctx, cs.keyword); err != nil {
		return nil, cs.searchUnavailable(ctx, "search box not interactable", err)
	}
	goBtn, err := cs.await(ctx, ClickableByID(cs.sel.SearchButton), cs.wait.Timeout)
	if err != nil {
		return nil, cs.searchUnavailable(ctx, "search button not clickable", err)
	}
	if err := goBtn.Element.Click(ctx); err != nil {
		return nil, cs.searchUnavailable(ctx, "search button click failed", err)
	}
	if anchor != nil {
		if _, err := cs.await(ctx, StalenessOf(anchor), cs.wait.Staleness); err != nil {
			cs.log.Warn("results did not refresh after search", "error", err)
		}
	}

	// ── 3. Open tab ──────────────────────────────────────────────────
	open, _ := cs.walkTab(ctx, models.TabOpen)

	// ── 4. Closed tab ────────────────────────────────────────────────
	var closed []models.TenderRecord
	if ctx.Err() == nil {
		if cs.switchToClosed(ctx) {
			closed, _ = cs.walkTab(ctx, models.TabClosed)
		} else {
			cs.log.Info("closed tab unavailable, treating as empty")
		}
	}

	// ── 5. Merge ─────────────────────────────────────────────────────
	return MergeByTitle(open, closed), ctx.Err()
}

func (cs *CrawlSession) searchUnavailable(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	cs.log.Error(msg, "error", err)
	return models.NewScrapeError(models.ErrCodeSearchUnavailable, msg, err)
}

// switchToClosed clicks the Closed tab and waits for the Open listing to go
// stale. When the Open tab had no listing the tab control itself is the
// anchor.
func (cs *CrawlSession) switchToClosed(ctx context.Context) bool {
	m, err := cs.await(ctx, ClickableByID(cs.sel.ClosedTab), cs.wait.Timeout)
	if err != nil {
		cs.log.Debug("closed tab not clickable", "error", err)
		return false
	}
	anchor, err := cs.page.Find(ctx, browser.Class(cs.sel.ListingLink))
	if err != nil {
		anchor = m.Element
	}
	if err := m.Element.Click(ctx); err != nil {
		cs.log.Debug("closed tab click failed", "error", err)
		return false
	}
	if _, err := cs.await(ctx, StalenessOf(anchor), cs.wait.Staleness); err != nil {
		cs.log.Debug("closed tab did not load", "error", err)
		return false
	}
	return true
}
