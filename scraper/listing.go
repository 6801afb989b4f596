package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/models"
)

// walkState is a step of the listing walk.
type walkState int

const (
	// stateAwaitListing: a listing render is expected. Post: anchor holds
	// a live listing element, or the walk is done.
	stateAwaitListing walkState = iota
	// stateListingLoaded: anchor is live. Post: links holds every entry on
	// the page, captured before any is visited.
	stateListingLoaded
	// stateLinksCollected: visit each link and come back. Post: the page
	// shows the same listing page again and anchor is re-captured.
	stateLinksCollected
	// stateNextPage: advance if a next control exists. Post: anchor is
	// stale and the next listing page is loading, or the walk is done.
	stateNextPage
	stateDone
)

// WalkStats summarises one tab walk.
type WalkStats struct {
	Tab     models.Tab
	Pages   int // listing pages reached
	Visited int // detail pages opened
	Skipped int // links skipped as already seen
	Dropped int // detail pages that did not yield a record
}

// walkTab collects every record under the currently selected tab, page by
// page. A listing that never appears yields no records; a missing next
// control ends the walk normally.
func (cs *CrawlSession) walkTab(ctx context.Context, tab models.Tab) ([]models.TenderRecord, WalkStats) {
	log := cs.log.With("tab", tab)
	stats := WalkStats{Tab: tab}

	var (
		records []models.TenderRecord
		links   []ListingEntry
		anchor  browser.Element
		err     error
	)

	page := 1
	state := stateAwaitListing
	for state != stateDone {
		if ctx.Err() != nil {
			log.Warn("tab walk cancelled", "page", page, "error", ctx.Err())
			break
		}

		switch state {
		case stateAwaitListing:
			anchor, err = cs.awaitListing(ctx)
			if err != nil {
				if page == 1 {
					log.Info("no listings on tab", "error", err)
				} else {
					log.Warn("listing page did not load", "page", page, "error", err)
				}
				state = stateDone
				continue
			}
			stats.Pages = page
			state = stateListingLoaded

		case stateListingLoaded:
			links, err = cs.collectLinks(ctx)
			if err != nil {
				log.Warn("failed to collect links", "page", page, "error", err)
				state = stateDone
				continue
			}
			log.Debug("listing page loaded", "page", page, "links", len(links))
			state = stateLinksCollected

		case stateLinksCollected:
			// Every visit replaces the listing document, so links were
			// read as plain values in collectLinks and anchor must be
			// re-captured after each return. A listing that fails to come
			// back ends the tab: the page position is lost and the next
			// control can no longer be trusted.
			state = stateNextPage
			for _, link := range links {
				if ctx.Err() != nil {
					break
				}
				// Seen titles cost nothing: no navigation, no back.
				if cs.seen(link.Title) {
					stats.Skipped++
					log.Debug("skipping seen tender", "title", link.Title)
					continue
				}

				// A skipped detail still leaves the page on the detail view,
				// so the back step below runs either way.
				stats.Visited++
				rec, err := cs.ExtractDetail(ctx, link)
				if err != nil {
					stats.Dropped++
					logSkip(log, link.Title, err)
				} else {
					rec.Tab = tab
					cs.collect(rec)
					records = append(records, rec)
				}

				if err := cs.backToResults(ctx); err != nil {
					log.Debug("back to results failed", "title", link.Title, "error", err)
				}
				anchor, err = cs.awaitListing(ctx)
				if err != nil {
					log.Warn("listing did not return after detail", "page", page, "title", link.Title, "error", err)
					state = stateDone
					break
				}
			}

		case stateNextPage:
			// The portal renders a numbered next control per page; its
			// absence is the normal end of the results.
			if !cs.nextPage(ctx, page+1, anchor) {
				log.Info("tab walk complete", "pages", page, "records", len(records))
				state = stateDone
				continue
			}
			page++
			state = stateAwaitListing
		}
	}

	cs.stats.Pages += stats.Pages
	cs.stats.Skipped += stats.Skipped
	cs.stats.Dropped += stats.Dropped
	return records, stats
}

// awaitListing waits out the loading overlay and returns the first result
// link as a fresh anchor.
func (cs *CrawlSession) awaitListing(ctx context.Context) (browser.Element, error) {
	if _, err := cs.await(ctx, InvisibleByClass(cs.sel.LoadingScreen), cs.wait.Timeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cs.log.Debug("loading overlay still visible", "error", err)
	}
	m, err := cs.await(ctx, AllPresentBy(browser.Class(cs.sel.ListingLink)), cs.wait.Listing)
	if err != nil {
		return nil, err
	}
	return m.Element, nil
}

// collectLinks reads every result link's title and target up front, since
// visiting any of them invalidates the handles.
func (cs *CrawlSession) collectLinks(ctx context.Context) ([]ListingEntry, error) {
	els, err := cs.page.FindAll(ctx, browser.Class(cs.sel.ListingLink))
	if err != nil {
		return nil, err
	}
	entries := make([]ListingEntry, 0, len(els))
	for _, el := range els {
		title, err := el.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("read link title: %w", err)
		}
		href, ok, err := el.Attribute(ctx, "href")
		if err != nil {
			return nil, fmt.Errorf("read link target: %w", err)
		}
		entry := ListingEntry{Title: strings.TrimSpace(title), Target: cs.resolve(href)}
		if entry.Title == "" || !ok || href == "" {
			cs.log.Debug("ignoring result link without title or target", "title", entry.Title)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// backToResults returns from a detail page to the listing, clicking the
// back control directly and falling back to a scripted click.
func (cs *CrawlSession) backToResults(ctx context.Context) error {
	m, err := cs.await(ctx, ClickableBy(browser.XPath(cs.sel.BackButton)), cs.wait.Listing)
	if err == nil {
		if err = m.Element.Click(ctx); err == nil {
			return nil
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	cs.log.Debug("back button click failed, using script", "error", err)
	if scriptErr := cs.page.Eval(ctx, cs.sel.BackScript); scriptErr != nil {
		return errors.Join(err, scriptErr)
	}
	return nil
}

// nextPage clicks the control for page index and waits for the current
// listing to go stale. It reports false when there is no further page.
//
// Waiting for staleness rather than for the next listing matters: the old
// results stay in the document until the server responds, and awaiting
// presence alone would re-read page index-1.
func (cs *CrawlSession) nextPage(ctx context.Context, index int, anchor browser.Element) bool {
	m, err := cs.await(ctx, ClickableBy(cs.sel.NextPageButton(index)), cs.wait.Timeout)
	if err != nil {
		return false
	}
	if err := m.Element.Click(ctx); err != nil {
		cs.log.Warn("next page click failed", "page", index, "error", err)
		return false
	}
	if anchor != nil {
		if _, err := cs.await(ctx, StalenessOf(anchor), cs.wait.Staleness); err != nil {
			cs.log.Warn("listing did not refresh after next page", "page", index, "error", err)
			return false
		}
	}
	return true
}

func logSkip(log *slog.Logger, title string, err error) {
	var skipErr *models.SkipError
	if errors.As(err, &skipErr) {
		log.Info("tender skipped", "title", title, "reason", skipErr.Reason, "error", skipErr.Err)
		return
	}
	log.Info("tender skipped", "title", title, "error", err)
}
