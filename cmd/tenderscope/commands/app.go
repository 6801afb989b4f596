package commands

import (
	"fmt"
	"log/slog"

	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/cache"
	"github.com/use-agent/tenderscope/classifier"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/pipeline"
	"github.com/use-agent/tenderscope/scraper"
	"github.com/use-agent/tenderscope/store"
)

// app is the wired service graph shared by serve and scrape.
type app struct {
	browser *browser.Browser
	scraper *scraper.Scraper
	store   *store.Store
	cache   *cache.Cache
	runner  *pipeline.Runner
}

// newApp launches the browser and opens the database. outputDir may be
// empty to skip the CSV report.
func newApp(c *config.Config, outputDir string) (*app, error) {
	// ── 1. Selectors ────────────────────────────────────────────────
	sel, err := scraper.LoadSelectors(c.Portal.SelectorsFile)
	if err != nil {
		return nil, err
	}

	// ── 2. Database ─────────────────────────────────────────────────
	st, err := store.Open(c.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// ── 3. Browser and scraper ──────────────────────────────────────
	br, err := browser.Launch(c.Browser)
	if err != nil {
		st.Close()
		return nil, err
	}
	sc, err := scraper.New(br, c.Portal.URL, c.Scraper, sel)
	if err != nil {
		br.Close()
		st.Close()
		return nil, err
	}

	// ── 4. Relevance scoring ────────────────────────────────────────
	cc := cache.New(c.Cache.MaxEntries, c.Cache.TTL)
	cl := classifier.New(c.Classifier, cc)

	slog.Info("services ready",
		"portal", c.Portal.URL,
		"db", c.Store.Path,
		"max_sessions", c.Scraper.MaxSessions,
		"remote_classifier", c.Classifier.Endpoint != "",
	)

	return &app{
		browser: br,
		scraper: sc,
		store:   st,
		cache:   cc,
		runner: &pipeline.Runner{
			Scraper:    sc,
			Store:      st,
			Classifier: cl,
			Workers:    c.Classifier.Workers,
			OutputDir:  outputDir,
		},
	}, nil
}

func (a *app) Close() {
	a.cache.Close()
	a.browser.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("close store", "error", err)
	}
}
