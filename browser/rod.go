package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/models"
	"github.com/ysmood/gson"
)

// Browser owns the Chromium process. Each crawl session takes its own tab
// from NewPage and closes it when done. It is safe for concurrent use.
type Browser struct {
	browser *rod.Browser
	cfg     config.BrowserConfig
	active  atomic.Int32
}

// Launch starts a browser according to cfg.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Browser{browser: b, cfg: cfg}, nil
}

// Active returns the number of open session pages.
func (b *Browser) Active() int {
	return int(b.active.Load())
}

// NewPage opens a tab with stealth, extra headers and resource blocking
// applied. All three must be installed before the first navigation.
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}
	// Drop the creation context; each call binds its own.
	page = page.Context(context.Background())

	if b.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if b.cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": b.cfg.AcceptLanguage}),
		}.Call(page)
	}

	router := setupHijack(page, b.cfg.BlockedResourceTypes)

	b.active.Add(1)
	return &rodPage{page: page, router: router, owner: b}, nil
}

// Close kills the browser process. Call this on shutdown to prevent zombie
// Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down")
	if err := b.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
	owner  *Browser
	closed atomic.Bool
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	if err := p.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) Eval(ctx context.Context, js string) error {
	_, err := p.page.Context(ctx).Eval(js)
	return err
}

func (p *rodPage) Find(ctx context.Context, sel Selector) (Element, error) {
	return first(p.FindAll(ctx, sel))
}

func (p *rodPage) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	pg := p.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if css, ok := sel.CSS(); ok {
		els, err = pg.Elements(css)
	} else {
		els, err = pg.ElementsX(sel.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	return wrapElements(els), nil
}

func (p *rodPage) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	defer p.owner.active.Add(-1)
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}

type rodElement struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out
}

func first(els []Element, err error) (Element, error) {
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, ErrNotFound
	}
	return els[0], nil
}

func (e *rodElement) Find(ctx context.Context, sel Selector) (Element, error) {
	return first(e.FindAll(ctx, sel))
}

func (e *rodElement) FindAll(ctx context.Context, sel Selector) ([]Element, error) {
	el := e.el.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if css, ok := sel.CSS(); ok {
		els, err = el.Elements(css)
	} else {
		els, err = el.ElementsX(sel.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", sel, err)
	}
	return wrapElements(els), nil
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Clear(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => {
		this.value = '';
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`)
	return err
}

func (e *rodElement) Input(ctx context.Context, text string) error {
	return e.el.Context(ctx).Input(text)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Enabled(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(`() => !this.disabled`)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Stale treats any failure to reach the node as stale: after a navigation
// the remote object's execution context is gone and the call errors.
func (e *rodElement) Stale(ctx context.Context) bool {
	res, err := e.el.Context(ctx).Eval(`() => this.isConnected`)
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	return !res.Value.Bool()
}
