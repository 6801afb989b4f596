// Package browsertest provides an in-memory browser.PageSource backed by
// static HTML documents. Clicking an element follows its data-nav or href
// attribute, data-back returns to the previous document, and every load
// re-renders the page so handles obtained before it go stale.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/use-agent/tenderscope/browser"
	"golang.org/x/net/html"
)

// ErrStale is returned when a handle from an earlier render is used.
var ErrStale = errors.New("browsertest: stale element reference")

// ErrClosed is returned by any call on a closed page.
var ErrClosed = errors.New("browsertest: page closed")

const blankDocument = "<html><head></head><body></body></html>"

// Portal is a set of documents keyed by URL. It is safe for concurrent use
// by several pages.
type Portal struct {
	mu        sync.Mutex
	docs      map[string]string
	delays    map[string]int
	visits    []string
	failNext  int
	opened    int
	open      int
	evaluated []string
	onVisit   func(rawURL string)
}

func NewPortal() *Portal {
	return &Portal{
		docs:   make(map[string]string),
		delays: make(map[string]int),
	}
}

// Set registers the document served at rawURL.
func (p *Portal) Set(rawURL, doc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs[rawURL] = doc
}

// Delay makes the first n lookups after each load of rawURL return nothing,
// as if the page were still rendering.
func (p *Portal) Delay(rawURL string, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays[rawURL] = n
}

// FailNavigations makes the next n Navigate calls fail.
func (p *Portal) FailNavigations(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

// OnVisit registers fn to run after every successful load, outside the
// portal lock. Tests use it to act at a precise point of a crawl.
func (p *Portal) OnVisit(fn func(rawURL string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onVisit = fn
}

// Visits returns every URL loaded so far, in order.
func (p *Portal) Visits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visits...)
}

// VisitCount returns how many times rawURL was loaded.
func (p *Portal) VisitCount(rawURL string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, v := range p.visits {
		if v == rawURL {
			n++
		}
	}
	return n
}

// Scripts returns every script passed to Eval.
func (p *Portal) Scripts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.evaluated...)
}

// Opened is the number of pages handed out.
func (p *Portal) Opened() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opened
}

// Open is the number of pages handed out and not yet closed.
func (p *Portal) Open() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *Portal) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.opened++
	p.open++
	p.mu.Unlock()

	pg := &Page{portal: p}
	if err := pg.render("about:blank", blankDocument); err != nil {
		return nil, err
	}
	return pg, nil
}

func (p *Portal) load(rawURL string) (string, int, error) {
	p.mu.Lock()
	if p.failNext > 0 {
		p.failNext--
		p.mu.Unlock()
		return "", 0, fmt.Errorf("browsertest: navigation to %s failed", rawURL)
	}
	p.visits = append(p.visits, rawURL)
	doc, ok := p.docs[rawURL]
	if !ok {
		doc = blankDocument
	}
	delay, hook := p.delays[rawURL], p.onVisit
	p.mu.Unlock()

	if hook != nil {
		hook(rawURL)
	}
	return doc, delay, nil
}

// Page is a single tab on a Portal.
type Page struct {
	portal *Portal

	mu        sync.Mutex
	url       string
	history   []string
	root      *html.Node
	gen       int
	pending   int
	lastInput string
	closed    bool
}

// URL returns the address of the current document.
func (pg *Page) URL() string {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.url
}

func (pg *Page) render(rawURL, doc string) error {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("browsertest: parse %s: %w", rawURL, err)
	}
	pg.url = rawURL
	pg.root = d.Nodes[0]
	pg.gen++
	return nil
}

// goTo loads rawURL. Callers hold pg.mu.
func (pg *Page) goTo(ctx context.Context, rawURL string, push bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, delay, err := pg.portal.load(rawURL)
	if err != nil {
		return err
	}
	if push {
		pg.history = append(pg.history, rawURL)
	}
	pg.pending = delay
	return pg.render(rawURL, doc)
}

func (pg *Page) Navigate(ctx context.Context, rawURL string) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.closed {
		return ErrClosed
	}
	return pg.goTo(ctx, rawURL, true)
}

var clickScript = []*regexp.Regexp{
	regexp.MustCompile(`document\.querySelector\("((?:[^"\\]|\\.)*)"\)\.click\(\)`),
	regexp.MustCompile(`document\.querySelector\('((?:[^'\\]|\\.)*)'\)\.click\(\)`),
}

// Eval understands one script shape, document.querySelector(sel).click().
// Anything else is recorded and ignored.
func (pg *Page) Eval(ctx context.Context, js string) error {
	pg.mu.Lock()
	if pg.closed {
		pg.mu.Unlock()
		return ErrClosed
	}
	pg.portal.mu.Lock()
	pg.portal.evaluated = append(pg.portal.evaluated, js)
	pg.portal.mu.Unlock()

	var css string
	for _, re := range clickScript {
		if m := re.FindStringSubmatch(js); m != nil {
			css = strings.ReplaceAll(m[1], `\"`, `"`)
			css = strings.ReplaceAll(css, `\'`, `'`)
			break
		}
	}
	if css == "" {
		pg.mu.Unlock()
		return nil
	}
	nodes, err := queryCSS(pg.root, css)
	if err != nil {
		pg.mu.Unlock()
		return err
	}
	if len(nodes) == 0 {
		pg.mu.Unlock()
		return fmt.Errorf("browsertest: TypeError: querySelector(%q) is null", css)
	}
	el := &element{page: pg, node: nodes[0], gen: pg.gen}
	pg.mu.Unlock()
	return el.Click(ctx)
}

func (pg *Page) Find(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	return first(pg.FindAll(ctx, sel))
}

func (pg *Page) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pg.pending > 0 {
		pg.pending--
		return nil, nil
	}
	return pg.query(pg.root, sel)
}

func (pg *Page) Close() error {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.closed {
		return nil
	}
	pg.closed = true
	pg.portal.mu.Lock()
	pg.portal.open--
	pg.portal.mu.Unlock()
	return nil
}

// query runs sel under n. Callers hold pg.mu.
func (pg *Page) query(n *html.Node, sel browser.Selector) ([]browser.Element, error) {
	var (
		nodes []*html.Node
		err   error
	)
	if css, ok := sel.CSS(); ok {
		nodes, err = queryCSS(n, css)
	} else {
		nodes, err = htmlquery.QueryAll(n, sel.Value)
	}
	if err != nil {
		return nil, fmt.Errorf("browsertest: %s: %w", sel, err)
	}
	out := make([]browser.Element, 0, len(nodes))
	for _, node := range nodes {
		if node.Type != html.ElementNode {
			continue
		}
		out = append(out, &element{page: pg, node: node, gen: pg.gen})
	}
	return out, nil
}

func queryCSS(n *html.Node, css string) ([]*html.Node, error) {
	group, err := cascadia.ParseGroup(css)
	if err != nil {
		return nil, err
	}
	return cascadia.QueryAll(n, group), nil
}

func first(els []browser.Element, err error) (browser.Element, error) {
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, browser.ErrNotFound
	}
	return els[0], nil
}
