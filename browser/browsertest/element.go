package browsertest

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/tenderscope/browser"
	"golang.org/x/net/html"
)

type element struct {
	page *Page
	node *html.Node
	gen  int
}

// live locks the page and checks the handle still belongs to the current
// render. On success the caller must unlock pg.mu.
func (e *element) live() error {
	e.page.mu.Lock()
	if e.page.closed {
		e.page.mu.Unlock()
		return ErrClosed
	}
	if e.gen != e.page.gen {
		e.page.mu.Unlock()
		return ErrStale
	}
	return nil
}

func (e *element) Find(ctx context.Context, sel browser.Selector) (browser.Element, error) {
	return first(e.FindAll(ctx, sel))
}

func (e *element) FindAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	defer e.page.mu.Unlock()
	return e.page.query(e.node, sel)
}

// Click follows data-back, then data-nav, then href. data-nav may carry
// {q}, replaced by the last text typed on the page.
func (e *element) Click(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	pg := e.page
	defer pg.mu.Unlock()

	if _, ok := attr(e.node, "disabled"); ok {
		return nil
	}
	if _, ok := attr(e.node, "data-back"); ok {
		if len(pg.history) < 2 {
			return nil
		}
		prev := pg.history[len(pg.history)-2]
		pg.history = pg.history[:len(pg.history)-1]
		return pg.goTo(ctx, prev, false)
	}
	if target, ok := attr(e.node, "data-nav"); ok {
		target = strings.ReplaceAll(target, "{q}", url.QueryEscape(pg.lastInput))
		return pg.goTo(ctx, target, true)
	}
	if target, ok := attr(e.node, "href"); ok {
		return pg.goTo(ctx, target, true)
	}
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	defer e.page.mu.Unlock()
	setAttr(e.node, "value", "")
	e.page.lastInput = ""
	return nil
}

func (e *element) Input(ctx context.Context, text string) error {
	if err := e.live(); err != nil {
		return err
	}
	defer e.page.mu.Unlock()
	v, _ := attr(e.node, "value")
	setAttr(e.node, "value", v+text)
	e.page.lastInput = v + text
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	defer e.page.mu.Unlock()
	return strings.TrimSpace(goquery.NewDocumentFromNode(e.node).Text()), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.live(); err != nil {
		return "", false, err
	}
	defer e.page.mu.Unlock()
	v, ok := attr(e.node, name)
	return v, ok, nil
}

// Visible is false when the node or an ancestor has the hidden attribute
// or an inline display:none.
func (e *element) Visible(ctx context.Context) (bool, error) {
	if err := e.live(); err != nil {
		return false, err
	}
	defer e.page.mu.Unlock()
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if _, ok := attr(n, "hidden"); ok {
			return false, nil
		}
		if style, ok := attr(n, "style"); ok {
			compact := strings.ReplaceAll(strings.ToLower(style), " ", "")
			if strings.Contains(compact, "display:none") {
				return false, nil
			}
		}
	}
	return true, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	if err := e.live(); err != nil {
		return false, err
	}
	defer e.page.mu.Unlock()
	_, disabled := attr(e.node, "disabled")
	return !disabled, nil
}

func (e *element) Stale(ctx context.Context) bool {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.page.closed || e.gen != e.page.gen
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if a.Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}
