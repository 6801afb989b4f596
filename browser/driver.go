// Package browser is the narrow browser-automation surface the crawler
// drives: navigate, find, click, type, read, and run a script. The rod
// implementation talks to Chromium; browsertest provides an in-memory
// portal with the same behaviour for tests.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Find when nothing matches the selector.
var ErrNotFound = errors.New("browser: element not found")

// By is the strategy used to resolve a Selector.
type By int

const (
	ByID By = iota
	ByClass
	ByName
	ByCSS
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByID:
		return "id"
	case ByClass:
		return "class"
	case ByName:
		return "name"
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	default:
		return fmt.Sprintf("by(%d)", int(b))
	}
}

// Selector addresses elements on a page.
type Selector struct {
	By    By
	Value string
}

func ID(v string) Selector    { return Selector{By: ByID, Value: v} }
func Class(v string) Selector { return Selector{By: ByClass, Value: v} }
func Name(v string) Selector  { return Selector{By: ByName, Value: v} }
func CSS(v string) Selector   { return Selector{By: ByCSS, Value: v} }
func XPath(v string) Selector { return Selector{By: ByXPath, Value: v} }

func (s Selector) String() string {
	return s.By.String() + "=" + s.Value
}

// CSS returns the selector as a CSS selector. XPath selectors have no CSS
// form and return ok=false.
func (s Selector) CSS() (css string, ok bool) {
	switch s.By {
	case ByID:
		return fmt.Sprintf("[id=%q]", s.Value), true
	case ByClass:
		return "." + s.Value, true
	case ByName:
		return fmt.Sprintf("[name=%q]", s.Value), true
	case ByCSS:
		return s.Value, true
	default:
		return "", false
	}
}

// Finder looks up elements without waiting. Synchronising with the page is
// the caller's job.
type Finder interface {
	// Find returns the first match or ErrNotFound.
	Find(ctx context.Context, sel Selector) (Element, error)

	// FindAll returns every match in document order; an empty slice is not an error.
	FindAll(ctx context.Context, sel Selector) ([]Element, error)
}

// Page is a single browser tab.
type Page interface {
	Finder

	// Navigate loads url in the tab.
	Navigate(ctx context.Context, url string) error

	// Eval runs a JavaScript function expression, e.g. `() => ...`.
	Eval(ctx context.Context, js string) error

	// Close releases the tab.
	Close() error
}

// Element is a handle to a node on the page as it was rendered when the
// handle was obtained. After a navigation or re-render the handle goes
// stale and every call except Stale fails.
type Element interface {
	Finder

	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Input(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)

	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)

	// Stale reports whether the node is no longer part of the live document.
	Stale(ctx context.Context) bool
}

// PageSource hands out fresh pages. Every page obtained must be closed.
type PageSource interface {
	NewPage(ctx context.Context) (Page, error)
}
