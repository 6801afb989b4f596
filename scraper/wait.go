package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/use-agent/tenderscope/browser"
)

// ErrWaitTimeout is returned by Await when the condition is not met in time.
var ErrWaitTimeout = errors.New("wait timed out")

const defaultPoll = 250 * time.Millisecond

// Match is what a satisfied condition found. Element is the first of
// Elements; both are empty for conditions that match on absence.
type Match struct {
	Element  browser.Element
	Elements []browser.Element
}

// Condition is a predicate over the page. Check must not block; lookup
// errors count as "not yet".
type Condition struct {
	Name  string
	Check func(ctx context.Context, page browser.Page) (Match, bool)
}

// WaitPolicy holds the deadlines a session waits with.
type WaitPolicy struct {
	Timeout   time.Duration // single element waits
	Listing   time.Duration // results listing and back button
	Staleness time.Duration // page transitions
	Poll      time.Duration
}

// Await polls cond until it holds or timeout elapses. A timeout returns an
// error wrapping ErrWaitTimeout; cancellation of ctx returns ctx.Err().
func Await(ctx context.Context, page browser.Page, cond Condition, timeout, poll time.Duration) (Match, error) {
	if poll <= 0 {
		poll = defaultPoll
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		if m, ok := cond.Check(ctx, page); ok {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return Match{}, ctx.Err()
		case <-deadline.C:
			return Match{}, fmt.Errorf("%w: %s after %s", ErrWaitTimeout, cond.Name, timeout)
		case <-ticker.C:
		}
	}
}

// PresentBy holds once at least one element matches sel.
func PresentBy(sel browser.Selector) Condition {
	return Condition{
		Name: "present " + sel.String(),
		Check: func(ctx context.Context, page browser.Page) (Match, bool) {
			els, err := page.FindAll(ctx, sel)
			if err != nil || len(els) == 0 {
				return Match{}, false
			}
			return Match{Element: els[0], Elements: els}, true
		},
	}
}

// PresentByID is PresentBy for an element id.
func PresentByID(id string) Condition { return PresentBy(browser.ID(id)) }

// PresentByClass is PresentBy for a class name.
func PresentByClass(class string) Condition { return PresentBy(browser.Class(class)) }

// AllPresentBy holds once sel matches and returns every match. It exists
// alongside PresentBy so callers that need the whole set read as such.
func AllPresentBy(sel browser.Selector) Condition {
	c := PresentBy(sel)
	c.Name = "all present " + sel.String()
	return c
}

// ClickableBy holds once the first match of sel is visible and enabled.
func ClickableBy(sel browser.Selector) Condition {
	return Condition{
		Name: "clickable " + sel.String(),
		Check: func(ctx context.Context, page browser.Page) (Match, bool) {
			el, err := page.Find(ctx, sel)
			if err != nil {
				return Match{}, false
			}
			if visible, err := el.Visible(ctx); err != nil || !visible {
				return Match{}, false
			}
			if enabled, err := el.Enabled(ctx); err != nil || !enabled {
				return Match{}, false
			}
			return Match{Element: el, Elements: []browser.Element{el}}, true
		},
	}
}

// ClickableByID is ClickableBy for an element id.
func ClickableByID(id string) Condition { return ClickableBy(browser.ID(id)) }

// InvisibleBy holds when no element matching sel is visible, including when
// nothing matches at all.
func InvisibleBy(sel browser.Selector) Condition {
	return Condition{
		Name: "invisible " + sel.String(),
		Check: func(ctx context.Context, page browser.Page) (Match, bool) {
			els, err := page.FindAll(ctx, sel)
			if err != nil {
				return Match{}, false
			}
			for _, el := range els {
				if visible, err := el.Visible(ctx); err == nil && visible {
					return Match{}, false
				}
			}
			return Match{}, true
		},
	}
}

// InvisibleByClass is InvisibleBy for a class name. The loading overlay
// is matched this way.
func InvisibleByClass(class string) Condition { return InvisibleBy(browser.Class(class)) }

// StalenessOf holds once el has left the document, which is how a
// navigation or re-render is detected.
func StalenessOf(el browser.Element) Condition {
	return Condition{
		Name: "staleness of element",
		Check: func(ctx context.Context, _ browser.Page) (Match, bool) {
			return Match{}, el.Stale(ctx)
		},
	}
}
