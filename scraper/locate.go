package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/models"
)

// ErrFieldNotFound is returned when every strategy for a field fails.
var ErrFieldNotFound = errors.New("field not found")

// Logical detail-page fields.
const (
	FieldIdentifier  = "identifier"
	FieldAgency      = "agency"
	FieldReference   = "reference_number"
	FieldAwardStatus = "award_status"
)

// Strategy is one way of resolving a field.
type Strategy struct {
	Name     string
	Selector browser.Selector
}

// Located is a resolved field value and the strategy that produced it.
type Located struct {
	Value    string
	Strategy string
}

// Locator maps logical fields to ordered strategies.
type Locator struct {
	fields map[string][]Strategy
}

// NewLocator builds the field table from sel. The identifier field tries
// the tender number first; the strategy names double as identifier kinds.
func NewLocator(sel Selectors) *Locator {
	return &Locator{
		fields: map[string][]Strategy{
			FieldIdentifier: {
				{Name: string(models.TenderNumber), Selector: sel.ValueOf(sel.TenderNoLabel)},
				{Name: string(models.QuotationNumber), Selector: sel.ValueOf(sel.QuotationNoLabel)},
			},
			FieldAgency: {
				{Name: "label", Selector: sel.ValueOf(sel.AgencyLabel)},
			},
			FieldReference: {
				{Name: "label", Selector: sel.ValueOf(sel.ReferenceLabel)},
			},
			FieldAwardStatus: {
				{Name: "status", Selector: browser.ID(sel.AwardStatus)},
			},
		},
	}
}

// Strategies returns the strategies for field in the order they are tried.
func (l *Locator) Strategies(field string) []Strategy {
	return l.fields[field]
}

// Locate resolves field on f. A strategy that errors or yields only
// whitespace falls through to the next one.
func (l *Locator) Locate(ctx context.Context, f browser.Finder, field string) (Located, error) {
	strategies, ok := l.fields[field]
	if !ok {
		return Located{}, fmt.Errorf("unknown field %q", field)
	}
	for _, st := range strategies {
		el, err := f.Find(ctx, st.Selector)
		if err != nil {
			continue
		}
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text == "" {
			continue
		}
		return Located{Value: text, Strategy: st.Name}, nil
	}
	return Located{}, fmt.Errorf("%w: %s", ErrFieldNotFound, field)
}

// LocateOr resolves field, returning fallback when it cannot be found.
func (l *Locator) LocateOr(ctx context.Context, f browser.Finder, field, fallback string) string {
	loc, err := l.Locate(ctx, f, field)
	if err != nil {
		return fallback
	}
	return loc.Value
}
