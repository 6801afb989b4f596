package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/models"
)

// ListingEntry is a result link captured from a listing page.
type ListingEntry struct {
	Title  string
	Target string
}

// ExtractDetail opens the entry's detail page and reads the full record.
// Required fields that cannot be resolved yield a *models.SkipError; the
// respondent and awardee sections degrade to empty or sentinel values.
// The page is left on the detail view; returning to the listing is the
// caller's job. Tab is left unset.
func (cs *CrawlSession) ExtractDetail(ctx context.Context, entry ListingEntry) (models.TenderRecord, error) {
	skip := func(reason models.SkipReason, err error) (models.TenderRecord, error) {
		return models.TenderRecord{}, models.NewSkipError(reason, entry.Title, err)
	}

	if err := cs.navigate(ctx, entry.Target); err != nil {
		return skip(models.SkipNavigationFailed, err)
	}
	// The detail view renders its labels first and fills the value
	// containers later; no container means nothing can be read yet.
	if _, err := cs.await(ctx, PresentByClass(cs.sel.ValueContainer), cs.wait.Timeout); err != nil {
		return skip(models.SkipPageLoadTimeout, err)
	}

	id, err := cs.locator.Locate(ctx, cs.page, FieldIdentifier)
	if err != nil {
		return skip(models.SkipNoIdentifier, err)
	}
	agency, err := cs.locator.Locate(ctx, cs.page, FieldAgency)
	if err != nil {
		return skip(models.SkipNoAgency, err)
	}
	// Many quotations carry no reference number. Its absence is recorded,
	// not fatal.
	ref := cs.locator.LocateOr(ctx, cs.page, FieldReference, models.NotAvailable)
	status, err := cs.locator.Locate(ctx, cs.page, FieldAwardStatus)
	if err != nil {
		return skip(models.SkipNoAwardStatus, err)
	}

	rec := models.TenderRecord{
		Title:           entry.Title,
		Identifier:      models.Identifier{Kind: models.IdentifierKind(id.Strategy), Value: id.Value},
		Agency:          agency.Value,
		ReferenceNumber: ref,
		AwardStatus:     models.ParseAwardStatus(status.Value),
		Awardees:        models.UnavailableAwardees(),
	}

	// Respondents and awardees live on secondary tabs that open only for
	// some tenders. Neither can drop a record once the core fields are in.
	respondents, err := cs.respondents(ctx)
	if err != nil {
		cs.log.Debug("respondents unavailable", "title", entry.Title, "error", err)
		respondents = []models.Respondent{}
	}
	rec.Respondents = respondents

	if rec.AwardStatus == models.StatusAwarded {
		awardees, err := cs.awardees(ctx)
		switch {
		case err != nil:
			cs.log.Debug("awardees unavailable", "title", entry.Title, "error", err)
		case len(awardees) > 0:
			rec.Awardees = awardees
		}
	}

	return rec, nil
}

// respondents opens the Respondents tab and reads each accordion entry as
// (name, amount) in document order. Entries missing either part are
// skipped.
func (cs *CrawlSession) respondents(ctx context.Context) ([]models.Respondent, error) {
	m, err := cs.await(ctx, ClickableBy(browser.Class(cs.sel.RespondentsTab)), cs.wait.Timeout)
	if err != nil {
		return nil, fmt.Errorf("respondents tab: %w", err)
	}
	if err := m.Element.Click(ctx); err != nil {
		return nil, fmt.Errorf("open respondents tab: %w", err)
	}
	if _, err := cs.await(ctx, PresentByClass(cs.sel.AccordionName), cs.wait.Timeout); err != nil {
		return nil, fmt.Errorf("respondent entries: %w", err)
	}

	blocks, err := cs.page.FindAll(ctx, browser.Class(cs.sel.AccordionBlock))
	if err != nil {
		return nil, err
	}
	out := make([]models.Respondent, 0, len(blocks))
	for _, block := range blocks {
		name, err := textOf(ctx, block, browser.Class(cs.sel.AccordionName))
		if err != nil || name == "" {
			continue
		}
		bar, err := textOf(ctx, block, browser.Class(cs.sel.AccordionBar))
		if err != nil {
			continue
		}
		out = append(out, models.Respondent{Name: name, Amount: bidAmount(bar, name)})
	}
	return out, nil
}

// bidAmount strips the respondent name from the accordion title bar, which
// renders name and amount together.
func bidAmount(bar, name string) string {
	amount := strings.TrimSpace(strings.TrimPrefix(bar, name))
	if amount == "" {
		return models.NotAvailable
	}
	return amount
}

// awardees opens the Awarded tab and collects the names under every
// section headed with the awardee header.
func (cs *CrawlSession) awardees(ctx context.Context) ([]string, error) {
	m, err := cs.await(ctx, ClickableBy(browser.Name(cs.sel.AwardedTab)), cs.wait.Timeout)
	if err != nil {
		return nil, fmt.Errorf("awarded tab: %w", err)
	}
	if err := m.Element.Click(ctx); err != nil {
		return nil, fmt.Errorf("open awarded tab: %w", err)
	}
	m, err = cs.await(ctx, AllPresentBy(browser.CSS(cs.sel.SectionHeader)), cs.wait.Timeout)
	if err != nil {
		return nil, fmt.Errorf("award sections: %w", err)
	}

	var names []string
	for _, section := range m.Elements {
		header, err := textOf(ctx, section, browser.CSS(cs.sel.SectionHeaderText))
		if err != nil || header != cs.sel.AwardeeHeader {
			continue
		}
		content, err := section.Find(ctx, browser.XPath(cs.sel.AwardeeContent))
		if err != nil {
			continue
		}
		name, err := textOf(ctx, content, browser.CSS(cs.sel.AwardeeName))
		if err != nil || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func textOf(ctx context.Context, f browser.Finder, sel browser.Selector) (string, error) {
	el, err := f.Find(ctx, sel)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
