package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/browser"
	"github.com/use-agent/tenderscope/browser/browsertest"
	"github.com/use-agent/tenderscope/models"
)

func locatorPage(t *testing.T, body string) browser.Page {
	t.Helper()
	p := browsertest.NewPortal()
	p.Set("https://locate.test/", "<html><body>"+body+"</body></html>")
	page, err := p.NewPage(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = page.Close() })
	require.NoError(t, page.Navigate(context.Background(), "https://locate.test/"))
	return page
}

func TestLocateIdentifierFallback(t *testing.T) {
	l := NewLocator(DefaultSelectors())
	ctx := context.Background()

	page := locatorPage(t, field("Quotation No.", "QN-42")+field("Agency", "LTA"))
	got, err := l.Locate(ctx, page, FieldIdentifier)
	require.NoError(t, err)
	assert.Equal(t, Located{Value: "QN-42", Strategy: string(models.QuotationNumber)}, got)

	page = locatorPage(t, field("Tender No.", "TN-7")+field("Quotation No.", "QN-42"))
	got, err = l.Locate(ctx, page, FieldIdentifier)
	require.NoError(t, err)
	assert.Equal(t, string(models.TenderNumber), got.Strategy)
	assert.Equal(t, "TN-7", got.Value)
}

func TestLocateBlankFallsThrough(t *testing.T) {
	l := NewLocator(DefaultSelectors())
	ctx := context.Background()

	page := locatorPage(t, field("Tender No.", "   ")+field("Quotation No.", "QN-1"))
	got, err := l.Locate(ctx, page, FieldIdentifier)
	require.NoError(t, err)
	assert.Equal(t, "QN-1", got.Value)
}

func TestLocateNotFound(t *testing.T) {
	l := NewLocator(DefaultSelectors())
	ctx := context.Background()
	page := locatorPage(t, field("Agency", "LTA"))

	_, err := l.Locate(ctx, page, FieldIdentifier)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	assert.Equal(t, models.NotAvailable, l.LocateOr(ctx, page, FieldReference, models.NotAvailable))
	assert.Equal(t, "LTA", l.LocateOr(ctx, page, FieldAgency, models.NotAvailable))

	_, err = l.Locate(ctx, page, "budget")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFieldNotFound)
}

func TestLocateAwardStatus(t *testing.T) {
	l := NewLocator(DefaultSelectors())
	page := locatorPage(t, `<span id="j_idt238">PENDING AWARD</span>`)

	got, err := l.Locate(context.Background(), page, FieldAwardStatus)
	require.NoError(t, err)
	assert.Equal(t, "PENDING AWARD", got.Value)
}

func TestStrategiesOrder(t *testing.T) {
	l := NewLocator(DefaultSelectors())
	st := l.Strategies(FieldIdentifier)
	require.Len(t, st, 2)
	assert.Equal(t, string(models.TenderNumber), st[0].Name)
	assert.Equal(t, string(models.QuotationNumber), st[1].Name)
}
