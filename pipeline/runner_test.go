package pipeline

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/classifier"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/scraper"
	"github.com/use-agent/tenderscope/store"
)

type fakeScraper struct {
	records   []models.TenderRecord
	summaries []models.KeywordSummary
	gotSeen   *scraper.TitleSet
}

func (f *fakeScraper) ScrapeKeywords(_ context.Context, keywords []string, seen *scraper.TitleSet) ([]models.TenderRecord, []models.KeywordSummary) {
	f.gotSeen = seen
	var out []models.TenderRecord
	for _, r := range f.records {
		if !seen.Has(r.Title) {
			out = append(out, r)
		}
	}
	if f.summaries != nil {
		return out, f.summaries
	}
	sums := make([]models.KeywordSummary, len(keywords))
	for i, k := range keywords {
		sums[i] = models.KeywordSummary{Keyword: k, Records: len(out)}
	}
	return out, sums
}

func record(title string, status models.AwardStatus) models.TenderRecord {
	return models.TenderRecord{
		Title:           title,
		Identifier:      models.Identifier{Kind: models.TenderNumber, Value: "T-" + title},
		Agency:          "Agency",
		ReferenceNumber: models.NotAvailable,
		AwardStatus:     status,
		Respondents:     []models.Respondent{},
		Awardees:        models.UnavailableAwardees(),
		Tab:             models.TabClosed,
	}
}

func newRunner(t *testing.T, sc KeywordScraper) (*Runner, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &Runner{
		Scraper:   sc,
		Store:     st,
		Workers:   2,
		OutputDir: t.TempDir(),
		now:       func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	}, st
}

func TestRunPersistsSortedRun(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{
		record("Zeta cleaning", models.StatusOpen),
		record("Alpha security", models.StatusNoAward),
		record("Beta FM", models.StatusAwarded),
	}}
	r, st := newRunner(t, sc)

	res, err := r.Run(context.Background(), models.GenerateRequest{Keywords: []string{"FM"}})
	require.NoError(t, err)

	titles := func(rs []models.TenderRecord) []string {
		out := make([]string, len(rs))
		for i, rec := range rs {
			out[i] = rec.Title
		}
		return out
	}
	assert.Equal(t, []string{"Zeta cleaning", "Beta FM", "Alpha security"}, titles(res.Records))
	assert.Contains(t, res.CSVPath, "tenders_20260304_050607.csv")
	_, err = os.Stat(res.CSVPath)
	require.NoError(t, err)
	assert.Equal(t, "3 new tenders written to "+res.CSVPath, res.Message())

	stored, err := st.Tenders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, titles(res.Records), titles(stored))
}

func TestRunSkipsStoredTitlesUnlessFull(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{
		record("Old tender", models.StatusAwarded),
		record("New tender", models.StatusOpen),
	}}
	r, st := newRunner(t, sc)
	ctx := context.Background()
	require.NoError(t, st.SaveRun(ctx, []models.TenderRecord{record("Old tender", models.StatusAwarded)}))

	res, err := r.Run(ctx, models.GenerateRequest{Keywords: []string{"FM"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "New tender", res.Records[0].Title)
	assert.True(t, sc.gotSeen.Has("Old tender"))

	res, err = r.Run(ctx, models.GenerateRequest{Keywords: []string{"FM"}, Full: true})
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 0, sc.gotSeen.Len())
}

func TestIncrementalRunKeepsEarlierTenders(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{record("Cleaning services", models.StatusOpen)}}
	r, st := newRunner(t, sc)
	ctx := context.Background()

	_, err := r.Run(ctx, models.GenerateRequest{Keywords: []string{"cleaning"}})
	require.NoError(t, err)

	res, err := r.Run(ctx, models.GenerateRequest{Keywords: []string{"cleaning"}})
	require.NoError(t, err)
	assert.Empty(t, res.Records)

	stored, err := st.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Cleaning services", stored[0].Title)

	sc.records = append(sc.records, record("Aircon servicing", models.StatusAwarded))
	res, err = r.Run(ctx, models.GenerateRequest{Keywords: []string{"cleaning"}})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	stored, err = st.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Cleaning services", stored[0].Title)
	assert.Equal(t, "Aircon servicing", stored[1].Title)
}

func TestFullRunReplacesStoredTenders(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{record("Current tender", models.StatusOpen)}}
	r, st := newRunner(t, sc)
	ctx := context.Background()
	require.NoError(t, st.SaveRun(ctx, []models.TenderRecord{record("Withdrawn tender", models.StatusNoAward)}))

	_, err := r.Run(ctx, models.GenerateRequest{Keywords: []string{"FM"}, Full: true})
	require.NoError(t, err)

	stored, err := st.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Current tender", stored[0].Title)

	titles, err := st.Titles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Current tender", "Withdrawn tender"}, titles)
}

func TestRunClassifies(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{
		record("Facilities Management Services", models.StatusOpen),
		record("Supply of Laptops", models.StatusOpen),
	}}
	r, _ := newRunner(t, sc)
	r.Classifier = classifier.NewKeyword(0.85)

	res, err := r.Run(context.Background(), models.GenerateRequest{
		Keywords: []string{"Facilities Management"},
		Classify: true,
	})
	require.NoError(t, err)
	byTitle := map[string]*models.Relevance{}
	for _, rec := range res.Records {
		byTitle[rec.Title] = rec.Relevance
	}
	require.NotNil(t, byTitle["Facilities Management Services"])
	assert.True(t, byTitle["Facilities Management Services"].Relevant)
	require.NotNil(t, byTitle["Supply of Laptops"])
	assert.False(t, byTitle["Supply of Laptops"].Relevant)
}

func TestRunWithoutClassifyLeavesRelevanceUnset(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{record("A", models.StatusOpen)}}
	r, _ := newRunner(t, sc)
	r.Classifier = classifier.NewKeyword(0.85)

	res, err := r.Run(context.Background(), models.GenerateRequest{Keywords: []string{"A"}})
	require.NoError(t, err)
	assert.Nil(t, res.Records[0].Relevance)
}

func TestRunFailsWhenEveryKeywordFails(t *testing.T) {
	sc := &fakeScraper{summaries: []models.KeywordSummary{
		{Keyword: "FM", Error: "SEARCH_UNAVAILABLE: search box missing"},
		{Keyword: "IFM", Error: "SEARCH_UNAVAILABLE: search box missing"},
	}}
	r, _ := newRunner(t, sc)

	_, err := r.Run(context.Background(), models.GenerateRequest{Keywords: []string{"FM", "IFM"}})
	require.Error(t, err)
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, models.ErrCodeSearchUnavailable, se.Code)
}

func TestRunPartialKeywordFailureSucceeds(t *testing.T) {
	sc := &fakeScraper{
		records: []models.TenderRecord{record("A", models.StatusOpen)},
		summaries: []models.KeywordSummary{
			{Keyword: "FM", Records: 1},
			{Keyword: "IFM", Error: "SEARCH_UNAVAILABLE"},
		},
	}
	r, _ := newRunner(t, sc)
	r.OutputDir = ""

	res, err := r.Run(context.Background(), models.GenerateRequest{Keywords: []string{"FM", "IFM"}})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Empty(t, res.CSVPath)
	assert.Equal(t, "1 new tender", res.Message())
	assert.Equal(t, "SEARCH_UNAVAILABLE", res.Keywords[1].Error)
}

func TestRunCancelled(t *testing.T) {
	sc := &fakeScraper{records: []models.TenderRecord{record("A", models.StatusOpen)}}
	r, st := newRunner(t, sc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Run(ctx, models.GenerateRequest{Keywords: []string{"A"}, Full: true})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.AsScrapeError(err).Code)

	stored, err := st.Tenders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}
