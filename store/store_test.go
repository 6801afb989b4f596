package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUsers(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, models.User{Username: "alice", Email: "alice@example.com", HashedPassword: "hash"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = s.CreateUser(ctx, models.User{Username: "alice", Email: "other@example.com", HashedPassword: "x"})
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "hash", got.HashedPassword)

	_, err = s.GetUser(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func sampleRun() []models.TenderRecord {
	return []models.TenderRecord{
		{
			Title:           "B tender",
			Identifier:      models.Identifier{Kind: models.QuotationNumber, Value: "QN-1"},
			Agency:          "LTA",
			ReferenceNumber: models.NotAvailable,
			AwardStatus:     models.StatusAwarded,
			Respondents:     []models.Respondent{{Name: "Acme", Amount: "$1.00"}},
			Awardees:        []string{"Acme"},
			Tab:             models.TabClosed,
			Relevance:       &models.Relevance{Relevant: true, Confidence: 0.75},
		},
		{
			Title:           "A tender",
			Identifier:      models.Identifier{Kind: models.TenderNumber, Value: "TN-1"},
			Agency:          "MOE",
			ReferenceNumber: "REF",
			AwardStatus:     models.StatusOpen,
			Awardees:        models.UnavailableAwardees(),
			Tab:             models.TabOpen,
		},
	}
}

func TestSaveRunMergesByTitle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun()))

	got, err := s.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A tender", got[0].Title)
	assert.Nil(t, got[0].Relevance)
	assert.Equal(t, []models.Respondent{}, got[0].Respondents)
	assert.Equal(t, sampleRun()[0], got[1])

	updated := sampleRun()[0]
	updated.Awardees = []string{"Beta Pte Ltd"}
	require.NoError(t, s.SaveRun(ctx, []models.TenderRecord{updated, {
		Title:      "C tender",
		Identifier: models.Identifier{Kind: models.TenderNumber, Value: "TN-2"},
		Agency:     "NEA", ReferenceNumber: models.NotAvailable,
		AwardStatus: models.StatusNoAward, Awardees: models.UnavailableAwardees(), Tab: models.TabOpen,
	}}))

	got, err = s.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "A tender", got[0].Title)
	assert.Equal(t, "B tender", got[1].Title)
	assert.Equal(t, []string{"Beta Pte Ltd"}, got[1].Awardees)
	assert.Equal(t, "C tender", got[2].Title)
}

func TestReplaceRunClearsTenders(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun()))
	require.NoError(t, s.ReplaceRun(ctx, []models.TenderRecord{{
		Title:      "C tender",
		Identifier: models.Identifier{Kind: models.TenderNumber, Value: "TN-2"},
		Agency:     "NEA", ReferenceNumber: models.NotAvailable,
		AwardStatus: models.StatusNoAward, Awardees: models.UnavailableAwardees(), Tab: models.TabOpen,
	}}))

	got, err := s.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C tender", got[0].Title)

	titles, err := s.Titles(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A tender", "B tender", "C tender"}, titles)
}

func TestTendersUnknownStatusSortsLast(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	run := sampleRun()
	run[1].AwardStatus = models.AwardStatus("CANCELLED")
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.Tenders(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B tender", got[0].Title)
	assert.Equal(t, models.AwardStatus("CANCELLED"), got[1].AwardStatus)
}

func TestFeedback(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	id, err := s.AddFeedback(ctx, "IFM for schools", true, "alice")
	require.NoError(t, err)
	assert.NotZero(t, id)
	_, err = s.AddFeedback(ctx, "Glassware supply", false, "alice")
	require.NoError(t, err)

	n, err := s.FeedbackCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenFilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, sampleRun()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(ctx))

	titles, err := s.Titles(ctx)
	require.NoError(t, err)
	assert.Len(t, titles, 2)
}
