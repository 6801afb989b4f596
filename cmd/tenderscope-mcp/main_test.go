package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/models"
)

func sampleRecords() []models.TenderRecord {
	return []models.TenderRecord{
		{
			Title:           "Managing Agent Services",
			Identifier:      models.Identifier{Kind: models.QuotationNumber, Value: "Q-1"},
			Agency:          "Town Council",
			ReferenceNumber: models.NotAvailable,
			AwardStatus:     models.StatusAwarded,
			Respondents:     []models.Respondent{{Name: "Acme", Amount: "$10.00"}},
			Awardees:        []string{"Acme"},
			Tab:             models.TabClosed,
		},
		{
			Title:       "Integrated FM",
			Identifier:  models.Identifier{Kind: models.TenderNumber, Value: "T-1"},
			AwardStatus: models.StatusOpen,
			Awardees:    models.UnavailableAwardees(),
			Tab:         models.TabOpen,
		},
	}
}

func TestFormatTenders(t *testing.T) {
	out := formatTenders(sampleRecords())
	assert.Contains(t, out, "2 tenders:")
	assert.Contains(t, out, "Quotation No.: Q-1")
	assert.Contains(t, out, "Tender No.: T-1")
	assert.Contains(t, out, "Respondents: Acme ($10.00)")
	assert.Contains(t, out, "Awardees: N/A")

	assert.Equal(t, "No tenders found.\n", formatTenders(nil))
}

func TestFilterStatus(t *testing.T) {
	got := filterStatus(sampleRecords(), models.StatusOpen)
	require.Len(t, got, 1)
	assert.Equal(t, "Integrated FM", got[0].Title)
}

func TestClientGenerateAndPoll(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/generate":
			var req models.GenerateRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			assert.Equal(t, []string{"IFM"}, req.Keywords)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(models.GenerateResponse{ID: "job-9", Status: models.JobProcessing})
		case r.URL.Path == "/api/v1/generate/job-9":
			status := models.GenerateStatusResponse{ID: "job-9", Status: models.JobProcessing}
			if polls.Add(1) > 1 {
				status.Status = models.JobCompleted
				status.Results = sampleRecords()
			}
			_ = json.NewEncoder(w).Encode(status)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL, "key-1")
	c.poll = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := c.generate(ctx, models.GenerateRequest{Keywords: []string{"IFM"}})
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, status.Status)
	assert.Len(t, status.Results, 2)
	assert.Equal(t, int32(2), polls.Load())
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.NewErrorResponse(models.ErrCodeUnauthorized, "could not validate credentials"))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, "bad").tenders(context.Background())
	require.Error(t, err)
	assert.Equal(t, "[UNAUTHORIZED] could not validate credentials", err.Error())
}
