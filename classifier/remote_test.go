package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/models"
)

func TestRemoteClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req classifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "IFM for Schools", req.Title)
		assert.Equal(t, []string{"IFM"}, req.Keywords)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"relevant": true, "confidence": 0.93}`))
	}))
	defer srv.Close()

	r := NewRemote(srv.URL+"/", "secret", time.Second)
	rel, err := r.Classify(context.Background(), "IFM for Schools", []string{"IFM"})
	require.NoError(t, err)
	assert.Equal(t, models.Relevance{Relevant: true, Confidence: 0.93}, rel)
}

func TestRemoteErrors(t *testing.T) {
	cases := []struct {
		status int
		code   string
	}{
		{http.StatusUnauthorized, models.ErrCodeClassifierAuthFailure},
		{http.StatusForbidden, models.ErrCodeClassifierAuthFailure},
		{http.StatusTooManyRequests, models.ErrCodeClassifierRateLimited},
		{http.StatusInternalServerError, models.ErrCodeClassifierFailure},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope"}}`))
			}))
			defer srv.Close()

			_, err := NewRemote(srv.URL, "", time.Second).Classify(context.Background(), "t", nil)
			require.Error(t, err)
			var se *models.ScrapeError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.code, se.Code)
			assert.Contains(t, se.Message, "nope")
		})
	}
}

func TestRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemote(url, "", time.Second).Classify(context.Background(), "t", nil)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodeClassifierFailure, se.Code)
}
