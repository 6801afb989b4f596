package classifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/use-agent/tenderscope/models"
)

// Remote calls an external scoring service:
//
//	POST {endpoint}/classify {"title": ..., "keywords": [...]}
//	-> {"relevant": bool, "confidence": float}
type Remote struct {
	client *resty.Client
}

type classifyRequest struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
}

type classifyResponse struct {
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
}

// remoteErrorResponse captures an error body from the scoring service.
type remoteErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewRemote(endpoint, apiKey string, timeout time.Duration) *Remote {
	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Remote{client: client}
}

func (r *Remote) Classify(ctx context.Context, title string, keywords []string) (models.Relevance, error) {
	var (
		out    classifyResponse
		apiErr remoteErrorResponse
	)
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(classifyRequest{Title: title, Keywords: keywords}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/classify")
	if err != nil {
		return models.Relevance{}, models.NewScrapeError(models.ErrCodeClassifierFailure, "classifier request failed", err)
	}
	if resp.IsError() {
		return models.Relevance{}, classifyRemoteError(resp.StatusCode(), apiErr.Error.Message)
	}

	conf := out.Confidence
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	return models.Relevance{Relevant: out.Relevant, Confidence: conf}, nil
}

// classifyRemoteError maps HTTP status codes to appropriate error codes.
func classifyRemoteError(statusCode int, msg string) *models.ScrapeError {
	if msg == "" {
		msg = "classifier API error"
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewScrapeError(models.ErrCodeClassifierAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewScrapeError(models.ErrCodeClassifierRateLimited, msg, nil)
	default:
		return models.NewScrapeError(models.ErrCodeClassifierFailure, fmt.Sprintf("classifier returned %d: %s", statusCode, msg), nil)
	}
}
