// Package classifier scores tender titles for relevance to a keyword list.
// Scoring is independent of the crawl and runs after it, per record.
package classifier

import (
	"context"

	"github.com/use-agent/tenderscope/cache"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/models"
)

// Classifier scores one title against the keywords it was searched with.
type Classifier interface {
	Classify(ctx context.Context, title string, keywords []string) (models.Relevance, error)
}

// New returns the remote scorer when an endpoint is configured and the
// built-in keyword scorer otherwise, fronted by c when c is non-nil.
func New(cfg config.ClassifierConfig, c *cache.Cache) Classifier {
	var base Classifier
	if cfg.Endpoint != "" {
		base = NewRemote(cfg.Endpoint, cfg.APIKey, cfg.Timeout)
	} else {
		base = NewKeyword(cfg.Threshold)
	}
	if c == nil {
		return base
	}
	return NewCached(base, c)
}
