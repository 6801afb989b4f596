package classifier

import (
	"context"

	"github.com/use-agent/tenderscope/cache"
	"github.com/use-agent/tenderscope/models"
)

// Cached fronts another Classifier with a score cache. Failures are not
// cached.
type Cached struct {
	next  Classifier
	cache *cache.Cache
}

func NewCached(next Classifier, c *cache.Cache) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Classify(ctx context.Context, title string, keywords []string) (models.Relevance, error) {
	key := cache.Key(title, keywords...)
	if rel, ok := c.cache.Get(key); ok {
		return rel, nil
	}
	rel, err := c.next.Classify(ctx, title, keywords)
	if err != nil {
		return models.Relevance{}, err
	}
	c.cache.Set(key, rel)
	return rel, nil
}
