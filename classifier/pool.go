package classifier

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/use-agent/tenderscope/models"
	"golang.org/x/sync/errgroup"
)

// ClassifyAll scores every record with at most workers calls in flight and
// attaches the result in place. A record whose scoring fails keeps a nil
// Relevance; the number of such records is returned. The error is non-nil
// only when ctx ends first.
func ClassifyAll(ctx context.Context, c Classifier, records []models.TenderRecord, keywords []string, workers int) (int, error) {
	if workers < 1 {
		workers = 1
	}

	var (
		g      errgroup.Group
		failed atomic.Int32
	)
	g.SetLimit(workers)

	for i := range records {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rel, err := c.Classify(ctx, records[i].Title, keywords)
			if err != nil {
				failed.Add(1)
				slog.Warn("classification failed", "title", records[i].Title, "error", err)
				return nil
			}
			records[i].Relevance = &rel
			return nil
		})
	}
	_ = g.Wait()

	return int(failed.Load()), ctx.Err()
}
