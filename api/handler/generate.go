package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/pipeline"
	"github.com/use-agent/tenderscope/webhook"
)

// Generator runs one generate cycle.
type Generator interface {
	Run(ctx context.Context, req models.GenerateRequest) (*pipeline.Result, error)
}

// Notifier delivers job events in the background.
type Notifier interface {
	DeliverAsync(url, secret string, event *webhook.Event)
}

// Jobs holds in-flight and completed generate jobs. Jobs older than ttl are
// expired by a background sweep.
type Jobs struct {
	m    sync.Map
	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewJobs creates a job registry and starts its sweeper.
func NewJobs(ttl time.Duration) *Jobs {
	j := &Jobs{ttl: ttl, done: make(chan struct{})}
	go j.sweepLoop()
	return j
}

func (j *Jobs) Get(id string) (*models.GenerateJob, bool) {
	v, ok := j.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*models.GenerateJob), true
}

func (j *Jobs) put(job *models.GenerateJob) {
	j.m.Store(job.ID, job)
}

// Sweep drops jobs created before now minus ttl.
func (j *Jobs) Sweep(now time.Time) {
	cutoff := now.Add(-j.ttl).Unix()
	j.m.Range(func(key, value any) bool {
		if value.(*models.GenerateJob).CreatedAt < cutoff {
			j.m.Delete(key)
		}
		return true
	})
}

// Close stops the sweeper.
func (j *Jobs) Close() {
	j.once.Do(func() { close(j.done) })
}

func (j *Jobs) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case now := <-ticker.C:
			j.Sweep(now)
		}
	}
}

// PostGenerate returns a handler for POST /api/v1/generate.
// It validates the request, registers a job, and runs it in the background.
// notifier may be nil when webhooks are not wanted.
func PostGenerate(gen Generator, jobs *Jobs, notifier Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		req.Keywords = cleanKeywords(req.Keywords)
		if len(req.Keywords) == 0 {
			badRequest(c, "at least one non-blank keyword is required")
			return
		}

		job := &models.GenerateJob{
			ID:        uuid.NewString(),
			Status:    models.JobProcessing,
			CreatedAt: time.Now().Unix(),
		}
		jobs.put(job)

		go runGenerate(gen, notifier, job, req)

		c.JSON(http.StatusAccepted, models.GenerateResponse{ID: job.ID, Status: models.JobProcessing})
	}
}

// GetGenerate returns a handler for GET /api/v1/generate/:id.
func GetGenerate(jobs *Jobs) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := jobs.Get(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "generate job not found", nil))
			return
		}
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// runGenerate executes the job and records its terminal state.
func runGenerate(gen Generator, notifier Notifier, job *models.GenerateJob, req models.GenerateRequest) {
	res, err := gen.Run(context.Background(), req)

	eventType := webhook.EventGenerateCompleted
	if err != nil {
		se := models.AsScrapeError(err)
		job.Finish(models.JobFailed, se.Message, "", nil, nil, se.ToDetail())
		eventType = webhook.EventGenerateFailed
		slog.Error("generate job failed", "id", job.ID, "error", err)
	} else {
		job.Finish(models.JobCompleted, res.Message(), res.CSVPath, res.Keywords, res.Records, nil)
		slog.Info("generate job finished", "id", job.ID, "records", len(res.Records))
	}

	if notifier != nil && req.WebhookURL != "" {
		notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret, webhook.NewEvent(eventType, job.ID, job.Snapshot()))
	}
}

// cleanKeywords trims keywords and drops blanks and repeats.
func cleanKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(k)]; dup {
			continue
		}
		seen[strings.ToLower(k)] = struct{}{}
		out = append(out, k)
	}
	return out
}
