package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/models"
	"golang.org/x/time/rate"
)

const (
	// bucketIdle is how long a caller's bucket survives without requests.
	bucketIdle = time.Hour
	// sweepEvery bounds how often idle buckets are looked for.
	sweepEvery = 5 * time.Minute
)

// buckets holds one token bucket per caller. Callers are the identities Auth
// sets ("user:<name>" for token holders, "key:<key>" for API keys); anonymous
// requests to the public routes are bucketed by client IP.
type buckets struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	byCaller  map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	used time.Time
}

func newBuckets(cfg config.RateLimitConfig) *buckets {
	return &buckets{
		rps:      rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		now:      time.Now,
		byCaller: make(map[string]*bucket),
	}
}

// allow spends one token from caller's bucket. Idle buckets are dropped on
// the way, at most once per sweepEvery.
func (b *buckets) allow(caller string) bool {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= sweepEvery {
		b.sweepLocked(now)
	}
	bk, ok := b.byCaller[caller]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(b.rps, b.burst)}
		b.byCaller[caller] = bk
	}
	bk.used = now
	return bk.lim.AllowN(now, 1)
}

func (b *buckets) sweepLocked(now time.Time) {
	for caller, bk := range b.byCaller {
		if now.Sub(bk.used) > bucketIdle {
			delete(b.byCaller, caller)
		}
	}
	b.lastSweep = now
}

func (b *buckets) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byCaller)
}

// retryAfter is the whole number of seconds until one token refills.
func (b *buckets) retryAfter() string {
	if b.rps <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(b.rps))))
}

// RateLimit throttles each caller to cfg.RequestsPerSecond with bursts of
// cfg.Burst. Mount it after Auth so authenticated requests are charged to
// the user or key rather than the IP they arrive from.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return rateLimit(newBuckets(cfg))
}

func rateLimit(b *buckets) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetString(IdentityKey)
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}

		if !b.allow(caller) {
			c.Header("Retry-After", b.retryAfter())
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				models.NewErrorResponse(models.ErrCodeRateLimited, "rate limit exceeded, please slow down"))
			return
		}
		c.Next()
	}
}
