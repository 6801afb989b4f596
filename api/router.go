package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/api/handler"
	"github.com/use-agent/tenderscope/api/middleware"
	"github.com/use-agent/tenderscope/auth"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/store"
)

// Deps are the services the routes are built on. Notifier may be nil.
type Deps struct {
	Config    *config.Config
	Sessions  handler.SessionStats
	Store     *store.Store
	Generator handler.Generator
	Jobs      *handler.Jobs
	Issuer    *auth.Issuer
	Notifier  handler.Notifier
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:    Recovery → Logger → CORS
//	Public:    RateLimit (by IP)
//	Protected: Auth (if enabled) → RateLimit
//
// Health is outside auth so monitoring probes always work.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	v1 := r.Group("/api/v1")

	// Health, no auth.
	v1.GET("/health", handler.Health(d.Sessions, d.Store, d.StartTime))

	// Account
	public := v1.Group("")
	public.Use(middleware.RateLimit(cfg.RateLimit))
	public.POST("/register", handler.Register(d.Store))
	public.POST("/login", handler.Login(d.Store, d.Issuer))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(d.Issuer, cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Generate
	protected.POST("/generate", handler.PostGenerate(d.Generator, d.Jobs, d.Notifier))
	protected.GET("/generate/:id", handler.GetGenerate(d.Jobs))

	// Results
	protected.GET("/tenders", handler.Tenders(d.Store))
	protected.POST("/feedback", handler.Feedback(d.Store))

	return r
}
