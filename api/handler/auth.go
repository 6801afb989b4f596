package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/auth"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/store"
)

// Register returns a handler for POST /api/v1/register.
func Register(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
		req.Username = strings.TrimSpace(req.Username)

		if err := auth.ValidatePassword(req.Password); err != nil {
			badRequest(c, err.Error())
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "failed to hash password", err))
			return
		}

		u, err := st.CreateUser(c.Request.Context(), models.User{
			Username:       req.Username,
			Email:          req.Email,
			HashedPassword: hash,
		})
		switch {
		case errors.Is(err, store.ErrUserExists):
			respondError(c, models.NewScrapeError(models.ErrCodeConflict, "username already registered", err))
			return
		case err != nil:
			respondError(c, models.NewScrapeError(models.ErrCodeStorage, "failed to create user", err))
			return
		}

		slog.Info("user registered", "username", u.Username)
		c.JSON(http.StatusCreated, models.UserResponse{ID: u.ID, Username: u.Username, Email: u.Email})
	}
}

// Login returns a handler for POST /api/v1/login.
func Login(st *store.Store, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}

		u, err := st.GetUser(c.Request.Context(), strings.TrimSpace(req.Username))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			respondError(c, models.NewScrapeError(models.ErrCodeStorage, "failed to load user", err))
			return
		}
		if err != nil || !auth.CheckPassword(u.HashedPassword, req.Password) {
			respondError(c, models.NewScrapeError(models.ErrCodeUnauthorized, "incorrect username or password", nil))
			return
		}

		token, exp, err := issuer.Issue(u.Username)
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInternal, "failed to issue token", err))
			return
		}
		c.JSON(http.StatusOK, models.TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresAt:   exp.Unix(),
		})
	}
}
