package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/api/middleware"
	"github.com/use-agent/tenderscope/models"
	"github.com/use-agent/tenderscope/store"
)

// Tenders returns a handler for GET /api/v1/tenders: every stored tender in
// report order.
func Tenders(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := st.Tenders(c.Request.Context())
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeStorage, "failed to load tenders", err))
			return
		}
		if records == nil {
			records = []models.TenderRecord{}
		}
		c.JSON(http.StatusOK, models.TendersResponse{Total: len(records), Results: records})
	}
}

// Feedback returns a handler for POST /api/v1/feedback.
func Feedback(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}

		id, err := st.AddFeedback(c.Request.Context(), req.Text, *req.Relevant, c.GetString(middleware.UsernameKey))
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeStorage, "failed to record feedback", err))
			return
		}
		c.JSON(http.StatusCreated, models.FeedbackResponse{ID: id})
	}
}
