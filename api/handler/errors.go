package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tenderscope/models"
)

// respondError writes err as an ErrorResponse with the status its code maps to.
func respondError(c *gin.Context, err error) {
	se := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.ErrorResponse{Error: se.ToDetail()})
}

// badRequest rejects a malformed payload.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.NewErrorResponse(models.ErrCodeInvalidInput, msg))
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeSearchUnavailable, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeConflict:
		return http.StatusConflict // 409
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeStorage, models.ErrCodeClassifierFailure:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
