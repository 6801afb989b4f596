package models

// ErrorResponse is the body for every failed API call.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// NewErrorResponse builds an ErrorResponse from a code and message.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: &ErrorDetail{Code: code, Message: message}}
}

// TokenResponse is the response for POST /api/v1/login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// KeywordSummary reports how one keyword's crawl went.
type KeywordSummary struct {
	Keyword string `json:"keyword"`
	Records int    `json:"records"`
	Pages   int    `json:"pages"`
	Skipped int    `json:"skipped"`
	Dropped int    `json:"dropped"`
	Error   string `json:"error,omitempty"`
}

// GenerateResponse is the immediate response for POST /api/v1/generate.
type GenerateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// GenerateStatusResponse is the response for GET /api/v1/generate/:id.
type GenerateStatusResponse struct {
	ID       string           `json:"id"`
	Status   string           `json:"status"`
	Message  string           `json:"message,omitempty"`
	CSVPath  string           `json:"csv_path,omitempty"`
	Keywords []KeywordSummary `json:"keywords,omitempty"`
	Results  []TenderRecord   `json:"results,omitempty"`
	Error    *ErrorDetail     `json:"error,omitempty"`
}

// TendersResponse is the response for GET /api/v1/tenders.
type TendersResponse struct {
	Total   int            `json:"total"`
	Results []TenderRecord `json:"results"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"` // "healthy" or "degraded"
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
	MaxSessions    int    `json:"max_sessions"`
	Version        string `json:"version"`
}

// UserResponse is the response for POST /api/v1/register.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// FeedbackResponse is the response for POST /api/v1/feedback.
type FeedbackResponse struct {
	ID int64 `json:"id"`
}
