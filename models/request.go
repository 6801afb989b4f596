package models

// GenerateRequest is the payload for POST /api/v1/generate.
type GenerateRequest struct {
	// Keywords are searched one after another. Required.
	Keywords []string `json:"keywords" binding:"required,min=1,max=20,dive,required"`

	// Classify scores every record for relevance against Keywords.
	Classify bool `json:"classify,omitempty"`

	// Full ignores previously stored titles and revisits every tender.
	Full bool `json:"full,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// RegisterRequest is the payload for POST /api/v1/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the payload for POST /api/v1/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FeedbackRequest labels a title as relevant or not, for retraining the
// relevance model.
type FeedbackRequest struct {
	Text     string `json:"text" binding:"required"`
	Relevant *bool  `json:"relevant" binding:"required"`
}
