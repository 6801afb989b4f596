package models

import "sync"

// Job statuses.
const (
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// GenerateJob tracks an in-progress generate run. Fields are guarded by mu
// since the runner goroutine writes while status requests read.
type GenerateJob struct {
	mu        sync.Mutex
	ID        string
	Status    string
	Message   string
	CSVPath   string
	Keywords  []KeywordSummary
	Results   []TenderRecord
	Err       *ErrorDetail
	CreatedAt int64 // unix timestamp
}

// Finish records the terminal state of the job.
func (j *GenerateJob) Finish(status, message, csvPath string, keywords []KeywordSummary, results []TenderRecord, err *ErrorDetail) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Message = message
	j.CSVPath = csvPath
	j.Keywords = keywords
	j.Results = results
	j.Err = err
}

// Snapshot returns the job as an API response.
func (j *GenerateJob) Snapshot() GenerateStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return GenerateStatusResponse{
		ID:       j.ID,
		Status:   j.Status,
		Message:  j.Message,
		CSVPath:  j.CSVPath,
		Keywords: j.Keywords,
		Results:  j.Results,
		Error:    j.Err,
	}
}
