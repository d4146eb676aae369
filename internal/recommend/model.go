package recommend

import (
	"time"

	"petcare-backend/internal/catalog"
)

// Run statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RecommendationRun represents one recommendation pipeline job.
type RecommendationRun struct {
	ID             string                  `json:"id"`
	PetName        string                  `json:"petName"`
	PetSpecies     string                  `json:"petSpecies"`
	Status         string                  `json:"status"`
	Model          string                  `json:"model,omitempty"`
	Bundle         *catalog.AnalysisBundle `json:"-"`
	Result         *RecommendationResult   `json:"result,omitempty"`
	ErrorCode      *string                 `json:"errorCode,omitempty"`
	ErrorMessage   *string                 `json:"errorMessage,omitempty"`
	ErrorRetryable *bool                   `json:"errorRetryable,omitempty"`
	StartedAt      *time.Time              `json:"startedAt,omitempty"`
	CompletedAt    *time.Time              `json:"completedAt,omitempty"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
}
