package recommend

import (
	"context"
	"time"
)

// Repo defines persistence operations for recommendation runs.
type Repo interface {
	Create(ctx context.Context, run RecommendationRun) error
	GetByID(ctx context.Context, runID string) (RecommendationRun, error)
	UpdateStatusResultAndError(ctx context.Context, runID, status string, result *RecommendationResult, errorCode, errorMessage *string, retryable *bool, startedAt, completedAt *time.Time) error
	UpdateModel(ctx context.Context, runID, model string) error
	List(ctx context.Context, limit, offset int) ([]RecommendationRun, error)
}
