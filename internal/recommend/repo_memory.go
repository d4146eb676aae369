package recommend

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores recommendation runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]RecommendationRun
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]RecommendationRun)}
}

// Create stores the run.
func (r *MemoryRepo) Create(ctx context.Context, run RecommendationRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[run.ID] = run
	return nil
}

// GetByID returns a run by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, runID string) (RecommendationRun, error) {
	if err := ctx.Err(); err != nil {
		return RecommendationRun{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.byID[runID]
	if !ok {
		return RecommendationRun{}, ErrNotFound
	}
	return run, nil
}

// UpdateStatusResultAndError updates status/result/error fields and timestamps.
func (r *MemoryRepo) UpdateStatusResultAndError(ctx context.Context, runID, status string, result *RecommendationResult, errorCode, errorMessage *string, retryable *bool, startedAt, completedAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.byID[runID]
	if !ok {
		return ErrNotFound
	}
	run.Status = status
	if result != nil {
		run.Result = result
	}
	if errorCode != nil {
		run.ErrorCode = errorCode
	}
	if errorMessage != nil {
		run.ErrorMessage = errorMessage
	}
	if retryable != nil {
		run.ErrorRetryable = retryable
	}
	if startedAt != nil {
		run.StartedAt = startedAt
	} else if status == StatusProcessing && run.StartedAt == nil {
		now := time.Now().UTC()
		run.StartedAt = &now
	}
	if completedAt != nil {
		run.CompletedAt = completedAt
	} else if (status == StatusCompleted || status == StatusFailed) && run.CompletedAt == nil {
		now := time.Now().UTC()
		run.CompletedAt = &now
	}
	run.UpdatedAt = time.Now().UTC()
	r.byID[runID] = run
	return nil
}

// UpdateModel records which model produced the run's result.
func (r *MemoryRepo) UpdateModel(ctx context.Context, runID, model string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.byID[runID]
	if !ok {
		return ErrNotFound
	}
	run.Model = model
	run.UpdatedAt = time.Now().UTC()
	r.byID[runID] = run
	return nil
}

// List returns runs newest first, with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]RecommendationRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	runs := make([]RecommendationRun, 0, len(r.byID))
	for _, run := range r.byID {
		runs = append(runs, run)
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if offset >= len(runs) {
		return []RecommendationRun{}, nil
	}
	end := len(runs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return runs[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
