package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"petcare-backend/internal/catalog"
	"petcare-backend/internal/llm"
	"petcare-backend/internal/shared/metrics"
	"petcare-backend/internal/shared/telemetry"
)

// ErrInvalidBundle reports a request body that cannot start a run.
var ErrInvalidBundle = errors.New("invalid analysis bundle")

// Service contains business logic for recommendation runs.
type Service struct {
	Repo Repo
	LLM  llm.Client
}

// Create enqueues a new recommendation run and kicks off asynchronous completion.
func (s *Service) Create(ctx context.Context, bundle catalog.AnalysisBundle) (RecommendationRun, error) {
	if err := validateBundle(bundle); err != nil {
		return RecommendationRun{}, err
	}
	if s.LLM == nil {
		return RecommendationRun{}, fmt.Errorf("llm client not configured: %w", llm.ErrMissingAPIKey)
	}

	run := RecommendationRun{
		ID:         uuid.NewString(),
		PetName:    strings.TrimSpace(bundle.Pet.Name),
		PetSpecies: catalog.NormalizeSpecies(bundle.Pet.Species),
		Status:     StatusQueued,
		Bundle:     &bundle,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, run); err != nil {
		return RecommendationRun{}, fmt.Errorf("storage: create run: %w", err)
	}

	go s.completeAsync(backgroundWithRequestID(ctx), run.ID)

	return run, nil
}

// Get returns a run by ID.
func (s *Service) Get(ctx context.Context, runID string) (RecommendationRun, error) {
	if runID == "" {
		return RecommendationRun{}, errors.New("runID is required")
	}
	return s.Repo.GetByID(ctx, runID)
}

// List returns runs ordered newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]RecommendationRun, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Fallback runs the rule-based engine synchronously. It never touches
// the network and never fails for well-formed input.
func (s *Service) Fallback(ctx context.Context, bundle catalog.AnalysisBundle) (RecommendationResult, error) {
	if err := validateBundle(bundle); err != nil {
		return RecommendationResult{}, err
	}
	result := FallbackRecommendation(bundle)
	metrics.IncFallbackServed()
	telemetry.Info("recommendation.fallback", map[string]any{
		"request_id":    requestIDFromContext(ctx),
		"pet_name":      bundle.Pet.Name,
		"pet_species":   catalog.NormalizeSpecies(bundle.Pet.Species),
		"food_count":    len(result.FoodRecommendations),
		"service_count": len(result.ServiceRecommendations),
	})
	return result, nil
}

func validateBundle(bundle catalog.AnalysisBundle) error {
	if strings.TrimSpace(bundle.Pet.Name) == "" {
		return fmt.Errorf("%w: pet name is required", ErrInvalidBundle)
	}
	if strings.TrimSpace(bundle.Pet.Species) == "" {
		return fmt.Errorf("%w: pet species is required", ErrInvalidBundle)
	}
	if bundle.Pet.AgeMonths < 0 {
		return fmt.Errorf("%w: pet ageMonths must be >= 0", ErrInvalidBundle)
	}
	return nil
}

func (s *Service) completeAsync(ctx context.Context, runID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failRun(ctx, runID, "", StatusProcessing, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.UpdateStatusResultAndError(ctx, runID, StatusProcessing, nil, nil, nil, nil, &startedAt, nil); err != nil {
		s.failRun(ctx, runID, "", StatusQueued, fmt.Errorf("storage: set processing: %w", err), &startedAt)
		return
	}

	run, err := s.Repo.GetByID(ctx, runID)
	if err != nil {
		s.failRun(ctx, runID, "", StatusProcessing, fmt.Errorf("storage: run lookup: %w", err), &startedAt)
		return
	}
	metrics.IncRecommendationStarted()
	telemetry.Info("recommendation.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"recommendation_id": run.ID,
		"pet_name":          run.PetName,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	if run.Bundle == nil {
		s.failRun(ctx, runID, run.PetName, StatusProcessing, errors.New("storage: run bundle missing"), &startedAt)
		return
	}
	bundle := *run.Bundle

	system, user := BuildPrompts(bundle)
	completion, err := s.LLM.Complete(ctx, llm.ChatInput{
		SystemPrompt: system,
		UserPrompt:   user,
		Label:        "recommendation:" + runID,
	})
	if err != nil {
		s.failRun(ctx, runID, run.PetName, StatusProcessing, fmt.Errorf("llm complete: %w", err), &startedAt)
		return
	}
	if completion.Model != "" {
		if err := s.Repo.UpdateModel(ctx, runID, completion.Model); err != nil {
			s.failRun(ctx, runID, run.PetName, StatusProcessing, fmt.Errorf("storage: set model: %w", err), &startedAt)
			return
		}
	}

	result, err := Normalize(completion.Content, bundle)
	if err != nil {
		s.failRun(ctx, runID, run.PetName, StatusProcessing, fmt.Errorf("llm output invalid: %w", err), &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.UpdateStatusResultAndError(ctx, runID, StatusCompleted, &result, nil, nil, nil, nil, &completedAt); err != nil {
		s.failRun(ctx, runID, run.PetName, StatusProcessing, fmt.Errorf("storage: set result: %w", err), &startedAt)
		return
	}
	metrics.IncRecommendationCompleted()
	metrics.ObserveRecommendationDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("recommendation.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"recommendation_id": run.ID,
		"pet_name":          run.PetName,
		"model":             completion.Model,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

func (s *Service) failRun(ctx context.Context, runID, petName, fromStatus string, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.UpdateStatusResultAndError(context.Background(), runID, StatusFailed, nil, &code, &msg, &retryable, nil, &completedAt); updateErr != nil {
		telemetry.Error("recommendation.fail_update", map[string]any{
			"recommendation_id": runID,
			"error":             updateErr.Error(),
			"original_error":    sanitizeError(err),
		})
	}
	metrics.IncRecommendationFailed()
	if startedAt != nil {
		metrics.ObserveRecommendationDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("recommendation.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"recommendation_id": runID,
		"pet_name":          petName,
		"status":            StatusFailed,
		"status_transition": fromStatus + "->" + StatusFailed,
		"error_code":        code,
		"retryable":         retryable,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	if errors.Is(err, llm.ErrAllModelsFailed) {
		return ErrorCodeLLMExhausted, true
	}
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return ErrorCodeConfiguration, false
	}
	if errors.Is(err, ErrInvalidBundle) {
		return ErrorCodeValidation, false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "llm output invalid") || strings.Contains(msg, "llm output parse") {
		return ErrorCodeLLMInvalid, false
	}
	if strings.Contains(msg, "storage") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
