package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"petcare-backend/internal/catalog"
	"petcare-backend/internal/llm"
	"petcare-backend/internal/shared/telemetry"
)

type staticLLM struct {
	content string
	model   string
	err     error
}

func (s staticLLM) Complete(ctx context.Context, input llm.ChatInput) (llm.Completion, error) {
	_ = ctx
	_ = input
	if s.err != nil {
		return llm.Completion{}, s.err
	}
	return llm.Completion{Content: s.content, Model: s.model}, nil
}

func waitForTerminalStatus(t *testing.T, repo Repo, runID string) RecommendationRun {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		run, err := repo.GetByID(context.Background(), runID)
		if err != nil {
			t.Fatalf("get run: %v", err)
		}
		if run.Status == StatusCompleted || run.Status == StatusFailed {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal status")
	return RecommendationRun{}
}

func TestServiceCreateCompletesRun(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{
		Repo: repo,
		LLM: staticLLM{
			content: `{"analysis": {"health_summary": "Khỏe mạnh"}, "food_recommendations": [{"product_id": "prod-1", "match_point": 90}]}`,
			model:   "google/gemini-2.0-flash-exp:free",
		},
	}

	run, err := svc.Create(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.Status != StatusQueued {
		t.Fatalf("initial status = %q, want queued", run.Status)
	}
	if run.PetName != "Milu" || run.PetSpecies != "DOG" {
		t.Fatalf("run identity wrong: %+v", run)
	}

	final := waitForTerminalStatus(t, repo, run.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("final status = %q (code=%v msg=%v)", final.Status, final.ErrorCode, final.ErrorMessage)
	}
	if final.Result == nil {
		t.Fatal("completed run missing result")
	}
	if final.Result.Analysis.HealthSummary != "Khỏe mạnh" {
		t.Fatalf("health summary = %q", final.Result.Analysis.HealthSummary)
	}
	if final.Result.FoodRecommendations[0].ProductName != "Royal Canin Medium Adult" {
		t.Fatal("catalog backfill not applied in pipeline")
	}
	if final.Model != "google/gemini-2.0-flash-exp:free" {
		t.Fatalf("model = %q", final.Model)
	}
}

func TestServiceCreateFailsWhenAllModelsFail(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{
		Repo: repo,
		LLM:  staticLLM{err: fmt.Errorf("%w: status 429", llm.ErrAllModelsFailed)},
	}

	run, err := svc.Create(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	final := waitForTerminalStatus(t, repo, run.ID)
	if final.Status != StatusFailed {
		t.Fatalf("final status = %q, want failed", final.Status)
	}
	if final.ErrorCode == nil || *final.ErrorCode != ErrorCodeLLMExhausted {
		t.Fatalf("error code = %v, want %s", final.ErrorCode, ErrorCodeLLMExhausted)
	}
	if final.ErrorRetryable == nil || !*final.ErrorRetryable {
		t.Fatal("model exhaustion should be retryable")
	}
}

func TestServiceCreateFailsOnInvalidOutput(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{
		Repo: repo,
		LLM:  staticLLM{content: "I am unable to produce JSON today."},
	}

	run, err := svc.Create(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	final := waitForTerminalStatus(t, repo, run.ID)
	if final.Status != StatusFailed {
		t.Fatalf("final status = %q, want failed", final.Status)
	}
	if final.ErrorCode == nil || *final.ErrorCode != ErrorCodeLLMInvalid {
		t.Fatalf("error code = %v, want %s", final.ErrorCode, ErrorCodeLLMInvalid)
	}
	if final.ErrorRetryable == nil || *final.ErrorRetryable {
		t.Fatal("invalid output should not be retryable")
	}
}

func TestServiceCreateWithoutClientIsConfigError(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo()}

	_, err := svc.Create(context.Background(), testBundle())
	if !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
	code, retryable := classifyFailure(err)
	if code != ErrorCodeConfiguration || retryable {
		t.Fatalf("classifyFailure = (%s, %t), want (%s, false)", code, retryable, ErrorCodeConfiguration)
	}
}

// processingStuckRepo rejects the queued->processing transition while
// delegating everything else, so the run fails before it ever starts
// processing.
type processingStuckRepo struct {
	*MemoryRepo
}

func (r *processingStuckRepo) UpdateStatusResultAndError(ctx context.Context, runID, status string, result *RecommendationResult, errorCode, errorMessage *string, retryable *bool, startedAt, completedAt *time.Time) error {
	if status == StatusProcessing {
		return errors.New("connection refused")
	}
	return r.MemoryRepo.UpdateStatusResultAndError(ctx, runID, status, result, errorCode, errorMessage, retryable, startedAt, completedAt)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFailBeforeProcessingLogsQueuedTransition(t *testing.T) {
	var logged syncBuffer
	restore := telemetry.SetOutput(&logged)
	defer restore()

	repo := &processingStuckRepo{MemoryRepo: NewMemoryRepo()}
	svc := &Service{Repo: repo, LLM: staticLLM{content: "{}"}}

	run, err := svc.Create(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	final := waitForTerminalStatus(t, repo, run.ID)
	if final.Status != StatusFailed {
		t.Fatalf("final status = %q, want failed", final.Status)
	}
	if final.ErrorCode == nil || *final.ErrorCode != ErrorCodeStorage {
		t.Fatalf("error code = %v, want %s", final.ErrorCode, ErrorCodeStorage)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(logged.String(), `"status_transition":"queued->failed"`) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("failure before processing not logged as queued->failed:\n%s", logged.String())
}

func TestServiceCreateRejectsInvalidBundle(t *testing.T) {
	svc := &Service{Repo: NewMemoryRepo(), LLM: staticLLM{content: "{}"}}

	cases := []struct {
		name   string
		mutate func(*catalog.AnalysisBundle)
	}{
		{"missing name", func(b *catalog.AnalysisBundle) { b.Pet.Name = " " }},
		{"missing species", func(b *catalog.AnalysisBundle) { b.Pet.Species = "" }},
		{"negative age", func(b *catalog.AnalysisBundle) { b.Pet.AgeMonths = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bundle := testBundle()
			tc.mutate(&bundle)
			if _, err := svc.Create(context.Background(), bundle); !errors.Is(err, ErrInvalidBundle) {
				t.Fatalf("err = %v, want ErrInvalidBundle", err)
			}
		})
	}
}

func TestServiceFallbackNeverCallsModel(t *testing.T) {
	svc := &Service{
		Repo: NewMemoryRepo(),
		LLM:  staticLLM{err: errors.New("must not be called")},
	}
	bundle := testBundle()
	result, err := svc.Fallback(context.Background(), bundle)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if len(result.FoodRecommendations) == 0 {
		t.Fatal("fallback produced no foods for a matching catalog")
	}
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  string
		wantRetry bool
	}{
		{"deadline", context.DeadlineExceeded, ErrorCodeLLMTimeout, true},
		{"all models", llm.ErrAllModelsFailed, ErrorCodeLLMExhausted, true},
		{"missing key", llm.ErrMissingAPIKey, ErrorCodeConfiguration, false},
		{"invalid output", errors.New("llm output invalid: no JSON object found"), ErrorCodeLLMInvalid, false},
		{"storage", errors.New("storage: set result: connection refused"), ErrorCodeStorage, true},
		{"unknown", errors.New("boom"), ErrorCodeInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, retryable := classifyFailure(tc.err)
			if code != tc.wantCode || retryable != tc.wantRetry {
				t.Fatalf("classifyFailure(%v) = (%s, %t), want (%s, %t)", tc.err, code, retryable, tc.wantCode, tc.wantRetry)
			}
		})
	}
}

func TestSanitizeErrorTruncatesAndFlattens(t *testing.T) {
	long := errors.New("line one\nline two\r" + strings.Repeat("x", 600))
	msg := sanitizeError(long)
	if len(msg) > 500 {
		t.Fatalf("message length = %d, want <= 500", len(msg))
	}
	if strings.ContainsAny(msg, "\n\r") {
		t.Fatalf("sanitized message still contains newlines: %q", msg)
	}
}
