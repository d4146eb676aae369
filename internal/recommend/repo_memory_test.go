package recommend

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRepoLifecycle(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	run := RecommendationRun{
		ID:         "run-1",
		PetName:    "Milu",
		PetSpecies: "DOG",
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("create: %v", err)
	}

	startedAt := time.Now().UTC()
	if err := repo.UpdateStatusResultAndError(ctx, "run-1", StatusProcessing, nil, nil, nil, nil, &startedAt, nil); err != nil {
		t.Fatalf("set processing: %v", err)
	}

	result := &RecommendationResult{}
	completedAt := time.Now().UTC()
	if err := repo.UpdateStatusResultAndError(ctx, "run-1", StatusCompleted, result, nil, nil, nil, nil, &completedAt); err != nil {
		t.Fatalf("set completed: %v", err)
	}
	if err := repo.UpdateModel(ctx, "run-1", "google/gemini-2.0-flash-exp:free"); err != nil {
		t.Fatalf("set model: %v", err)
	}

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.Result == nil {
		t.Fatal("result missing")
	}
	if got.Model != "google/gemini-2.0-flash-exp:free" {
		t.Fatalf("model = %q", got.Model)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Fatal("timestamps missing")
	}
}

func TestMemoryRepoNotFound(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateModel(ctx, "missing", "m"); err != ErrNotFound {
		t.Fatalf("update missing: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		run := RecommendationRun{
			ID:        id,
			PetName:   "pet-" + id,
			Status:    StatusQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	runs, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Fatalf("order = %s,%s, want new,mid", runs[0].ID, runs[1].ID)
	}

	runs, err = repo.List(ctx, 10, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "old" {
		t.Fatalf("offset page wrong: %+v", runs)
	}
}
