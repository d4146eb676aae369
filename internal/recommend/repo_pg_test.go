package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"petcare-backend/internal/catalog"
)

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	run := RecommendationRun{
		ID:         "run-1",
		PetName:    "Milu",
		PetSpecies: "DOG",
		Status:     StatusQueued,
		Bundle:     &catalog.AnalysisBundle{Pet: catalog.PetProfile{Name: "Milu", Species: "DOG"}},
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO recommendation_runs").
		WithArgs(
			run.ID,
			run.PetName,
			run.PetSpecies,
			run.Status,
			nil,              // model
			sqlmock.AnyArg(), // bundle JSONB
			nil,              // result
			run.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), run); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByIDScansJSONB(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	now := time.Now().UTC()
	columns := []string{
		"id", "pet_name", "pet_species", "status", "model", "bundle", "result",
		"error_code", "error_message", "error_retryable", "started_at", "completed_at",
		"created_at", "updated_at",
	}
	rows := sqlmock.NewRows(columns).AddRow(
		"run-1", "Milu", "DOG", StatusCompleted,
		"google/gemini-2.0-flash-exp:free",
		`{"pet":{"name":"Milu","species":"DOG","age_months":24,"sterilized":false}}`,
		`{"analysis":{"health_summary":"OK","weight_status":"NORMAL","activity_level":"MODERATE","nutritional_needs":{"protein":"MEDIUM","fat":"MEDIUM","fiber":"MEDIUM","avoid_ingredients":[]},"health_indices":[]},"food_recommendations":[],"service_recommendations":[]}`,
		nil, nil, nil, now, now, now, now,
	)
	mock.ExpectQuery("SELECT id, pet_name, pet_species").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.GetByID(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Bundle == nil || run.Bundle.Pet.Name != "Milu" {
		t.Fatalf("bundle not decoded: %+v", run.Bundle)
	}
	if run.Result == nil || run.Result.Analysis.HealthSummary != "OK" {
		t.Fatalf("result not decoded: %+v", run.Result)
	}
	if run.Model != "google/gemini-2.0-flash-exp:free" {
		t.Fatalf("model = %q", run.Model)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT id, pet_name, pet_species").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec("UPDATE recommendation_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatusResultAndError(context.Background(), "missing", StatusFailed, nil, nil, nil, nil, nil, nil)
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
