package recommend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"petcare-backend/internal/catalog"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new run.
func (r *PGRepo) Create(ctx context.Context, run RecommendationRun) error {
	const query = `
INSERT INTO recommendation_runs (
	id, pet_name, pet_species, status, model, bundle, result, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	bundlePayload, err := marshalJSONB(run.Bundle)
	if err != nil {
		return err
	}
	resultPayload, err := marshalJSONB(run.Result)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		run.ID,
		run.PetName,
		run.PetSpecies,
		run.Status,
		nullString(run.Model),
		bundlePayload,
		resultPayload,
		run.CreatedAt,
	)
	return err
}

// GetByID returns a run by ID.
func (r *PGRepo) GetByID(ctx context.Context, runID string) (RecommendationRun, error) {
	const query = `
SELECT id, pet_name, pet_species, status, model, bundle, result,
       error_code, error_message, error_retryable, started_at, completed_at, created_at, updated_at
FROM recommendation_runs
WHERE id = $1
LIMIT 1`
	run, err := scanRun(r.DB.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return RecommendationRun{}, ErrNotFound
	}
	return run, err
}

// UpdateStatusResultAndError updates status/result/error fields and timestamps.
func (r *PGRepo) UpdateStatusResultAndError(ctx context.Context, runID, status string, result *RecommendationResult, errorCode, errorMessage *string, retryable *bool, startedAt, completedAt *time.Time) error {
	const query = `
UPDATE recommendation_runs
SET status = $2,
    result = COALESCE($3, result),
    error_code = COALESCE($4, error_code),
    error_message = COALESCE($5, error_message),
    error_retryable = COALESCE($6, error_retryable),
    started_at = COALESCE($7, started_at),
    completed_at = COALESCE($8, completed_at),
    updated_at = now()
WHERE id = $1`
	resultPayload, err := marshalJSONB(result)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, runID, status, resultPayload, errorCode, errorMessage, retryable, startedAt, completedAt)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// UpdateModel records which model produced the run's result.
func (r *PGRepo) UpdateModel(ctx context.Context, runID, model string) error {
	const query = `
UPDATE recommendation_runs
SET model = $2, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, runID, model)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// List returns runs newest first, with limit/offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]RecommendationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, pet_name, pet_species, status, model, bundle, result,
       error_code, error_message, error_retryable, started_at, completed_at, created_at, updated_at
FROM recommendation_runs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RecommendationRun, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RecommendationRun, error) {
	var run RecommendationRun
	var model sql.NullString
	var bundle sql.NullString
	var result sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var errorRetryable sql.NullBool
	var startedAt sql.NullTime
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.PetName,
		&run.PetSpecies,
		&run.Status,
		&model,
		&bundle,
		&result,
		&errorCode,
		&errorMessage,
		&errorRetryable,
		&startedAt,
		&completedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return RecommendationRun{}, err
	}

	if model.Valid {
		run.Model = model.String
	}
	if bundle.Valid && bundle.String != "" {
		var parsed catalog.AnalysisBundle
		if err := json.Unmarshal([]byte(bundle.String), &parsed); err == nil {
			run.Bundle = &parsed
		}
	}
	if result.Valid && result.String != "" {
		var parsed RecommendationResult
		if err := json.Unmarshal([]byte(result.String), &parsed); err == nil {
			run.Result = &parsed
		}
	}
	if errorCode.Valid {
		run.ErrorCode = &errorCode.String
	}
	if errorMessage.Valid {
		run.ErrorMessage = &errorMessage.String
	}
	if errorRetryable.Valid {
		run.ErrorRetryable = &errorRetryable.Bool
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

func marshalJSONB(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *catalog.AnalysisBundle:
		if v == nil {
			return nil, nil
		}
	case *RecommendationResult:
		if v == nil {
			return nil, nil
		}
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func requireRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
