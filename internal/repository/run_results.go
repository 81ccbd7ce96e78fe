package repository

import (
	"encoding/json"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// SaveRunResult 保存任务目前找到的最优分组，每个任务只保留一份结果
func (r *Repository) SaveRunResult(result *domain.RunResult) error {
	fitness, err := json.Marshal(result.Fitness)
	if err != nil {
		return err
	}
	assignments, err := json.Marshal(result.Assignments)
	if err != nil {
		return err
	}
	buckets, err := json.Marshal(result.Buckets)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO run_results (run_id, worker_id, era, fitness, assignments, buckets)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE
		SET
			worker_id = EXCLUDED.worker_id,
			era = EXCLUDED.era,
			fitness = EXCLUDED.fitness,
			assignments = EXCLUDED.assignments,
			buckets = EXCLUDED.buckets,
			created_at = now()
		RETURNING created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{result.RunID, result.WorkerID, result.Era, fitness, assignments, buckets}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&result.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetRunResult(runID int64) (*domain.RunResult, error) {
	query := `
		SELECT worker_id, era, fitness, assignments, buckets, created_at
		FROM run_results WHERE run_id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result := &domain.RunResult{
		RunID: runID,
	}

	var fitness, assignments, buckets []byte
	dst := []any{&result.WorkerID, &result.Era, &fitness, &assignments, &buckets, &result.CreatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, runID).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fitness, &result.Fitness); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assignments, &result.Assignments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(buckets, &result.Buckets); err != nil {
		return nil, err
	}

	return result, nil
}
