package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

const runColumns = `
	id, roster_id, status, parameters, best, eras_completed, error_message, requested_by, created_at, finished_at, version
`

// scanRun 中 parameters 与 best 以 jsonb 的形式存储
func scanRun(scan func(dst ...any) error) (*domain.OptimizationRun, error) {
	run := &domain.OptimizationRun{}

	var parameters []byte
	var best []byte
	var finishedAt sql.NullTime

	dst := []any{
		&run.ID,
		&run.RosterID,
		&run.Status,
		&parameters,
		&best,
		&run.ErasCompleted,
		&run.ErrorMessage,
		&run.RequestedBy,
		&run.CreatedAt,
		&finishedAt,
		&run.Version,
	}
	if err := scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parameters, &run.Parameters); err != nil {
		return nil, err
	}
	if len(best) > 0 {
		run.Best = &domain.FitnessSummary{}
		if err := json.Unmarshal(best, run.Best); err != nil {
			return nil, err
		}
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

func (r *Repository) CreateRun(run *domain.OptimizationRun) error {
	parameters, err := json.Marshal(run.Parameters)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO optimization_runs (roster_id, status, parameters, requested_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{run.RosterID, run.Status, parameters, run.RequestedBy}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetRunByID(id int64) (*domain.OptimizationRun, error) {
	query := `SELECT ` + runColumns + ` FROM optimization_runs WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	return scanRun(r.dbpool.QueryRowContext(ctx, query, id).Scan)
}

// RunFilter 中为 0 的字段不参与过滤
type RunFilter struct {
	RosterID    int64
	RequestedBy int64
}

func (r *Repository) GetAllRuns(filter RunFilter) ([]*domain.OptimizationRun, error) {
	query := `
		SELECT ` + runColumns + ` FROM optimization_runs
		WHERE ($1 = 0 OR roster_id = $1) AND ($2 = 0 OR requested_by = $2)
		ORDER BY id DESC
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, filter.RosterID, filter.RequestedBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.OptimizationRun, 0)
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// UpdateRun 使用乐观锁更新任务的状态
func (r *Repository) UpdateRun(run *domain.OptimizationRun) error {
	var best []byte
	if run.Best != nil {
		var err error
		if best, err = json.Marshal(run.Best); err != nil {
			return err
		}
	}

	query := `
		UPDATE optimization_runs
		SET
			status = $1,
			best = $2,
			eras_completed = $3,
			error_message = $4,
			finished_at = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{run.Status, best, run.ErasCompleted, run.ErrorMessage, run.FinishedAt, run.ID, run.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteRun(id int64) error {
	query := `
		DELETE FROM optimization_runs WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
