package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/report"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/scheduler"
)

// Store 是 Worker 需要的持久化操作，由 repository.Repository 实现
type Store interface {
	GetRunByID(id int64) (*domain.OptimizationRun, error)
	UpdateRun(run *domain.OptimizationRun) error
	GetRosterByID(id int64) (*domain.Roster, error)
	GetRosterRecords(id int64) (*domain.RosterRecords, error)
	SaveRunResult(result *domain.RunResult) error
	GetUserByID(id int64) (*domain.User, error)
}

type ProgressStore interface {
	Save(ctx context.Context, progress *domain.RunProgress) error
}

type MailPublisher interface {
	PublishMail(ctx context.Context, message domain.MailMessage) error
}

type Worker struct {
	store            Store
	progress         ProgressStore
	mail             MailPublisher
	metrics          *metrics.Collector
	progressInterval int
	logger           *slog.Logger
}

func NewWorker(store Store, progress ProgressStore, mail MailPublisher, collector *metrics.Collector, progressInterval int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:            store,
		progress:         progress,
		mail:             mail,
		metrics:          collector,
		progressInterval: max(1, progressInterval),
		logger:           logger,
	}
}

/**
 * 处理一个优化任务
 * 1. 只处理处于排队状态的任务，重复投递的消息直接忽略
 * 2. 每当有岛屿找到更好的分组时保存结果
 * 3. 任务结束后更新状态并通知发起人
 */
func (wk *Worker) Handle(ctx context.Context, job domain.OptimizationJob) error {
	run, err := wk.store.GetRunByID(job.RunID)
	if err != nil {
		return fmt.Errorf("无法获取任务 %d: %w", job.RunID, err)
	}
	if run.Status != domain.RunStatusQueued {
		wk.logger.Warn("任务不处于排队状态，忽略", slog.Int64("run", run.ID), slog.String("status", string(run.Status)))
		return nil
	}

	run.Status = domain.RunStatusRunning
	if err := wk.store.UpdateRun(run); err != nil {
		return fmt.Errorf("无法更新任务状态: %w", err)
	}
	wk.logger.Info("开始运行优化任务", slog.Int64("run", run.ID), slog.Int64("roster", run.RosterID))

	start := time.Now()
	result, runErr := wk.execute(ctx, run)
	if wk.metrics != nil {
		wk.metrics.ObserveResult(result, time.Since(start))
	}

	now := time.Now()
	run.FinishedAt = &now
	if result != nil {
		best := report.FromFitness(result.Best.Fitness)
		run.Best = &best
		run.ErasCompleted = int32(result.ErasCompleted)
	}
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		wk.logger.Error("优化任务失败", slog.Int64("run", run.ID), "error", runErr)
	} else {
		run.Status = domain.RunStatusFinished
		wk.logger.Info("优化任务完成",
			slog.Int64("run", run.ID),
			slog.Int("eras", result.ErasCompleted),
			slog.String("reason", string(result.StopReason)),
			slog.Duration("elapsed", result.Elapsed),
		)
	}

	if err := wk.store.UpdateRun(run); err != nil {
		return fmt.Errorf("无法更新任务状态: %w", err)
	}

	if err := wk.notify(context.WithoutCancel(ctx), run); err != nil {
		// 邮件发送失败不影响任务结果
		wk.logger.Error("无法发送任务结束通知", slog.Int64("run", run.ID), "error", err)
	}
	return nil
}

func (wk *Worker) execute(ctx context.Context, run *domain.OptimizationRun) (*scheduler.Result, error) {
	records, err := wk.store.GetRosterRecords(run.RosterID)
	if err != nil {
		return nil, fmt.Errorf("无法获取名单记录: %w", err)
	}

	model, err := BuildModel(records, &run.Parameters)
	if err != nil {
		return nil, err
	}

	if wk.metrics != nil {
		wk.metrics.Reset()
	}

	s, err := scheduler.New(SchedulerParameters(&run.Parameters), model, scheduler.Options{
		Progress: wk.progressFunc(ctx, run.ID),
		Writer:   report.Improving(&resultWriter{store: wk.store, runID: run.ID}),
		Logger:   wk.logger.With(slog.Int64("run", run.ID)),
	})
	if err != nil {
		return nil, err
	}

	result, err := s.Schedule(ctx)
	if errors.Is(err, context.Canceled) {
		return result, fmt.Errorf("任务被取消: %w", err)
	}
	return result, err
}

func (wk *Worker) progressFunc(ctx context.Context, runID int64) scheduler.ProgressFunc {
	return func(p scheduler.Progress) {
		if wk.metrics != nil {
			wk.metrics.ObserveProgress(p)
		}
		if wk.progress == nil || p.Generation%wk.progressInterval != 0 {
			return
		}

		if err := wk.progress.Save(ctx, &domain.RunProgress{
			RunID:            runID,
			WorkerID:         p.WorkerID,
			Era:              p.Era,
			Generation:       p.Generation,
			WeightedScore:    p.Fitness.WeightedScore,
			CompliantBuckets: p.Fitness.CompliantBuckets,
			TotalBuckets:     p.Fitness.TotalBuckets,
			UpdatedAt:        time.Now(),
		}); err != nil {
			wk.logger.Warn("无法保存任务进度", slog.Int64("run", runID), "error", err)
		}
	}
}

func (wk *Worker) notify(ctx context.Context, run *domain.OptimizationRun) error {
	if wk.mail == nil {
		return nil
	}

	user, err := wk.store.GetUserByID(run.RequestedBy)
	if err != nil {
		return err
	}
	r, err := wk.store.GetRosterByID(run.RosterID)
	if err != nil {
		return err
	}

	data := domain.RunFinishedMailData{
		FullName:      user.FullName,
		RunID:         run.ID,
		RosterName:    r.Name,
		Status:        run.Status,
		ErasCompleted: run.ErasCompleted,
		ErrorMessage:  run.ErrorMessage,
	}
	if run.Best != nil {
		data.WeightedScore = run.Best.WeightedScore
		data.CompliantBuckets = run.Best.CompliantBuckets
		data.TotalBuckets = run.Best.TotalBuckets
	}

	return wk.mail.PublishMail(ctx, domain.MailMessage{
		Type: domain.MailTypeRunFinished,
		To:   user.Email,
		Data: data,
	})
}

// resultWriter 把岛屿上报的最佳分组保存为任务结果
type resultWriter struct {
	store Store
	runID int64
}

func (w *resultWriter) WriteEra(r scheduler.EraReport) error {
	return w.store.SaveRunResult(&domain.RunResult{
		RunID:       w.runID,
		WorkerID:    int32(r.WorkerID),
		Era:         int32(r.Era),
		Fitness:     report.FromFitness(r.Best.Fitness),
		Assignments: report.FromAssignments(r.Assignments),
		Buckets:     report.FromOccupancy(r.Occupancy),
	})
}
