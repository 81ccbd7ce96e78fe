package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/evolver"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"golang.org/x/sync/errgroup"
)

// Options 中的字段都可以为空
type Options struct {
	Progress ProgressFunc
	Writer   ReportWriter
	Logger   *slog.Logger
}

type Scheduler struct {
	parameters *Parameters
	model      *roster.Model
	codec      *partition.Codec
	ops        evolver.Operators
	options    Options
	logger     *slog.Logger
}

func New(parameters *Parameters, model *roster.Model, options Options) (*Scheduler, error) {
	if err := validateParameters(parameters); err != nil {
		return nil, err
	}

	codec, err := partition.CodecFor(model)
	if err != nil {
		return nil, err
	}

	// 先计算一次随机方案的适应度，使得空班级之类的错误在启动岛屿之前暴露出来
	probe := codec.Random(rand.New(rand.NewSource(parameters.Seed)))
	if _, err := model.Clone().Evaluate(probe); err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		parameters: parameters,
		model:      model,
		codec:      codec,
		ops:        evolver.NewOperators(model.LabelCount(), parameters.MutationRate),
		options:    options,
		logger:     logger,
	}, nil
}

func validateParameters(p *Parameters) error {
	switch {
	case p == nil:
		return fmt.Errorf("参数不能为空")
	case p.Islands < 1:
		return fmt.Errorf("岛屿数量至少为 1，实际为 %d", p.Islands)
	case p.PopulationSize < 1:
		return fmt.Errorf("种群大小至少为 1，实际为 %d", p.PopulationSize)
	case p.Eras < 1:
		return fmt.Errorf("轮数至少为 1，实际为 %d", p.Eras)
	case p.GenerationsPerEra < 0:
		return fmt.Errorf("每轮代数不能为负数，实际为 %d", p.GenerationsPerEra)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return fmt.Errorf("变异概率必须在 [0, 1] 之间，实际为 %f", p.MutationRate)
	case p.WallClock < 0:
		return fmt.Errorf("运行时间上限不能为负数")
	}
	return nil
}

func (s *Scheduler) seed() int64 {
	if s.parameters.Seed != 0 {
		return s.parameters.Seed
	}
	return time.Now().UnixNano()
}

/**
 * 运行岛屿模型遗传算法
 * 1. 每个岛屿在自己的 goroutine 中演化 GenerationsPerEra 代后上报种群
 * 2. 协调者收齐所有岛屿的种群后进行交叉，并把新种群分发给各个岛屿
 * 3. 轮数、运行时间以及 ctx 只在两轮之间检查
 * ctx 被取消时返回已有的最佳结果以及 ctx 的错误。
 */
func (s *Scheduler) Schedule(ctx context.Context) (*Result, error) {
	start := time.Now()
	seed := s.seed()
	n := s.parameters.Islands

	reports := make(chan Report, n)
	replacements := make([]chan Replacement, n)
	for i := range replacements {
		replacements[i] = make(chan Replacement, 1)
	}
	var closeOnce sync.Once
	closeAll := func() {
		closeOnce.Do(func() {
			for _, ch := range replacements {
				close(ch)
			}
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		model := s.model.Clone()
		rng := rand.New(rand.NewSource(seed + int64(i) + 1))
		island := &Island{
			id:           i,
			params:       s.parameters,
			model:        model,
			evolver:      evolver.New(s.codec, model, s.ops, rng),
			reports:      reports,
			replacements: replacements[i],
			progress:     s.options.Progress,
			writer:       s.options.Writer,
		}
		g.Go(func() error {
			return island.Run(gctx)
		})
	}

	rng := rand.New(rand.NewSource(seed))
	result := &Result{
		BestWorker:  -1,
		BestEra:     -1,
		IslandBests: make([]evolver.Scored, n),
	}

	for era := 0; ; era++ {
		collected, err := s.collect(gctx, reports, era)
		if err != nil {
			closeAll()
			if werr := g.Wait(); werr != nil {
				return nil, werr
			}
			if ctx.Err() != nil && result.ErasCompleted > 0 {
				result.StopReason = StopCancelled
				return s.finish(result, start), ctx.Err()
			}
			return nil, err
		}

		populations := make([][]evolver.Scored, n)
		for i, r := range collected {
			populations[i] = r.Population
			best := r.Population[0]
			if era == 0 || best.Fitness.Compare(result.IslandBests[i].Fitness) > 0 {
				result.IslandBests[i] = best
			}
			if result.BestWorker < 0 || best.Fitness.Compare(result.Best.Fitness) > 0 {
				result.Best = best
				result.BestWorker = i
				result.BestEra = era
			}
		}
		result.ErasCompleted = era + 1

		s.logger.Info("本轮演化结束",
			slog.Int("era", era),
			slog.Float64("best", result.Best.Fitness.WeightedScore),
			slog.Int("compliant", result.Best.Fitness.CompliantBuckets),
			slog.Int("total", result.Best.Fitness.TotalBuckets),
		)

		switch {
		case result.ErasCompleted >= s.parameters.Eras:
			result.StopReason = StopEras
		case s.parameters.WallClock > 0 && time.Since(start) >= s.parameters.WallClock:
			result.StopReason = StopWallClock
		case ctx.Err() != nil:
			result.StopReason = StopCancelled
		}
		if result.StopReason != "" {
			closeAll()
			if err := g.Wait(); err != nil {
				return nil, err
			}
			if result.StopReason == StopCancelled {
				return s.finish(result, start), ctx.Err()
			}
			return s.finish(result, start), nil
		}

		next := CrossBreed(rng, s.ops, populations)
		for i, pop := range next {
			replacements[i] <- Replacement{Era: era + 1, Population: pop}
		}
	}
}

// collect 收集每个岛屿在第 era 轮的上报结果，按岛屿 ID 排列
func (s *Scheduler) collect(ctx context.Context, reports <-chan Report, era int) ([]Report, error) {
	n := s.parameters.Islands
	collected := make([]Report, n)
	received := make([]bool, n)

	for count := 0; count < n; {
		select {
		case r := <-reports:
			if r.WorkerID < 0 || r.WorkerID >= n {
				return nil, fmt.Errorf("%w: 未知的岛屿 %d", ErrProtocol, r.WorkerID)
			}
			if r.Era != era {
				return nil, fmt.Errorf("%w: 岛屿 %d 在第 %d 轮上报了第 %d 轮的结果", ErrProtocol, r.WorkerID, era, r.Era)
			}
			if received[r.WorkerID] {
				return nil, fmt.Errorf("%w: 岛屿 %d 在第 %d 轮重复上报", ErrProtocol, r.WorkerID, era)
			}
			if len(r.Population) == 0 {
				return nil, fmt.Errorf("%w: 岛屿 %d 上报了空种群", ErrProtocol, r.WorkerID)
			}
			received[r.WorkerID] = true
			collected[r.WorkerID] = r
			count++
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return collected, nil
}

func (s *Scheduler) finish(result *Result, start time.Time) *Result {
	assignments, occupancy, err := details(s.model.Clone(), result.Best.Partition)
	if err == nil {
		result.Assignments = assignments
		result.Occupancy = occupancy
	}
	result.Elapsed = time.Since(start)
	return result
}
