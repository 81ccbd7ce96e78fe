package scheduler

import (
	"context"
	"fmt"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/evolver"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

// Island 在私有的模型副本上独立演化种群，只通过 channel 与协调者通信
type Island struct {
	id           int
	params       *Parameters
	model        *roster.Model
	evolver      *evolver.Evolver
	reports      chan<- Report
	replacements <-chan Replacement
	progress     ProgressFunc
	writer       ReportWriter
}

// Run 执行 Eras 轮演化。
// 每轮结束后上报种群，并等待协调者发来下一轮的种群；
// 协调者关闭替换 channel 或 ctx 被取消时提前返回。
func (is *Island) Run(ctx context.Context) error {
	gen, err := is.evolver.Seed(is.params.PopulationSize)
	if err != nil {
		return fmt.Errorf("岛屿 %d 初始化种群失败: %w", is.id, err)
	}

	for era := 0; era < is.params.Eras; era++ {
		if era > 0 {
			var rep Replacement
			var ok bool
			select {
			case rep, ok = <-is.replacements:
				if !ok {
					return nil
				}
			case <-ctx.Done():
				return nil
			}

			if rep.Era != era {
				return fmt.Errorf("%w: 岛屿 %d 在第 %d 轮收到了第 %d 轮的种群", ErrProtocol, is.id, era, rep.Era)
			}
			if gen, err = is.evolver.Reseed(gen.Number, rep.Population); err != nil {
				return fmt.Errorf("岛屿 %d 载入第 %d 轮种群失败: %w", is.id, era, err)
			}
		}

		for g := 0; g < is.params.GenerationsPerEra; g++ {
			if gen, err = is.evolver.Step(gen); err != nil {
				return fmt.Errorf("岛屿 %d 第 %d 轮演化失败: %w", is.id, era, err)
			}
			if is.progress != nil {
				is.progress(Progress{
					WorkerID:   is.id,
					Era:        era,
					Generation: gen.Number,
					Fitness:    gen.Best().Fitness,
				})
			}
		}

		if err := is.writeEra(era, gen.Best()); err != nil {
			return err
		}

		select {
		case is.reports <- Report{WorkerID: is.id, Era: era, Population: gen.Population}:
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

func (is *Island) writeEra(era int, best evolver.Scored) error {
	if is.writer == nil {
		return nil
	}

	assignments, occupancy, err := details(is.model, best.Partition)
	if err != nil {
		return err
	}

	report := EraReport{
		WorkerID:    is.id,
		Era:         era,
		Best:        evolver.Scored{Partition: best.Partition.Clone(), Fitness: best.Fitness},
		Assignments: assignments,
		Occupancy:   occupancy,
	}
	if err := is.writer.WriteEra(report); err != nil {
		return fmt.Errorf("岛屿 %d 写入第 %d 轮报告失败: %w", is.id, era, err)
	}
	return nil
}

// details 在模型副本上应用分组方案并返回分组名单与班级分析
func details(model *roster.Model, p partition.Partition) ([]roster.Assignment, []roster.BucketOccupancy, error) {
	if err := model.Apply(p); err != nil {
		return nil, nil, err
	}
	return model.Assignments(), model.Occupancy(), nil
}
