package optimizer

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/scheduler"
)

// DefaultParameters 把配置中的默认参数转换为任务参数
func DefaultParameters(cfg *config.Optimizer) domain.RunParameters {
	return domain.RunParameters{
		LabelCount:           int32(cfg.LabelCount),
		HalfMax:              int32(cfg.HalfMax),
		QuarterMax:           int32(cfg.QuarterMax),
		PairwiseMultiplier:   cfg.PairwiseMultiplier,
		IndividualMultiplier: cfg.IndividualMultiplier,
		PopulationSize:       int32(cfg.PopulationSize),
		MutationRate:         cfg.MutationRate,
		Islands:              int32(cfg.Islands),
		Eras:                 int32(cfg.Eras),
		GenerationsPerEra:    int32(cfg.GenerationsPerEra),
		WallClockSeconds:     int32(cfg.WallClockSeconds),
		Seed:                 cfg.Seed,
	}
}

func Rules(p *domain.RunParameters) roster.Rules {
	return roster.Rules{
		LabelCount:           int(p.LabelCount),
		HalfMax:              int(p.HalfMax),
		QuarterMax:           int(p.QuarterMax),
		PairwiseMultiplier:   p.PairwiseMultiplier,
		IndividualMultiplier: p.IndividualMultiplier,
	}
}

func SchedulerParameters(p *domain.RunParameters) *scheduler.Parameters {
	return &scheduler.Parameters{
		Islands:           int(p.Islands),
		PopulationSize:    int(p.PopulationSize),
		MutationRate:      p.MutationRate,
		Eras:              int(p.Eras),
		GenerationsPerEra: int(p.GenerationsPerEra),
		WallClock:         time.Duration(p.WallClockSeconds) * time.Second,
		Seed:              p.Seed,
	}
}

func BuildModel(records *domain.RosterRecords, p *domain.RunParameters) (*roster.Model, error) {
	return roster.Build(Rules(p), roster.Input{
		Enrollments:     records.Enrollments,
		Pairings:        records.Pairings,
		PreferredGroups: records.PreferredGroups,
		Buckets:         records.Buckets,
	})
}

// ApplyResult 把已保存的分组名单重新应用到模型上，绑定组的标签取第一个成员的标签
func ApplyResult(model *roster.Model, assignments []domain.UnitAssignment) error {
	byUnit := make(map[string]roster.Label, len(assignments))
	for _, a := range assignments {
		label, err := roster.ParseLabel(a.Label)
		if err != nil {
			return fmt.Errorf("学生 %s: %w", a.UnitID, err)
		}
		byUnit[a.UnitID] = label
	}

	cohorts := model.Cohorts()
	labels := make([]roster.Label, len(cohorts))
	for i, members := range cohorts {
		label, exists := byUnit[members[0]]
		if !exists {
			return fmt.Errorf("学生 %s 没有分组结果: %w", members[0], roster.ErrUnknownUnit)
		}
		labels[i] = label
	}

	return model.Apply(labels)
}
