package utils

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

func ValidateRunParameters(p *domain.RunParameters) error {
	if p.LabelCount != 2 && p.LabelCount != 4 {
		return fmt.Errorf("分组数量只能是 2 或 4，实际为 %d", p.LabelCount)
	}
	if p.HalfMax <= 0 {
		return errors.New("每半组的人数上限必须为正数")
	}
	if p.LabelCount == 4 && p.QuarterMax <= 0 {
		return errors.New("每组的人数上限必须为正数")
	}
	if p.PairwiseMultiplier < 0 || p.IndividualMultiplier < 0 {
		return errors.New("惩罚权重不能为负数")
	}
	if p.PopulationSize <= 0 {
		return errors.New("种群大小必须为正数")
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		return errors.New("变异概率必须在 0 到 1 之间")
	}
	if p.Islands <= 0 {
		return errors.New("岛屿数量必须为正数")
	}
	if p.Eras <= 0 {
		return errors.New("轮数必须为正数")
	}
	if p.GenerationsPerEra < 0 {
		return errors.New("每轮代数不能为负数")
	}
	if p.WallClockSeconds < 0 {
		return errors.New("运行时间上限不能为负数")
	}
	return nil
}

type slot struct {
	unitID string
	period string
}

/**
 * 检查名单记录之间的一致性
 * 1. 同一个学生不能在同一节次出现在两个教室，也不能重复选同一个班级
 * 2. 配对与偏好分组中的学生必须有选课记录，且不能与自己配对
 */
func ValidateRosterRecords(r *domain.RosterRecords) error {
	if len(r.Enrollments) == 0 {
		return errors.New("名单中没有任何选课记录")
	}

	units := make(map[string]bool)
	rooms := make(map[slot]string)
	for i, e := range r.Enrollments {
		if e.UnitID == "" || e.Room == "" || e.Period == "" {
			return fmt.Errorf("第 %d 条选课记录缺少学号、教室或节次", i+1)
		}
		units[e.UnitID] = true

		key := slot{unitID: e.UnitID, period: e.Period}
		if room, exists := rooms[key]; exists {
			if room == e.Room {
				return fmt.Errorf("学生 %s 重复选择了 %s 教室第 %s 节的班级", e.UnitID, e.Room, e.Period)
			}
			return fmt.Errorf("学生 %s 在第 %s 节同时出现在 %s 和 %s 教室", e.UnitID, e.Period, room, e.Room)
		}
		rooms[key] = e.Room
	}

	for i, p := range r.Pairings {
		if p.UnitID1 == p.UnitID2 {
			return fmt.Errorf("第 %d 条配对记录中的学生 %s 不能与自己配对", i+1, p.UnitID1)
		}
		for _, id := range []string{p.UnitID1, p.UnitID2} {
			if !units[id] {
				return fmt.Errorf("第 %d 条配对记录中的学生 %s 没有选课记录", i+1, id)
			}
		}
	}

	for i, g := range r.PreferredGroups {
		if len(g.UnitIDs) < 2 {
			return fmt.Errorf("第 %d 个偏好分组至少需要 2 个学生", i+1)
		}
		for _, id := range g.UnitIDs {
			if !units[id] {
				return fmt.Errorf("第 %d 个偏好分组中的学生 %s 没有选课记录", i+1, id)
			}
		}
	}

	return nil
}
