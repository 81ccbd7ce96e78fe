package roster

import "fmt"

// Rules 描述班级的人数限制以及惩罚项的权重
type Rules struct {
	LabelCount           int     // 分组数量，2 或 4
	HalfMax              int     // 2 组时每组的人数上限，4 组时 A+B 和 C+D 的人数上限
	QuarterMax           int     // 4 组时每组的人数上限
	PairwiseMultiplier   float64 // 增大以强调 (A+B) 与 (C+D) 的均衡
	IndividualMultiplier float64 // 增大以强调 A/B/C/D 各组的均衡
}

func DefaultRules(labelCount int) Rules {
	return Rules{
		LabelCount:           labelCount,
		HalfMax:              15,
		QuarterMax:           9,
		PairwiseMultiplier:   0.5,
		IndividualMultiplier: 0.25,
	}
}

func (r Rules) Validate() error {
	if r.LabelCount != 2 && r.LabelCount != 4 {
		return fmt.Errorf("%w: %d", ErrInvalidLabelCount, r.LabelCount)
	}
	if r.HalfMax <= 0 {
		return fmt.Errorf("每半组的人数上限必须为正数")
	}
	if r.LabelCount == 4 && r.QuarterMax <= 0 {
		return fmt.Errorf("每组的人数上限必须为正数")
	}
	return nil
}

// Compliant 判断一个班级的各组人数是否满足限制。
// 适应度计算和班级分析报告都使用这一判断。
func (r Rules) Compliant(counts []int) bool {
	switch r.LabelCount {
	case 2:
		return counts[0] <= r.HalfMax && counts[1] <= r.HalfMax
	case 4:
		for _, c := range counts {
			if c > r.QuarterMax {
				return false
			}
		}
		return counts[0]+counts[1] <= r.HalfMax && counts[2]+counts[3] <= r.HalfMax
	default:
		return false
	}
}

// Oversized 表示班级人数过多，无论如何分组都无法满足限制
func (r Rules) Oversized(total int) bool {
	switch r.LabelCount {
	case 2:
		return total > 2*r.HalfMax
	case 4:
		return total > 2*r.HalfMax || total > 4*r.QuarterMax
	default:
		return false
	}
}

// majorityLimit 是半组占比的容忍上限，小班级会放宽 55% 的规则
func majorityLimit(total int) float64 {
	return max(0.55, float64(total/2+1)/float64(total))
}

// quarterLimit 是单组占比的容忍上限，小班级会放宽 30% 的规则
func quarterLimit(total int) float64 {
	return max(0.30, float64(total/4+1)/float64(total))
}

// penalty 计算不合规班级的惩罚值以及被惩罚的次数
func (r Rules) penalty(counts []int, total int) (float64, int) {
	t := float64(total)

	switch r.LabelCount {
	case 2:
		shareA := float64(counts[0]) / t
		shareB := float64(counts[1]) / t
		diff := shareA - shareB
		if diff < 0 {
			diff = -diff
		}

		if counts[0] > r.HalfMax && counts[1] > r.HalfMax {
			// 两组都超过上限时，只惩罚偏离均匀分布过多的情况
			limit := majorityLimit(total)
			if shareA > limit || shareB > limit {
				return diff, 1
			}
			return 0, 0
		}
		return diff, 1
	case 4:
		value, n := 0.0, 0

		pairLimit := majorityLimit(total)
		for _, pair := range [2][2]int{{0, 1}, {2, 3}} {
			share := float64(counts[pair[0]]+counts[pair[1]]) / t
			if share > pairLimit {
				value += r.PairwiseMultiplier * (share - 0.5)
				n++
			}
		}

		labelLimit := quarterLimit(total)
		for _, c := range counts {
			share := float64(c) / t
			if share > labelLimit {
				value += r.IndividualMultiplier * (share - 0.25)
				n++
			}
		}
		return value, n
	default:
		return 0, 0
	}
}
