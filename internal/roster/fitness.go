package roster

import "cmp"

// FitnessResult 是一个分组方案的适应度，WeightedScore 越大越好，满分为 100
type FitnessResult struct {
	WeightedScore    float64
	PenaltyCount     int
	CompliantBuckets int
	OtherCount       int // 不合规但没有被惩罚的班级数
	TotalBuckets     int
}

// Compare 依次比较 WeightedScore、PenaltyCount、CompliantBuckets、OtherCount、TotalBuckets
func (f FitnessResult) Compare(o FitnessResult) int {
	if c := cmp.Compare(f.WeightedScore, o.WeightedScore); c != 0 {
		return c
	}
	if c := cmp.Compare(f.PenaltyCount, o.PenaltyCount); c != 0 {
		return c
	}
	if c := cmp.Compare(f.CompliantBuckets, o.CompliantBuckets); c != 0 {
		return c
	}
	if c := cmp.Compare(f.OtherCount, o.OtherCount); c != 0 {
		return c
	}
	return cmp.Compare(f.TotalBuckets, o.TotalBuckets)
}

/**
 * 计算当前分组的适应度
 * 1. 合规的班级加 100 / 班级总数
 * 2. 不合规的班级根据各组占比偏离均匀分布的程度扣分
 * 3. 人数过多而无法合规、但各组占比都在容忍范围内的班级视为合规
 * 4. 每个组内出现不同标签的偏好分组扣 100 / 偏好分组数
 */
func (m *Model) Score() (FitnessResult, error) {
	if err := m.rules.Validate(); err != nil {
		return FitnessResult{}, err
	}

	result := FitnessResult{TotalBuckets: len(m.buckets)}
	if len(m.buckets) == 0 {
		return result, nil
	}
	reward := 100 / float64(len(m.buckets))

	counts := make([]int, m.rules.LabelCount)
	for _, b := range m.buckets {
		total := len(b.roster)
		if total == 0 {
			return FitnessResult{}, &EmptyBucketError{Key: b.Key}
		}

		clear(counts)
		for _, u := range b.roster {
			counts[u.label]++
		}

		if m.rules.Compliant(counts) {
			result.CompliantBuckets++
			result.WeightedScore += reward
			continue
		}

		penalty, n := m.rules.penalty(counts, total)
		switch {
		case n > 0:
			result.WeightedScore -= penalty
			result.PenaltyCount += n
		case m.rules.Oversized(total):
			result.CompliantBuckets++
			result.WeightedScore += reward
		default:
			result.OtherCount++
		}
	}

	if len(m.preferred) > 0 {
		flat := 100 / float64(len(m.preferred))
		for _, group := range m.preferred {
			if !sameLabel(group) {
				result.WeightedScore -= flat
				result.PenaltyCount++
			}
		}
	}

	return result, nil
}

func sameLabel(units []*Unit) bool {
	if len(units) < 2 {
		return true
	}
	for _, u := range units[1:] {
		if u.label != units[0].label {
			return false
		}
	}
	return true
}
