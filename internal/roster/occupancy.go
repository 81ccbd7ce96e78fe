package roster

import (
	"fmt"
	"slices"
)

// BucketOccupancy 是某个班级在当前分组下的人数构成
type BucketOccupancy struct {
	Key           BucketKey
	CourseNumbers []string
	Total         int
	Counts        []int
	Ratios        []float64
	MaxDeviation  float64 // 最大占比减去均匀分布时的占比
	Compliant     bool
}

type Assignment struct {
	UnitID     string
	LastName   string
	FirstName  string
	MiddleName string
	Label      Label
}

// Occupancy 按班级顺序返回当前分组下每个班级的人数构成
func (m *Model) Occupancy() []BucketOccupancy {
	k := m.rules.LabelCount
	out := make([]BucketOccupancy, 0, len(m.buckets))

	for _, b := range m.buckets {
		o := BucketOccupancy{
			Key:           b.Key,
			CourseNumbers: slices.Clone(b.CourseNumbers),
			Total:         len(b.roster),
			Counts:        make([]int, k),
			Ratios:        make([]float64, k),
		}
		for _, u := range b.roster {
			o.Counts[u.label]++
		}
		if o.Total > 0 {
			maxRatio := 0.0
			for i, c := range o.Counts {
				o.Ratios[i] = float64(c) / float64(o.Total)
				maxRatio = max(maxRatio, o.Ratios[i])
			}
			o.MaxDeviation = maxRatio - 1/float64(k)
		}
		o.Compliant = m.rules.Compliant(o.Counts)
		out = append(out, o)
	}

	return out
}

// Assignments 按学生出现的顺序返回当前分组
func (m *Model) Assignments() []Assignment {
	out := make([]Assignment, len(m.units))
	for i, u := range m.units {
		out[i] = assignmentOf(u)
	}
	return out
}

func assignmentOf(u *Unit) Assignment {
	return Assignment{
		UnitID:     u.ID,
		LastName:   u.LastName,
		FirstName:  u.FirstName,
		MiddleName: u.MiddleName,
		Label:      u.label,
	}
}

// UnitSchedule 返回某个学生当前的分组以及他所在的全部班级
func (m *Model) UnitSchedule(unitID string) (Assignment, []BucketKey, error) {
	u, exists := m.unitIndex[unitID]
	if !exists {
		return Assignment{}, nil, fmt.Errorf("学生 %s: %w", unitID, ErrUnknownUnit)
	}

	keys := make([]BucketKey, len(u.buckets))
	for i, b := range u.buckets {
		keys[i] = b.Key
	}
	return assignmentOf(u), keys, nil
}

// BucketRoster 返回某个班级的学生名单以及他们当前的分组
func (m *Model) BucketRoster(key BucketKey) ([]Assignment, error) {
	b, exists := m.bucketIndex[key]
	if !exists {
		return nil, fmt.Errorf("班级 %s: %w", key, ErrUnknownBucket)
	}

	out := make([]Assignment, len(b.roster))
	for i, u := range b.roster {
		out[i] = assignmentOf(u)
	}
	return out, nil
}
