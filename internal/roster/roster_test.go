package roster

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// classOf 生成 n 条同一班级的选课记录，学生 ID 为 prefix0, prefix1, ...
func classOf(room, period, prefix string, n int) []domain.Enrollment {
	out := make([]domain.Enrollment, n)
	for i := range out {
		out[i] = domain.Enrollment{
			UnitID:       fmt.Sprintf("%s%d", prefix, i),
			LastName:     "Last",
			FirstName:    "First",
			CourseNumber: room + "-" + period,
			Room:         room,
			Period:       period,
		}
	}
	return out
}

// split 按给定的各组人数生成分组序列，要求没有配对关系
func split(sizes ...int) []Label {
	labels := make([]Label, 0)
	for l, n := range sizes {
		for i := 0; i < n; i++ {
			labels = append(labels, Label(l))
		}
	}
	return labels
}

func labelsByUnit(t *testing.T, m *Model, byID map[string]Label) []Label {
	t.Helper()
	labels := make([]Label, m.CohortCount())
	for id, l := range byID {
		idx, err := m.CohortOf(id)
		require.NoError(t, err)
		labels[idx] = l
	}
	return labels
}

func TestScoreTwoGroupsCompliantBucket(t *testing.T) {
	m, err := Build(DefaultRules(2), Input{Enrollments: classOf("254", "5", "s", 20)})
	require.NoError(t, err)

	res, err := m.Evaluate(split(12, 8))
	require.NoError(t, err)
	require.Equal(t, FitnessResult{WeightedScore: 100, PenaltyCount: 0, CompliantBuckets: 1, OtherCount: 0, TotalBuckets: 1}, res)
}

func TestScoreTwoGroupsPenalties(t *testing.T) {
	m, err := Build(DefaultRules(2), Input{Enrollments: classOf("201", "6", "s", 40)})
	require.NoError(t, err)

	// 只有一组超过上限
	res, err := m.Evaluate(split(25, 15))
	require.NoError(t, err)
	require.InDelta(t, -0.25, res.WeightedScore, 1e-9)
	require.Equal(t, 1, res.PenaltyCount)

	// 两组都超过上限，且偏离超过 55%
	res, err = m.Evaluate(split(16, 24))
	require.NoError(t, err)
	require.InDelta(t, -0.2, res.WeightedScore, 1e-9)
	require.Equal(t, 1, res.PenaltyCount)

	// 两组都超过上限，但已经足够均匀，视为合规
	res, err = m.Evaluate(split(20, 20))
	require.NoError(t, err)
	require.InDelta(t, 100, res.WeightedScore, 1e-9)
	require.Equal(t, 1, res.CompliantBuckets)
	require.Equal(t, 0, res.PenaltyCount)
}

func TestScoreFourGroupsPenalties(t *testing.T) {
	m, err := Build(DefaultRules(4), Input{Enrollments: classOf("101", "1", "s", 40)})
	require.NoError(t, err)

	res, err := m.Evaluate(split(20, 10, 5, 5))
	require.NoError(t, err)

	// (A+B) 的占比惩罚 0.5*(0.75-0.5)，A 的占比惩罚 0.25*(0.5-0.25)
	require.InDelta(t, -0.1875, res.WeightedScore, 1e-9)
	require.Equal(t, 2, res.PenaltyCount)
	require.Equal(t, 0, res.CompliantBuckets)
	require.Equal(t, 0, res.OtherCount)
	require.Equal(t, 1, res.TotalBuckets)
}

func TestScoreFourGroupsOversizedBucketWithinTolerance(t *testing.T) {
	m, err := Build(DefaultRules(4), Input{Enrollments: classOf("GYM", "8", "s", 40)})
	require.NoError(t, err)

	res, err := m.Evaluate(split(10, 10, 10, 10))
	require.NoError(t, err)
	require.InDelta(t, 100, res.WeightedScore, 1e-9)
	require.Equal(t, 1, res.CompliantBuckets)
	require.Equal(t, 0, res.PenaltyCount)
}

func TestScoreFourGroupsUnpenalizedNonCompliantBucket(t *testing.T) {
	m, err := Build(DefaultRules(4), Input{Enrollments: classOf("300", "2", "s", 30)})
	require.NoError(t, err)

	res, err := m.Evaluate(split(8, 8, 7, 7))
	require.NoError(t, err)
	require.Equal(t, FitnessResult{OtherCount: 1, TotalBuckets: 1}, res)
}

func TestScoreSmallBucketRelaxesTolerance(t *testing.T) {
	rules := DefaultRules(4)
	rules.HalfMax = 7

	m, err := Build(rules, Input{Enrollments: classOf("B12", "3", "s", 16)})
	require.NoError(t, err)

	// 9/16 > 0.55，但对 16 人的班级而言容忍上限为 9/16；5/16 同理
	res, err := m.Evaluate(split(5, 4, 4, 3))
	require.NoError(t, err)
	require.Equal(t, 0, res.PenaltyCount)
	require.Equal(t, 1, res.CompliantBuckets)
}

func TestScorePreferredGroupPenalty(t *testing.T) {
	m, err := Build(DefaultRules(2), Input{
		Enrollments:     classOf("254", "5", "s", 4),
		PreferredGroups: []domain.PreferredGroup{{UnitIDs: []string{"s0", "s3"}}},
	})
	require.NoError(t, err)

	res, err := m.Evaluate(split(2, 2))
	require.NoError(t, err)
	require.InDelta(t, 0, res.WeightedScore, 1e-9)
	require.Equal(t, 1, res.PenaltyCount)

	res, err = m.Evaluate([]Label{0, 1, 1, 0})
	require.NoError(t, err)
	require.InDelta(t, 100, res.WeightedScore, 1e-9)
	require.Equal(t, 0, res.PenaltyCount)
}

func TestScoreRejectsEmptyBucket(t *testing.T) {
	m, err := Build(DefaultRules(2), Input{
		Enrollments: classOf("254", "5", "s", 4),
		Buckets:     []domain.BucketDeclaration{{Room: "999", Period: "1"}},
	})
	require.NoError(t, err)

	_, err = m.Evaluate(split(2, 2))
	var emptyErr *EmptyBucketError
	require.True(t, errors.As(err, &emptyErr))
	require.Equal(t, BucketKey{Room: "999", Period: "1"}, emptyErr.Key)
}

func TestBuildRejectsInvalidLabelCount(t *testing.T) {
	for _, k := range []int{0, 1, 3, 5} {
		_, err := Build(DefaultRules(k), Input{Enrollments: classOf("254", "5", "s", 4)})
		require.ErrorIs(t, err, ErrInvalidLabelCount)
	}
}

func TestBuildRejectsUnknownPairingUnit(t *testing.T) {
	_, err := Build(DefaultRules(2), Input{
		Enrollments: classOf("254", "5", "s", 4),
		Pairings:    []domain.Pairing{{UnitID1: "s0", UnitID2: "nobody"}},
	})
	require.ErrorIs(t, err, ErrUnknownUnit)
}

func TestApplyRejectsWrongLength(t *testing.T) {
	m, err := Build(DefaultRules(2), Input{Enrollments: classOf("254", "5", "s", 4)})
	require.NoError(t, err)

	require.ErrorIs(t, m.Apply(split(2, 1)), ErrGenomeLength)
	require.ErrorIs(t, m.Apply([]Label{0, 1, 2, 0}), ErrLabelOutOfRange)
}

func TestScoreIsIndependentOfRecordOrder(t *testing.T) {
	enrollments := append(classOf("101", "1", "a", 25), classOf("102", "2", "b", 18)...)
	enrollments = append(enrollments, classOf("103", "1", "a", 33)...)
	enrollments = append(enrollments, classOf("104", "3", "b", 12)...)

	rng := rand.New(rand.NewSource(7))
	byID := make(map[string]Label)
	for _, e := range enrollments {
		byID[e.UnitID] = Label(rng.Intn(4))
	}

	base, err := Build(DefaultRules(4), Input{Enrollments: enrollments})
	require.NoError(t, err)
	want, err := base.Evaluate(labelsByUnit(t, base, byID))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		shuffled := append([]domain.Enrollment{}, enrollments...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		m, err := Build(DefaultRules(4), Input{Enrollments: shuffled})
		require.NoError(t, err)
		got, err := m.Evaluate(labelsByUnit(t, m, byID))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	m, err := Build(DefaultRules(4), Input{Enrollments: append(classOf("101", "1", "s", 30), classOf("102", "1", "t", 22)...)})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	p := make([]Label, m.CohortCount())
	q := make([]Label, m.CohortCount())
	for i := range p {
		p[i] = Label(rng.Intn(4))
		q[i] = Label(rng.Intn(4))
	}

	first, err := m.Evaluate(p)
	require.NoError(t, err)
	_, err = m.Evaluate(q)
	require.NoError(t, err)
	second, err := m.Evaluate(p)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCloneDoesNotShareLabels(t *testing.T) {
	m, err := Build(DefaultRules(2), Input{Enrollments: classOf("254", "5", "s", 20)})
	require.NoError(t, err)
	require.NoError(t, m.Apply(split(12, 8)))

	c := m.Clone()
	require.NoError(t, c.Apply(split(20, 0)))

	res, err := m.Score()
	require.NoError(t, err)
	require.Equal(t, 1, res.CompliantBuckets)

	res, err = c.Score()
	require.NoError(t, err)
	require.Equal(t, 0, res.CompliantBuckets)
	require.Equal(t, m.Cohorts(), c.Cohorts())
}

func TestOccupancyUsesCompliancePredicate(t *testing.T) {
	m, err := Build(DefaultRules(4), Input{Enrollments: append(classOf("201", "6", "s", 32), classOf("254", "5", "t", 24)...)})
	require.NoError(t, err)

	labels := append(split(10, 6, 8, 8), split(6, 6, 6, 6)...)
	require.NoError(t, m.Apply(labels))

	occ := m.Occupancy()
	require.Len(t, occ, 2)

	require.Equal(t, BucketKey{Room: "201", Period: "6"}, occ[0].Key)
	require.Equal(t, []int{10, 6, 8, 8}, occ[0].Counts)
	require.InDelta(t, 0.0625, occ[0].MaxDeviation, 1e-9)
	require.False(t, occ[0].Compliant)

	require.Equal(t, []int{6, 6, 6, 6}, occ[1].Counts)
	require.InDelta(t, 0, occ[1].MaxDeviation, 1e-9)
	require.True(t, occ[1].Compliant)
}

func TestUnitScheduleAndBucketRoster(t *testing.T) {
	enrollments := append(classOf("101", "1", "s", 3), classOf("102", "2", "s", 2)...)
	m, err := Build(DefaultRules(2), Input{Enrollments: enrollments})
	require.NoError(t, err)
	require.NoError(t, m.Apply([]Label{1, 0, 1}))

	a, keys, err := m.UnitSchedule("s1")
	require.NoError(t, err)
	require.Equal(t, Label(0), a.Label)
	require.Equal(t, []BucketKey{{Room: "101", Period: "1"}, {Room: "102", Period: "2"}}, keys)

	roster, err := m.BucketRoster(BucketKey{Room: "102", Period: "2"})
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, "B", roster[0].Label.String())

	_, err = m.BucketRoster(BucketKey{Room: "nope", Period: "1"})
	require.ErrorIs(t, err, ErrUnknownBucket)
}
