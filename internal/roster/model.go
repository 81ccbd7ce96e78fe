package roster

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// Label 是分配给学生的组别，0 对应 A，1 对应 B，以此类推
type Label uint8

func (l Label) String() string {
	return string(rune('A' + l))
}

func ParseLabel(s string) (Label, error) {
	if len(s) != 1 || s[0] < 'A' || s[0] > 'D' {
		return 0, fmt.Errorf("无效的分组标签 %q", s)
	}
	return Label(s[0] - 'A'), nil
}

type Unit struct {
	ID         string
	LastName   string
	FirstName  string
	MiddleName string

	index   int
	buckets []*Bucket
	label   Label // 只在计算适应度时有意义
}

func (u *Unit) Label() Label {
	return u.label
}

// BucketKey 用 (教室, 节次) 唯一标识一个班级
type BucketKey struct {
	Room   string
	Period string
}

func (k BucketKey) String() string {
	return k.Room + "/" + k.Period
}

func compareKeys(a, b BucketKey) int {
	if c := cmp.Compare(a.Room, b.Room); c != 0 {
		return c
	}
	return cmp.Compare(a.Period, b.Period)
}

type Bucket struct {
	Key           BucketKey
	CourseNumbers []string
	CourseNames   []string
	CourseIDs     []string

	roster []*Unit
}

func (b *Bucket) Size() int {
	return len(b.roster)
}

// Cohort 中的学生必须分到同一组，是分组序列中的一个基因
type Cohort struct {
	members []*Unit
}

func (c *Cohort) Members() []string {
	ids := make([]string, len(c.members))
	for i, u := range c.members {
		ids[i] = u.ID
	}
	return ids
}

// Input 是构建 Model 所需的外部记录，要求已经过校验
type Input struct {
	Enrollments     []domain.Enrollment
	Pairings        []domain.Pairing
	PreferredGroups []domain.PreferredGroup
	Buckets         []domain.BucketDeclaration
}

// Model 保存学生、班级、绑定组之间的关系，构建完成后结构不再改变。
// 每次计算适应度都会改写学生的 label，因此同一个 Model 不能被多个 goroutine 共享，
// 需要并发时请使用 Clone。
type Model struct {
	rules Rules

	units       []*Unit
	unitIndex   map[string]*Unit
	buckets     []*Bucket // 按 BucketKey 排序
	bucketIndex map[BucketKey]*Bucket
	cohorts     []*Cohort
	unitCohort  map[string]int
	preferred   [][]*Unit
}

func Build(rules Rules, in Input) (*Model, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	m := &Model{
		rules:       rules,
		units:       make([]*Unit, 0),
		unitIndex:   make(map[string]*Unit),
		buckets:     make([]*Bucket, 0),
		bucketIndex: make(map[BucketKey]*Bucket),
	}

	for _, decl := range in.Buckets {
		m.bucket(BucketKey{Room: decl.Room, Period: decl.Period})
	}

	for _, e := range in.Enrollments {
		u, exists := m.unitIndex[e.UnitID]
		if !exists {
			u = &Unit{
				ID:         e.UnitID,
				LastName:   e.LastName,
				FirstName:  e.FirstName,
				MiddleName: e.MiddleName,
				index:      len(m.units),
			}
			m.units = append(m.units, u)
			m.unitIndex[e.UnitID] = u
		}

		b := m.bucket(BucketKey{Room: e.Room, Period: e.Period})
		b.CourseNumbers = appendUnique(b.CourseNumbers, e.CourseNumber)
		b.CourseNames = appendUnique(b.CourseNames, e.CourseName)
		b.CourseIDs = appendUnique(b.CourseIDs, e.CourseID)
		b.roster = append(b.roster, u)
		u.buckets = append(u.buckets, b)
	}

	// 固定班级的遍历顺序，使得适应度与记录顺序无关
	slices.SortFunc(m.buckets, func(a, b *Bucket) int {
		return compareKeys(a.Key, b.Key)
	})

	groups, err := buildCohorts(m.units, m.unitIndex, in.Pairings)
	if err != nil {
		return nil, err
	}
	m.cohorts = make([]*Cohort, len(groups))
	m.unitCohort = make(map[string]int, len(m.units))
	for i, members := range groups {
		m.cohorts[i] = &Cohort{members: members}
		for _, u := range members {
			m.unitCohort[u.ID] = i
		}
	}

	m.preferred = make([][]*Unit, 0, len(in.PreferredGroups))
	for i, group := range in.PreferredGroups {
		members := make([]*Unit, 0, len(group.UnitIDs))
		for _, id := range group.UnitIDs {
			u, exists := m.unitIndex[id]
			if !exists {
				return nil, fmt.Errorf("第 %d 个偏好分组中的学生 %s: %w", i+1, id, ErrUnknownUnit)
			}
			members = append(members, u)
		}
		m.preferred = append(m.preferred, members)
	}

	return m, nil
}

func (m *Model) bucket(key BucketKey) *Bucket {
	if b, exists := m.bucketIndex[key]; exists {
		return b
	}
	b := &Bucket{Key: key, roster: make([]*Unit, 0)}
	m.buckets = append(m.buckets, b)
	m.bucketIndex[key] = b
	return b
}

func appendUnique(list []string, v string) []string {
	if v == "" || slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// Clone 深拷贝整个模型，拷贝与原模型不共享任何可变状态
func (m *Model) Clone() *Model {
	c := &Model{
		rules:       m.rules,
		units:       make([]*Unit, len(m.units)),
		unitIndex:   make(map[string]*Unit, len(m.units)),
		buckets:     make([]*Bucket, len(m.buckets)),
		bucketIndex: make(map[BucketKey]*Bucket, len(m.buckets)),
		cohorts:     make([]*Cohort, len(m.cohorts)),
		unitCohort:  make(map[string]int, len(m.unitCohort)),
		preferred:   make([][]*Unit, len(m.preferred)),
	}

	for i, u := range m.units {
		c.units[i] = &Unit{
			ID:         u.ID,
			LastName:   u.LastName,
			FirstName:  u.FirstName,
			MiddleName: u.MiddleName,
			index:      u.index,
			label:      u.label,
		}
		c.unitIndex[u.ID] = c.units[i]
	}

	for i, b := range m.buckets {
		nb := &Bucket{
			Key:           b.Key,
			CourseNumbers: slices.Clone(b.CourseNumbers),
			CourseNames:   slices.Clone(b.CourseNames),
			CourseIDs:     slices.Clone(b.CourseIDs),
			roster:        make([]*Unit, len(b.roster)),
		}
		for j, u := range b.roster {
			nb.roster[j] = c.units[u.index]
		}
		c.buckets[i] = nb
		c.bucketIndex[nb.Key] = nb
	}
	for i, u := range m.units {
		c.units[i].buckets = make([]*Bucket, len(u.buckets))
		for j, b := range u.buckets {
			c.units[i].buckets[j] = c.bucketIndex[b.Key]
		}
	}

	for i, cohort := range m.cohorts {
		c.cohorts[i] = &Cohort{members: c.remap(cohort.members)}
	}
	for id, idx := range m.unitCohort {
		c.unitCohort[id] = idx
	}
	for i, group := range m.preferred {
		c.preferred[i] = c.remap(group)
	}

	return c
}

func (m *Model) remap(units []*Unit) []*Unit {
	out := make([]*Unit, len(units))
	for i, u := range units {
		out[i] = m.units[u.index]
	}
	return out
}

func (m *Model) Rules() Rules {
	return m.rules
}

func (m *Model) LabelCount() int {
	return m.rules.LabelCount
}

// CohortCount 即分组序列的长度
func (m *Model) CohortCount() int {
	return len(m.cohorts)
}

func (m *Model) UnitCount() int {
	return len(m.units)
}

func (m *Model) BucketCount() int {
	return len(m.buckets)
}

func (m *Model) Cohorts() [][]string {
	out := make([][]string, len(m.cohorts))
	for i, c := range m.cohorts {
		out[i] = c.Members()
	}
	return out
}

// CohortOf 返回学生所在绑定组在分组序列中的下标
func (m *Model) CohortOf(unitID string) (int, error) {
	idx, exists := m.unitCohort[unitID]
	if !exists {
		return 0, fmt.Errorf("学生 %s: %w", unitID, ErrUnknownUnit)
	}
	return idx, nil
}

// Apply 把分组序列写到每个学生身上
func (m *Model) Apply(labels []Label) error {
	if len(labels) != len(m.cohorts) {
		return fmt.Errorf("%w: 需要 %d，实际为 %d", ErrGenomeLength, len(m.cohorts), len(labels))
	}
	for i, c := range m.cohorts {
		if int(labels[i]) >= m.rules.LabelCount {
			return fmt.Errorf("%w: 第 %d 个基因为 %d", ErrLabelOutOfRange, i, labels[i])
		}
		for _, u := range c.members {
			u.label = labels[i]
		}
	}
	return nil
}

// Evaluate 应用分组序列并计算适应度
func (m *Model) Evaluate(labels []Label) (FitnessResult, error) {
	if err := m.Apply(labels); err != nil {
		return FitnessResult{}, err
	}
	return m.Score()
}
