package roster

import (
	"fmt"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// disjointSet 并查集，带路径压缩和按大小合并
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

func (d *disjointSet) find(x int) int {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[x] != root {
		next := d.parent[x]
		d.parent[x] = root
		x = next
	}
	return root
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// buildCohorts 把配对关系合并为连通分量，没有出现在任何配对中的学生单独成组。
// 绑定组按其中最早出现的学生排序，组内学生也按出现顺序排列，
// 因此结果与配对记录的顺序无关。
func buildCohorts(units []*Unit, index map[string]*Unit, pairings []domain.Pairing) ([][]*Unit, error) {
	set := newDisjointSet(len(units))

	for i, p := range pairings {
		u1, exists := index[p.UnitID1]
		if !exists {
			return nil, fmt.Errorf("第 %d 条配对记录中的学生 %s: %w", i+1, p.UnitID1, ErrUnknownUnit)
		}
		u2, exists := index[p.UnitID2]
		if !exists {
			return nil, fmt.Errorf("第 %d 条配对记录中的学生 %s: %w", i+1, p.UnitID2, ErrUnknownUnit)
		}
		set.union(u1.index, u2.index)
	}

	groups := make([][]*Unit, 0)
	rootGroup := make(map[int]int)
	for _, u := range units {
		root := set.find(u.index)
		g, exists := rootGroup[root]
		if !exists {
			g = len(groups)
			rootGroup[root] = g
			groups = append(groups, make([]*Unit, 0, set.size[root]))
		}
		groups[g] = append(groups[g], u)
	}

	return groups, nil
}

// BuildCohorts 对给定的学生列表（按出现顺序）计算绑定组，返回每组学生的 ID
func BuildCohorts(unitIDs []string, pairings []domain.Pairing) ([][]string, error) {
	units := make([]*Unit, 0, len(unitIDs))
	index := make(map[string]*Unit, len(unitIDs))
	for _, id := range unitIDs {
		if _, exists := index[id]; exists {
			continue
		}
		u := &Unit{ID: id, index: len(units)}
		units = append(units, u)
		index[id] = u
	}

	groups, err := buildCohorts(units, index, pairings)
	if err != nil {
		return nil, err
	}

	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = make([]string, len(g))
		for j, u := range g {
			out[i][j] = u.ID
		}
	}
	return out, nil
}
