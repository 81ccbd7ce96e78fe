package evolver

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

const (
	DefaultMinInjection = 10
	DefaultMaxInjection = 30
)

// Operators 是繁殖子代时使用的交叉与变异算子
type Operators struct {
	LabelCount   int     // 分组数量
	MutationRate float64 // 每个基因发生变异的概率
	MinInjection int     // 每次交叉最少交换的基因个数
	MaxInjection int     // 每次交叉最多交换的基因个数
}

func NewOperators(labelCount int, mutationRate float64) Operators {
	return Operators{
		LabelCount:   labelCount,
		MutationRate: mutationRate,
		MinInjection: DefaultMinInjection,
		MaxInjection: DefaultMaxInjection,
	}
}

// Offspring 由两个父本生成两个子代，父本不会被修改。
// 先复制父本，再随机选取 [MinInjection, MaxInjection] 个位置逐个交换基因，最后分别变异。
func (o Operators) Offspring(rng *rand.Rand, p1, p2 partition.Partition) (partition.Partition, partition.Partition) {
	c1 := p1.Clone()
	c2 := p2.Clone()

	if n := len(c1); n > 0 && n == len(c2) {
		injection := o.MinInjection
		if o.MaxInjection > o.MinInjection {
			injection += rng.Intn(o.MaxInjection - o.MinInjection + 1)
		}
		for i := 0; i < injection; i++ {
			idx := rng.Intn(n)
			c1[idx], c2[idx] = c2[idx], c1[idx]
		}
	}

	o.Mutate(rng, c1)
	o.Mutate(rng, c2)
	return c1, c2
}

// Mutate 以 MutationRate 的概率把每个基因替换为另外 K-1 个标签之一
func (o Operators) Mutate(rng *rand.Rand, p partition.Partition) {
	if o.LabelCount < 2 {
		return
	}
	for i := range p {
		if rng.Float64() >= o.MutationRate {
			continue
		}
		// 在 [0, K-1) 中取值，跳过当前标签
		l := roster.Label(rng.Intn(o.LabelCount - 1))
		if l >= p[i] {
			l++
		}
		p[i] = l
	}
}
