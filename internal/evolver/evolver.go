package evolver

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

var ErrEmptyPopulation = errors.New("种群为空")

// Evaluator 计算一个分组方案的适应度，*roster.Model 实现了这个接口
type Evaluator interface {
	Evaluate(labels []roster.Label) (roster.FitnessResult, error)
}

// Scored 是带有适应度的分组方案
type Scored struct {
	Partition partition.Partition
	Fitness   roster.FitnessResult
}

// Generation 是某一代的种群，按适应度从高到低排列
type Generation struct {
	Number     int
	Population []Scored
}

func (g Generation) Best() Scored {
	return g.Population[0]
}

// SortByFitness 按适应度降序稳定排序
func SortByFitness(pop []Scored) {
	slices.SortStableFunc(pop, func(a, b Scored) int {
		return b.Fitness.Compare(a.Fitness)
	})
}

// Tournament 独立均匀抽取 reps 个下标并返回其中最小的一个。
// 种群按适应度降序排列，因此下标越小代表适应度越高。
func Tournament(rng *rand.Rand, size, reps int) int {
	best := rng.Intn(size)
	for i := 1; i < reps; i++ {
		best = min(best, rng.Intn(size))
	}
	return best
}

// TournamentReps 是 Tournament 的默认抽取次数
func TournamentReps(size int) int {
	return max(1, size/10)
}

// Evolver 在一个私有的 Evaluator 上演化种群，不能被多个 goroutine 共享
type Evolver struct {
	codec *partition.Codec
	eval  Evaluator
	ops   Operators
	rng   *rand.Rand
}

func New(codec *partition.Codec, eval Evaluator, ops Operators, rng *rand.Rand) *Evolver {
	return &Evolver{
		codec: codec,
		eval:  eval,
		ops:   ops,
		rng:   rng,
	}
}

// Score 计算每个分组方案的适应度并排序
func (e *Evolver) Score(parts []partition.Partition) ([]Scored, error) {
	pop := make([]Scored, len(parts))
	for i, p := range parts {
		fitness, err := e.eval.Evaluate(p)
		if err != nil {
			return nil, fmt.Errorf("计算第 %d 个分组方案的适应度失败: %w", i, err)
		}
		pop[i] = Scored{Partition: p, Fitness: fitness}
	}
	SortByFitness(pop)
	return pop, nil
}

// Seed 随机生成初始种群
func (e *Evolver) Seed(size int) (Generation, error) {
	if size <= 0 {
		return Generation{}, ErrEmptyPopulation
	}

	parts := make([]partition.Partition, size)
	for i := range parts {
		parts[i] = e.codec.Random(e.rng)
	}

	pop, err := e.Score(parts)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Number: 0, Population: pop}, nil
}

// Reseed 使用外部给定的分组方案作为新的种群，例如岛屿之间交叉后的替换种群
func (e *Evolver) Reseed(number int, parts []partition.Partition) (Generation, error) {
	if len(parts) == 0 {
		return Generation{}, ErrEmptyPopulation
	}
	for i, p := range parts {
		if err := e.codec.Check(p); err != nil {
			return Generation{}, fmt.Errorf("第 %d 个分组方案: %w", i, err)
		}
	}

	pop, err := e.Score(parts)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Number: number, Population: pop}, nil
}

/**
 * 由当前种群繁殖下一代
 * 1. 前 2n/10 个精英原样保留
 * 2. 加入 n/10 个随机生成的新个体
 * 3. 剩余位置由锦标赛选出的父本成对繁殖，多出的一个子代被丢弃
 */
func (e *Evolver) Step(gen Generation) (Generation, error) {
	n := len(gen.Population)
	if n == 0 {
		return Generation{}, ErrEmptyPopulation
	}

	elites := 2 * n / 10
	newBlood := n / 10

	parts := make([]partition.Partition, 0, n)
	for _, s := range gen.Population[:elites] {
		parts = append(parts, s.Partition.Clone())
	}
	for i := 0; i < newBlood; i++ {
		parts = append(parts, e.codec.Random(e.rng))
	}

	reps := TournamentReps(n)
	for len(parts) < n {
		p1 := gen.Population[Tournament(e.rng, n, reps)].Partition
		p2 := gen.Population[Tournament(e.rng, n, reps)].Partition
		c1, c2 := e.ops.Offspring(e.rng, p1, p2)

		parts = append(parts, c1)
		if len(parts) < n {
			parts = append(parts, c2)
		}
	}

	pop, err := e.Score(parts)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Number: gen.Number + 1, Population: pop}, nil
}
