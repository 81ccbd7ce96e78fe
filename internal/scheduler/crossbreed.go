package scheduler

import (
	"math/rand"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/evolver"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
)

/**
 * 岛屿之间的交叉
 * 对于第 i 个岛屿，新种群由以下部分组成：
 * 1. 第 i 个岛屿的前 n/4 个精英
 * 2. 对于其余每个岛屿 j（按 ID 升序），一段由锦标赛选择的子代，父本 1 来自 i，父本 2 来自 j
 *    每段的长度为 (n - 精英数) / (N - 1)，余数由最后一个岛屿补足
 * 只有一个岛屿时，它与自身交叉。
 * populations 必须按岛屿 ID 排列，且每个种群都按适应度降序排列。
 */
func CrossBreed(rng *rand.Rand, ops evolver.Operators, populations [][]evolver.Scored) [][]partition.Partition {
	out := make([][]partition.Partition, len(populations))

	for i, pop := range populations {
		n := len(pop)
		elites := n / 4

		next := make([]partition.Partition, 0, n)
		for _, s := range pop[:elites] {
			next = append(next, s.Partition.Clone())
		}

		partners := make([]int, 0, len(populations))
		for j := range populations {
			if j != i {
				partners = append(partners, j)
			}
		}
		if len(partners) == 0 {
			partners = append(partners, i)
		}

		block := (n - elites) / len(partners)
		for k, j := range partners {
			count := block
			if k == len(partners)-1 {
				count = n - elites - block*(len(partners)-1)
			}
			next = append(next, breedBlock(rng, ops, pop, populations[j], count)...)
		}

		out[i] = next
	}

	return out
}

func breedBlock(rng *rand.Rand, ops evolver.Operators, home, away []evolver.Scored, count int) []partition.Partition {
	block := make([]partition.Partition, 0, count)
	homeReps := evolver.TournamentReps(len(home))
	awayReps := evolver.TournamentReps(len(away))

	for len(block) < count {
		p1 := home[evolver.Tournament(rng, len(home), homeReps)].Partition
		p2 := away[evolver.Tournament(rng, len(away), awayReps)].Partition
		c1, c2 := ops.Offspring(rng, p1, p2)

		block = append(block, c1)
		if len(block) < count {
			block = append(block, c2)
		}
	}
	return block
}
