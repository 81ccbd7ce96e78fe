package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/evolver"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

// uniformPopulation 生成 size 个所有基因都为 label 的个体
func uniformPopulation(size, length int, label roster.Label) []evolver.Scored {
	pop := make([]evolver.Scored, size)
	for i := range pop {
		p := make(partition.Partition, length)
		for j := range p {
			p[j] = label
		}
		pop[i] = evolver.Scored{Partition: p}
	}
	return pop
}

func onlyLabels(p partition.Partition, allowed ...roster.Label) bool {
	for _, l := range p {
		ok := false
		for _, a := range allowed {
			if l == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func TestCrossBreedThreeIslands(t *testing.T) {
	populations := [][]evolver.Scored{
		uniformPopulation(10, 40, 0),
		uniformPopulation(10, 40, 1),
		uniformPopulation(10, 40, 2),
	}
	ops := evolver.NewOperators(4, 0)

	next := CrossBreed(rand.New(rand.NewSource(1)), ops, populations)
	require.Len(t, next, 3)

	for i, pop := range next {
		require.Len(t, pop, 10)

		// 前 n/4 = 2 个为本岛屿的精英
		for _, p := range pop[:2] {
			require.True(t, p.Equal(populations[i][0].Partition))
		}

		// 之后每个其他岛屿各贡献 (10-2)/2 = 4 个子代
		partners := make([]roster.Label, 0, 2)
		for j := range populations {
			if j != i {
				partners = append(partners, roster.Label(j))
			}
		}
		for _, p := range pop[2:6] {
			require.True(t, onlyLabels(p, roster.Label(i), partners[0]))
		}
		for _, p := range pop[6:10] {
			require.True(t, onlyLabels(p, roster.Label(i), partners[1]))
		}
	}
}

func TestCrossBreedLastPartnerAbsorbsRemainder(t *testing.T) {
	populations := [][]evolver.Scored{
		uniformPopulation(11, 40, 0),
		uniformPopulation(11, 40, 1),
		uniformPopulation(11, 40, 2),
	}

	next := CrossBreed(rand.New(rand.NewSource(2)), evolver.NewOperators(4, 0), populations)

	// 精英 11/4 = 2，每段 (11-2)/2 = 4，最后一段补足为 5
	pop := next[0]
	require.Len(t, pop, 11)
	for _, p := range pop[2:6] {
		require.True(t, onlyLabels(p, 0, 1))
	}
	for _, p := range pop[6:] {
		require.True(t, onlyLabels(p, 0, 2))
	}
}

func TestCrossBreedSingleIslandBreedsWithItself(t *testing.T) {
	populations := [][]evolver.Scored{uniformPopulation(8, 20, 1)}

	next := CrossBreed(rand.New(rand.NewSource(3)), evolver.NewOperators(2, 0), populations)
	require.Len(t, next, 1)
	require.Len(t, next[0], 8)
	for _, p := range next[0] {
		require.True(t, onlyLabels(p, 1))
	}
}

func TestCrossBreedDoesNotAliasParents(t *testing.T) {
	populations := [][]evolver.Scored{uniformPopulation(4, 10, 0), uniformPopulation(4, 10, 1)}

	next := CrossBreed(rand.New(rand.NewSource(4)), evolver.NewOperators(2, 0), populations)
	next[0][0][0] = 1
	require.Equal(t, roster.Label(0), populations[0][0].Partition[0])
}
