package scheduler

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/evolver"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

type islandHarness struct {
	island       *Island
	model        *roster.Model
	reports      chan Report
	replacements chan Replacement
	done         chan error
}

// startIsland 在单独的 goroutine 中运行一个岛屿，测试通过 channel 扮演协调者
func startIsland(t *testing.T, ctx context.Context, params *Parameters) *islandHarness {
	t.Helper()

	model := testModel(t, 2).Clone()
	codec, err := partition.CodecFor(model)
	require.NoError(t, err)

	h := &islandHarness{
		model:        model,
		reports:      make(chan Report, 1),
		replacements: make(chan Replacement, 1),
		done:         make(chan error, 1),
	}
	h.island = &Island{
		id:           0,
		params:       params,
		model:        model,
		evolver:      evolver.New(codec, model, evolver.NewOperators(2, params.MutationRate), rand.New(rand.NewSource(5))),
		reports:      h.reports,
		replacements: h.replacements,
	}

	go func() {
		h.done <- h.island.Run(ctx)
	}()
	return h
}

func (h *islandHarness) report(t *testing.T) Report {
	t.Helper()
	select {
	case r := <-h.reports:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("岛屿没有上报结果")
		return Report{}
	}
}

func (h *islandHarness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("岛屿没有结束")
		return nil
	}
}

func islandParameters() *Parameters {
	return &Parameters{
		Islands:           1,
		PopulationSize:    8,
		MutationRate:      0.05,
		Eras:              2,
		GenerationsPerEra: 0,
	}
}

func TestIslandStartsEraFromReplacement(t *testing.T) {
	h := startIsland(t, context.Background(), islandParameters())

	first := h.report(t)
	require.Equal(t, 0, first.WorkerID)
	require.Equal(t, 0, first.Era)
	require.Len(t, first.Population, 8)

	marked := uniformPopulation(8, h.model.CohortCount(), 1)
	parts := make([]partition.Partition, len(marked))
	for i, s := range marked {
		parts[i] = s.Partition
	}
	h.replacements <- Replacement{Era: 1, Population: parts}

	second := h.report(t)
	require.Equal(t, 1, second.Era)
	require.Len(t, second.Population, 8)
	for _, s := range second.Population {
		require.True(t, s.Partition.Equal(marked[0].Partition))

		got, err := h.model.Clone().Evaluate(s.Partition)
		require.NoError(t, err)
		require.Equal(t, got, s.Fitness)
	}

	require.NoError(t, h.wait(t))
}

func TestIslandEvolvesOnlyReplacementOffspring(t *testing.T) {
	params := islandParameters()
	params.GenerationsPerEra = 1
	params.MutationRate = 0
	params.PopulationSize = 10

	h := startIsland(t, context.Background(), params)
	h.report(t)

	// 新种群全部为 B，精英与交叉后的个体都只能是 B，只有新血液是随机的
	marked := uniformPopulation(10, h.model.CohortCount(), 1)
	parts := make([]partition.Partition, len(marked))
	for i, s := range marked {
		parts[i] = s.Partition
	}
	h.replacements <- Replacement{Era: 1, Population: parts}

	second := h.report(t)
	allB := 0
	for _, s := range second.Population {
		if onlyLabels(s.Partition, 1) {
			allB++
		}
	}
	newBlood := len(second.Population) / 10
	require.GreaterOrEqual(t, allB, len(second.Population)-newBlood)

	require.NoError(t, h.wait(t))
}

func TestIslandRejectsReplacementForWrongEra(t *testing.T) {
	h := startIsland(t, context.Background(), islandParameters())
	h.report(t)

	pop := uniformPopulation(8, h.model.CohortCount(), 0)
	parts := make([]partition.Partition, len(pop))
	for i, s := range pop {
		parts[i] = s.Partition
	}
	h.replacements <- Replacement{Era: 3, Population: parts}

	require.ErrorIs(t, h.wait(t), ErrProtocol)
}

func TestIslandStopsWhenReplacementsClosed(t *testing.T) {
	h := startIsland(t, context.Background(), islandParameters())
	h.report(t)

	close(h.replacements)
	require.NoError(t, h.wait(t))
}

func TestIslandStopsWhenCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := startIsland(t, ctx, islandParameters())
	h.report(t)

	cancel()
	require.NoError(t, h.wait(t))
}
