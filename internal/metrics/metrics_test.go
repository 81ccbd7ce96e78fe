package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/scheduler"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func TestObserveProgress(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveProgress(scheduler.Progress{WorkerID: 1, Generation: 1, Fitness: roster.FitnessResult{WeightedScore: 42.5, CompliantBuckets: 3}})
	c.ObserveProgress(scheduler.Progress{WorkerID: 1, Generation: 2, Fitness: roster.FitnessResult{WeightedScore: 60, CompliantBuckets: 4}})

	families := gather(t, reg)

	score := families["partition_optimizer_island_best_weighted_score"]
	require.NotNil(t, score)
	require.Len(t, score.GetMetric(), 1)
	require.Equal(t, 60.0, score.GetMetric()[0].GetGauge().GetValue())
	require.Equal(t, "1", score.GetMetric()[0].GetLabel()[0].GetValue())

	generations := families["partition_optimizer_island_generations_total"]
	require.NotNil(t, generations)
	require.Equal(t, 2.0, generations.GetMetric()[0].GetCounter().GetValue())

	c.Reset()
	families = gather(t, reg)
	require.Nil(t, families["partition_optimizer_island_best_weighted_score"])
}

func TestObserveResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveResult(&scheduler.Result{ErasCompleted: 7, StopReason: scheduler.StopWallClock}, 3*time.Second)
	c.ObserveResult(nil, time.Second)

	families := gather(t, reg)

	require.Equal(t, 7.0, families["partition_optimizer_run_eras_completed"].GetMetric()[0].GetGauge().GetValue())

	reasons := map[string]float64{}
	for _, m := range families["partition_optimizer_run_finished_total"].GetMetric() {
		reasons[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	require.Equal(t, map[string]float64{"wall_clock": 1, "failed": 1}, reasons)

	duration := families["partition_optimizer_run_duration_seconds"].GetMetric()[0].GetHistogram()
	require.EqualValues(t, 2, duration.GetSampleCount())
	require.Equal(t, 4.0, duration.GetSampleSum())
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.ObserveProgress(scheduler.Progress{WorkerID: 0, Fitness: roster.FitnessResult{WeightedScore: 10}})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `partition_optimizer_island_best_weighted_score{island="0"} 10`)
}
