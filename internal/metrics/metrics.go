package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/scheduler"
)

const namespace = "partition_optimizer"

// Collector 记录优化任务的运行指标
type Collector struct {
	bestScore        *prometheus.GaugeVec
	compliantBuckets *prometheus.GaugeVec
	generations      *prometheus.CounterVec
	erasCompleted    prometheus.Gauge
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// New 创建指标并注册到 reg 上，reg 为 nil 时使用默认的 Registerer
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		bestScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "island",
			Name:      "best_weighted_score",
			Help:      "Weighted score of the best partition of the latest generation by island.",
		}, []string{"island"}),
		compliantBuckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "island",
			Name:      "compliant_buckets",
			Help:      "Compliant buckets of the best partition of the latest generation by island.",
		}, []string{"island"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "island",
			Name:      "generations_total",
			Help:      "Total generations evolved by island.",
		}, []string{"island"}),
		erasCompleted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "eras_completed",
			Help:      "Eras completed by the latest finished run.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "finished_total",
			Help:      "Total finished runs by stop reason (eras,wall_clock,cancelled,failed).",
		}, []string{"reason"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of optimization runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~34min
		}),
	}

	reg.MustRegister(
		c.bestScore,
		c.compliantBuckets,
		c.generations,
		c.erasCompleted,
		c.runs,
		c.runDuration,
	)

	return c
}

// Reset 在新任务开始前清空按岛屿划分的指标
func (c *Collector) Reset() {
	c.bestScore.Reset()
	c.compliantBuckets.Reset()
}

// ObserveProgress 可以直接作为 scheduler.ProgressFunc 使用
func (c *Collector) ObserveProgress(p scheduler.Progress) {
	island := strconv.Itoa(p.WorkerID)
	c.bestScore.WithLabelValues(island).Set(p.Fitness.WeightedScore)
	c.compliantBuckets.WithLabelValues(island).Set(float64(p.Fitness.CompliantBuckets))
	c.generations.WithLabelValues(island).Inc()
}

// ObserveResult 记录一次任务的结束，result 为 nil 表示任务失败
func (c *Collector) ObserveResult(result *scheduler.Result, elapsed time.Duration) {
	c.runDuration.Observe(elapsed.Seconds())
	if result == nil {
		c.runs.WithLabelValues("failed").Inc()
		return
	}
	c.erasCompleted.Set(float64(result.ErasCompleted))
	c.runs.WithLabelValues(string(result.StopReason)).Inc()
}

// Handler 暴露 g 中的指标
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
