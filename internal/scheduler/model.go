package scheduler

import (
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/evolver"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/partition"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

// ErrProtocol 表示岛屿上报的结果不符合约定，例如重复上报或上报了错误的轮次
var ErrProtocol = errors.New("岛屿上报协议错误")

// 岛屿模型遗传算法参数
type Parameters struct {
	Islands           int           // 岛屿数量，每个岛屿在单独的 goroutine 中演化
	PopulationSize    int           // 每个岛屿的种群大小
	MutationRate      float64       // 变异概率
	Eras              int           // 最大轮数，每轮结束后岛屿之间进行交叉
	GenerationsPerEra int           // 每轮迭代的代数
	WallClock         time.Duration // 运行时间上限，0 表示不限制，只在两轮之间检查
	Seed              int64         // 随机数种子，0 表示使用当前时间
}

// Report 是岛屿在一轮结束时上报给协调者的种群
type Report struct {
	WorkerID   int
	Era        int
	Population []evolver.Scored // 按适应度降序
}

// Replacement 是协调者交叉之后发给岛屿的下一轮初始种群
type Replacement struct {
	Era        int
	Population []partition.Partition
}

// Progress 在每一代演化结束后产生
type Progress struct {
	WorkerID   int
	Era        int
	Generation int
	Fitness    roster.FitnessResult
}

// ProgressFunc 会被多个岛屿并发调用
type ProgressFunc func(Progress)

// EraReport 是岛屿在一轮结束时的最佳分组方案及其详细情况
type EraReport struct {
	WorkerID    int
	Era         int
	Best        evolver.Scored
	Assignments []roster.Assignment
	Occupancy   []roster.BucketOccupancy
}

// ReportWriter 会被多个岛屿并发调用，实现需要保证并发安全
type ReportWriter interface {
	WriteEra(report EraReport) error
}

type StopReason string

const (
	StopEras      StopReason = "eras"
	StopWallClock StopReason = "wall_clock"
	StopCancelled StopReason = "cancelled"
)

type Result struct {
	Best          evolver.Scored
	BestWorker    int
	BestEra       int
	IslandBests   []evolver.Scored // 下标为岛屿 ID
	Assignments   []roster.Assignment
	Occupancy     []roster.BucketOccupancy
	ErasCompleted int
	StopReason    StopReason
	Elapsed       time.Duration
}
