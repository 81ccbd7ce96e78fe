package domain

import "time"

type RunStatus string

const (
	RunStatusQueued   RunStatus = "排队中"
	RunStatusRunning  RunStatus = "运行中"
	RunStatusFinished RunStatus = "已完成"
	RunStatusFailed   RunStatus = "失败"
)

// RunParameters 是一次优化任务的参数
type RunParameters struct {
	LabelCount           int32   `json:"labelCount"`
	HalfMax              int32   `json:"halfMax"`
	QuarterMax           int32   `json:"quarterMax"`
	PairwiseMultiplier   float64 `json:"pairwiseMultiplier"`
	IndividualMultiplier float64 `json:"individualMultiplier"`
	PopulationSize       int32   `json:"populationSize"`
	MutationRate         float64 `json:"mutationRate"`
	Islands              int32   `json:"islands"`
	Eras                 int32   `json:"eras"`
	GenerationsPerEra    int32   `json:"generationsPerEra"`
	WallClockSeconds     int32   `json:"wallClockSeconds"`
	Seed                 int64   `json:"seed"` // 0 表示使用当前时间
}

type FitnessSummary struct {
	WeightedScore    float64 `json:"weightedScore"`
	PenaltyCount     int32   `json:"penaltyCount"`
	CompliantBuckets int32   `json:"compliantBuckets"`
	OtherCount       int32   `json:"otherCount"`
	TotalBuckets     int32   `json:"totalBuckets"`
}

type OptimizationRun struct {
	ID            int64           `json:"id"`
	RosterID      int64           `json:"rosterID"`
	Status        RunStatus       `json:"status"`
	Parameters    RunParameters   `json:"parameters"`
	Best          *FitnessSummary `json:"best"`
	ErasCompleted int32           `json:"erasCompleted"`
	ErrorMessage  string          `json:"errorMessage"`
	RequestedBy   int64           `json:"requestedBy"`
	CreatedAt     time.Time       `json:"createdAt"`
	FinishedAt    *time.Time      `json:"finishedAt"`
	Version       int32           `json:"-"`
}

// OptimizationJob 是投递到消息队列中的任务
type OptimizationJob struct {
	RunID int64 `json:"runID"`
}

// RunProgress 是某个岛在某一代的进度，存放在 redis 中
type RunProgress struct {
	RunID            int64     `json:"runID"`
	WorkerID         int       `json:"workerID"`
	Era              int       `json:"era"`
	Generation       int       `json:"generation"`
	WeightedScore    float64   `json:"weightedScore"`
	CompliantBuckets int       `json:"compliantBuckets"`
	TotalBuckets     int       `json:"totalBuckets"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
