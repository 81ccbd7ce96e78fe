package domain

import "time"

type UnitAssignment struct {
	UnitID     string `json:"unitID"`
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	Label      string `json:"label"`
}

type BucketAnalysis struct {
	Room          string    `json:"room"`
	Period        string    `json:"period"`
	CourseNumbers []string  `json:"courseNumbers"`
	Total         int32     `json:"total"`
	Counts        []int32   `json:"counts"`
	Ratios        []float64 `json:"ratios"`
	MaxDeviation  float64   `json:"maxDeviation"`
	Compliant     bool      `json:"compliant"`
}

// RunResult 是某次优化任务目前找到的最优分组
type RunResult struct {
	RunID       int64            `json:"runID"`
	WorkerID    int32            `json:"workerID"`
	Era         int32            `json:"era"`
	Fitness     FitnessSummary   `json:"fitness"`
	Assignments []UnitAssignment `json:"assignments"`
	Buckets     []BucketAnalysis `json:"buckets"`
	CreatedAt   time.Time        `json:"createdAt"`
}
