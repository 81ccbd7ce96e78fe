package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/scheduler"
)

// improving 只把比之前更好的报告转发给 next，并保证 next 不会被并发调用
type improving struct {
	mu   sync.Mutex
	best *roster.FitnessResult
	next scheduler.ReportWriter
}

func Improving(next scheduler.ReportWriter) scheduler.ReportWriter {
	return &improving{next: next}
}

func (w *improving) WriteEra(report scheduler.EraReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.best != nil && report.Best.Fitness.Compare(*w.best) <= 0 {
		return nil
	}
	if err := w.next.WriteEra(report); err != nil {
		return err
	}
	fitness := report.Best.Fitness
	w.best = &fitness
	return nil
}

// DirectoryWriter 把分组名单和班级分析写入目录，文件先写入临时文件再重命名
type DirectoryWriter struct {
	dir        string
	labelCount int
}

func NewDirectoryWriter(dir string, labelCount int) (*DirectoryWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("无法创建报告目录: %w", err)
	}
	return &DirectoryWriter{dir: dir, labelCount: labelCount}, nil
}

func (d *DirectoryWriter) WriteEra(report scheduler.EraReport) error {
	return d.Write(FromAssignments(report.Assignments), FromOccupancy(report.Occupancy))
}

func (d *DirectoryWriter) Write(assignments []domain.UnitAssignment, buckets []domain.BucketAnalysis) error {
	if err := d.replace(AssignmentsFile, func(w io.Writer) error {
		return WriteAssignments(w, assignments)
	}); err != nil {
		return err
	}
	return d.replace(AnalysisFile, func(w io.Writer) error {
		return WriteCourseAnalysis(w, d.labelCount, buckets)
	})
}

func (d *DirectoryWriter) replace(name string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(d.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("写入 %s 失败: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(d.dir, name))
}

// ProgressLogger 每隔 interval 代把进度写入 w，可以被多个岛屿并发调用
func ProgressLogger(w io.Writer, interval int) scheduler.ProgressFunc {
	var mu sync.Mutex
	interval = max(1, interval)

	return func(p scheduler.Progress) {
		if p.Generation%interval != 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "Island = %d, %s\n", p.WorkerID, ProgressLine(p.Generation, p.Fitness))
	}
}
