package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
)

const (
	AssignmentsFile = "student_assignments.csv"
	AnalysisFile    = "course_analysis.csv"
	ProgressFile    = "progress_log.txt"
)

// FromAssignments 把模型中的分组转换为可以持久化的形式
func FromAssignments(assignments []roster.Assignment) []domain.UnitAssignment {
	out := make([]domain.UnitAssignment, len(assignments))
	for i, a := range assignments {
		out[i] = domain.UnitAssignment{
			UnitID:     a.UnitID,
			LastName:   a.LastName,
			FirstName:  a.FirstName,
			MiddleName: a.MiddleName,
			Label:      a.Label.String(),
		}
	}
	return out
}

func FromOccupancy(occupancy []roster.BucketOccupancy) []domain.BucketAnalysis {
	out := make([]domain.BucketAnalysis, len(occupancy))
	for i, o := range occupancy {
		counts := make([]int32, len(o.Counts))
		for j, c := range o.Counts {
			counts[j] = int32(c)
		}
		out[i] = domain.BucketAnalysis{
			Room:          o.Key.Room,
			Period:        o.Key.Period,
			CourseNumbers: o.CourseNumbers,
			Total:         int32(o.Total),
			Counts:        counts,
			Ratios:        o.Ratios,
			MaxDeviation:  o.MaxDeviation,
			Compliant:     o.Compliant,
		}
	}
	return out
}

func FromFitness(f roster.FitnessResult) domain.FitnessSummary {
	return domain.FitnessSummary{
		WeightedScore:    f.WeightedScore,
		PenaltyCount:     int32(f.PenaltyCount),
		CompliantBuckets: int32(f.CompliantBuckets),
		OtherCount:       int32(f.OtherCount),
		TotalBuckets:     int32(f.TotalBuckets),
	}
}

// WriteAssignments 输出每个学生的分组，表头为 id,last name,first name,middle name,letter
func WriteAssignments(w io.Writer, assignments []domain.UnitAssignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "last name", "first name", "middle name", "letter"}); err != nil {
		return err
	}
	for _, a := range assignments {
		if err := cw.Write([]string{a.UnitID, a.LastName, a.FirstName, a.MiddleName, a.Label}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

/**
 * 输出每个班级的分组情况，表头为
 * room,period,section list,total students,A count,...,A ratio,...,max deviation,in compliance?
 * 例如 201,6,[E10101],32,10,6,8,8,0.3125,0.1875,0.25,0.25,0.0625,No
 */
func WriteCourseAnalysis(w io.Writer, labelCount int, buckets []domain.BucketAnalysis) error {
	header := []string{"room", "period", "section list", "total students"}
	for l := 0; l < labelCount; l++ {
		header = append(header, roster.Label(l).String()+" count")
	}
	for l := 0; l < labelCount; l++ {
		header = append(header, roster.Label(l).String()+" ratio")
	}
	header = append(header, "max deviation", "in compliance?")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, b := range buckets {
		if len(b.Counts) != labelCount || len(b.Ratios) != labelCount {
			return fmt.Errorf("班级 %s/%s 的分组数量与 %d 不一致", b.Room, b.Period, labelCount)
		}

		row := make([]string, 0, len(header))
		row = append(row, b.Room, b.Period, "["+strings.Join(b.CourseNumbers, ", ")+"]", strconv.Itoa(int(b.Total)))
		for _, c := range b.Counts {
			row = append(row, strconv.Itoa(int(c)))
		}
		for _, r := range b.Ratios {
			row = append(row, formatFloat(r))
		}
		row = append(row, formatFloat(b.MaxDeviation), yesNo(b.Compliant))

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// ProgressLine 的格式为 Generation = g, Fitness = f, In Compliance = c out of n
func ProgressLine(generation int, fitness roster.FitnessResult) string {
	return fmt.Sprintf("Generation = %d, Fitness = %s, In Compliance = %d out of %d",
		generation, formatFloat(fitness.WeightedScore), fitness.CompliantBuckets, fitness.TotalBuckets)
}
