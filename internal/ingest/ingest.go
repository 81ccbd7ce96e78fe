package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// 选课记录的列，与教务系统导出的表格一致
const (
	colLastName = iota
	colFirstName
	colMiddleName
	colStudentID
	colCourseNumber
	colCourseName
	colCourseID
	colRoom
	colPeriod
	enrollmentColumns
)

// ErrEmptyFile 表示文件中除了表头之外没有任何记录
var ErrEmptyFile = errors.New("文件中没有任何记录")

// RecordError 记录出错的行号（文件中的实际行号，从 1 开始）
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("第 %d 行: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func newReader(r io.Reader, fields int) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true
	return reader
}

// readRows 跳过表头，逐行调用 fn
func readRows(reader *csv.Reader, fn func(row []string) error) error {
	// 读取表头
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return ErrEmptyFile
		}
		return err
	}

	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		line, _ := reader.FieldPos(0)

		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if isBlank(row) {
			continue
		}
		if err := fn(row); err != nil {
			return &RecordError{Line: line, Err: err}
		}
	}
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadEnrollments 读取选课记录，每行为
// LAST,FIRST,MIDDLE,STUDENT_ID,COURSE_NUMBER,COURSE_NAME,COURSE_ID,ROOM_NUMBER,PERIOD
func ReadEnrollments(r io.Reader) ([]domain.Enrollment, error) {
	enrollments := make([]domain.Enrollment, 0)

	err := readRows(newReader(r, enrollmentColumns), func(row []string) error {
		e := domain.Enrollment{
			UnitID:       row[colStudentID],
			LastName:     row[colLastName],
			FirstName:    row[colFirstName],
			MiddleName:   row[colMiddleName],
			CourseNumber: row[colCourseNumber],
			CourseName:   row[colCourseName],
			CourseID:     row[colCourseID],
			Room:         row[colRoom],
			Period:       row[colPeriod],
		}
		switch {
		case e.UnitID == "":
			return errors.New("学号不能为空")
		case e.Room == "":
			return errors.New("教室不能为空")
		case e.Period == "":
			return errors.New("节次不能为空")
		}
		enrollments = append(enrollments, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return nil, ErrEmptyFile
	}

	return enrollments, nil
}

// ReadPairings 读取必须同组的学生，每行为 id1,id2
func ReadPairings(r io.Reader) ([]domain.Pairing, error) {
	pairings := make([]domain.Pairing, 0)

	err := readRows(newReader(r, 2), func(row []string) error {
		if row[0] == "" || row[1] == "" {
			return errors.New("学号不能为空")
		}
		pairings = append(pairings, domain.Pairing{UnitID1: row[0], UnitID2: row[1]})
		return nil
	})
	if err != nil && !errors.Is(err, ErrEmptyFile) {
		return nil, err
	}

	return pairings, nil
}

// ReadPreferredGroups 读取希望同组的学生，每行为一个分组，列数不固定
func ReadPreferredGroups(r io.Reader) ([]domain.PreferredGroup, error) {
	groups := make([]domain.PreferredGroup, 0)

	err := readRows(newReader(r, -1), func(row []string) error {
		ids := make([]string, 0, len(row))
		for _, id := range row {
			if id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) < 2 {
			return errors.New("每个分组至少需要 2 个学生")
		}
		groups = append(groups, domain.PreferredGroup{UnitIDs: ids})
		return nil
	})
	if err != nil && !errors.Is(err, ErrEmptyFile) {
		return nil, err
	}

	return groups, nil
}

// Files 是一份名单所需的文件路径，除选课记录外都可以为空
type Files struct {
	Enrollments     string
	Pairings        string
	PreferredGroups string
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	if path == "" {
		return []T{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := read(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

func Load(files Files) (*domain.RosterRecords, error) {
	if files.Enrollments == "" {
		return nil, errors.New("未指定选课记录文件")
	}

	enrollments, err := readFile(files.Enrollments, ReadEnrollments)
	if err != nil {
		return nil, err
	}
	pairings, err := readFile(files.Pairings, ReadPairings)
	if err != nil {
		return nil, err
	}
	groups, err := readFile(files.PreferredGroups, ReadPreferredGroups)
	if err != nil {
		return nil, err
	}

	return &domain.RosterRecords{
		Enrollments:     enrollments,
		Pairings:        pairings,
		PreferredGroups: groups,
		Buckets:         []domain.BucketDeclaration{},
	}, nil
}
