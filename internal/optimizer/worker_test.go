package optimizer

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/metrics"
)

type memoryStore struct {
	mu      sync.Mutex
	runs    map[int64]*domain.OptimizationRun
	updates []domain.RunStatus
	records *domain.RosterRecords
	results []*domain.RunResult
}

func (s *memoryStore) GetRunByID(id int64) (*domain.OptimizationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, exists := s.runs[id]
	if !exists {
		return nil, sql.ErrNoRows
	}
	copied := *run
	return &copied, nil
}

func (s *memoryStore) UpdateRun(run *domain.OptimizationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	s.updates = append(s.updates, run.Status)
	return nil
}

func (s *memoryStore) GetRosterByID(id int64) (*domain.Roster, error) {
	return &domain.Roster{ID: id, Name: "高一上学期"}, nil
}

func (s *memoryStore) GetRosterRecords(id int64) (*domain.RosterRecords, error) {
	if s.records == nil {
		return nil, sql.ErrNoRows
	}
	return s.records, nil
}

func (s *memoryStore) SaveRunResult(result *domain.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *memoryStore) GetUserByID(id int64) (*domain.User, error) {
	return &domain.User{ID: id, FullName: "张三", Email: "zhangsan@example.com"}, nil
}

type memoryProgress struct {
	mu    sync.Mutex
	saved []*domain.RunProgress
}

func (p *memoryProgress) Save(ctx context.Context, progress *domain.RunProgress) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, progress)
	return nil
}

type memoryMail struct {
	messages []domain.MailMessage
}

func (m *memoryMail) PublishMail(ctx context.Context, message domain.MailMessage) error {
	m.messages = append(m.messages, message)
	return nil
}

func testRecords() *domain.RosterRecords {
	records := &domain.RosterRecords{}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("S%02d", i)
		records.Enrollments = append(records.Enrollments,
			domain.Enrollment{UnitID: id, LastName: "L" + id, Room: "101", Period: "1", CourseNumber: "MATH"},
			domain.Enrollment{UnitID: id, LastName: "L" + id, Room: "102", Period: "2", CourseNumber: "ENG"},
		)
	}
	records.Pairings = []domain.Pairing{{UnitID1: "S00", UnitID2: "S01"}}
	return records
}

func testRun(status domain.RunStatus) *domain.OptimizationRun {
	return &domain.OptimizationRun{
		ID:          1,
		RosterID:    3,
		Status:      status,
		RequestedBy: 5,
		Parameters: domain.RunParameters{
			LabelCount:           2,
			HalfMax:              15,
			QuarterMax:           9,
			PairwiseMultiplier:   0.5,
			IndividualMultiplier: 0.25,
			PopulationSize:       10,
			MutationRate:         0.01,
			Islands:              2,
			Eras:                 3,
			GenerationsPerEra:    2,
			Seed:                 7,
		},
	}
}

func TestWorkerHandleFinishesRun(t *testing.T) {
	store := &memoryStore{
		runs:    map[int64]*domain.OptimizationRun{1: testRun(domain.RunStatusQueued)},
		records: testRecords(),
	}
	progress := &memoryProgress{}
	mail := &memoryMail{}
	collector := metrics.New(prometheus.NewRegistry())

	wk := NewWorker(store, progress, mail, collector, 1, nil)
	require.NoError(t, wk.Handle(context.Background(), domain.OptimizationJob{RunID: 1}))

	run := store.runs[1]
	require.Equal(t, domain.RunStatusFinished, run.Status)
	require.Equal(t, []domain.RunStatus{domain.RunStatusRunning, domain.RunStatusFinished}, store.updates)
	require.EqualValues(t, 3, run.ErasCompleted)
	require.NotNil(t, run.Best)
	require.EqualValues(t, 2, run.Best.TotalBuckets)
	require.NotNil(t, run.FinishedAt)

	// 每个岛屿每轮 2 代，共 3 轮
	require.Len(t, progress.saved, 2*2*3)

	require.NotEmpty(t, store.results)
	last := store.results[len(store.results)-1]
	require.Len(t, last.Assignments, 12)
	require.Len(t, last.Buckets, 2)
	require.Equal(t, run.Best.WeightedScore, last.Fitness.WeightedScore)

	require.Len(t, mail.messages, 1)
	require.Equal(t, domain.MailTypeRunFinished, mail.messages[0].Type)
	require.Equal(t, "zhangsan@example.com", mail.messages[0].To)
	data := mail.messages[0].Data.(domain.RunFinishedMailData)
	require.Equal(t, "高一上学期", data.RosterName)
	require.Equal(t, domain.RunStatusFinished, data.Status)
}

func TestWorkerHandleIgnoresRedeliveredJob(t *testing.T) {
	store := &memoryStore{
		runs:    map[int64]*domain.OptimizationRun{1: testRun(domain.RunStatusFinished)},
		records: testRecords(),
	}

	wk := NewWorker(store, nil, nil, nil, 1, nil)
	require.NoError(t, wk.Handle(context.Background(), domain.OptimizationJob{RunID: 1}))
	require.Empty(t, store.updates)
}

func TestWorkerHandleMarksRunFailed(t *testing.T) {
	store := &memoryStore{
		runs: map[int64]*domain.OptimizationRun{1: testRun(domain.RunStatusQueued)},
	}
	mail := &memoryMail{}

	wk := NewWorker(store, nil, mail, nil, 1, nil)
	require.NoError(t, wk.Handle(context.Background(), domain.OptimizationJob{RunID: 1}))

	run := store.runs[1]
	require.Equal(t, domain.RunStatusFailed, run.Status)
	require.Contains(t, run.ErrorMessage, "无法获取名单记录")
	require.Nil(t, run.Best)
	require.Len(t, mail.messages, 1)
}

func TestWorkerHandleRejectsInvalidLabelCount(t *testing.T) {
	run := testRun(domain.RunStatusQueued)
	run.Parameters.LabelCount = 3
	store := &memoryStore{
		runs:    map[int64]*domain.OptimizationRun{1: run},
		records: testRecords(),
	}

	wk := NewWorker(store, nil, nil, nil, 1, nil)
	require.NoError(t, wk.Handle(context.Background(), domain.OptimizationJob{RunID: 1}))
	require.Equal(t, domain.RunStatusFailed, store.runs[1].Status)
}

func TestWorkerHandleUnknownRun(t *testing.T) {
	store := &memoryStore{runs: map[int64]*domain.OptimizationRun{}}

	wk := NewWorker(store, nil, nil, nil, 1, nil)
	require.ErrorIs(t, wk.Handle(context.Background(), domain.OptimizationJob{RunID: 9}), sql.ErrNoRows)
}
