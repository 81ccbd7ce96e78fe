package seed

import (
	"fmt"
	"log/slog"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/ingest"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/roster"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/utils"
)

// Store 由 repository.Repository 实现
type Store interface {
	GetUserByUsername(username string) (*domain.User, error)
	CreateRoster(roster *domain.Roster, records *domain.RosterRecords) error
}

// SeedRoster 以 creator 的名义插入一份名单
func SeedRoster(s Store, name, description, creator string, records *domain.RosterRecords) (*domain.Roster, error) {
	if err := utils.ValidateRosterRecords(records); err != nil {
		return nil, err
	}

	user, err := s.GetUserByUsername(creator)
	if err != nil {
		return nil, fmt.Errorf("无法获取用户 %s: %w", creator, err)
	}

	// 分组数量不影响学生和班级的统计
	model, err := roster.Build(roster.DefaultRules(2), roster.Input{
		Enrollments:     records.Enrollments,
		Pairings:        records.Pairings,
		PreferredGroups: records.PreferredGroups,
		Buckets:         records.Buckets,
	})
	if err != nil {
		return nil, err
	}

	rst := &domain.Roster{
		Name:        name,
		Description: description,
		UnitCount:   int32(model.UnitCount()),
		BucketCount: int32(model.BucketCount()),
		CreatedBy:   user.ID,
	}
	if err := s.CreateRoster(rst, records); err != nil {
		return nil, err
	}

	slog.Info("插入名单成功", slog.Int64("id", rst.ID), slog.String("name", name),
		slog.Int("units", model.UnitCount()), slog.Int("buckets", model.BucketCount()))
	return rst, nil
}

// SeedRosterFromCSV 读取学校导出的 CSV 文件并插入名单
func SeedRosterFromCSV(s Store, name, creator string, files ingest.Files) (*domain.Roster, error) {
	records, err := ingest.Load(files)
	if err != nil {
		return nil, err
	}
	return SeedRoster(s, name, "由 "+files.Enrollments+" 导入", creator, records)
}

func SeedRandomRoster(s Store, name, creator string, opts utils.RandomRosterOptions) (*domain.Roster, error) {
	records := utils.GenerateRandomRosterRecords(opts)
	description := fmt.Sprintf("随机生成：%d 名学生，%d 间教室，%d 个节次", opts.Students, opts.Rooms, opts.Periods)
	return SeedRoster(s, name, description, creator, records)
}
