package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/ingest"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/repository"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/seed"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var name string
	var files ingest.Files
	var opts utils.RandomRosterOptions

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机名单, 3: 从 CSV 导入名单)")
	flag.IntVar(&n, "n", 5, "要插入的用户数量")
	flag.StringVar(&name, "name", "", "名单名称")
	flag.IntVar(&opts.Students, "students", 300, "随机名单的学生数量")
	flag.IntVar(&opts.Rooms, "rooms", 12, "随机名单的教室数量")
	flag.IntVar(&opts.Periods, "periods", 6, "随机名单的节次数量")
	flag.IntVar(&opts.CoursesPerStudent, "courses", 5, "随机名单中每个学生的选课数量")
	flag.Float64Var(&opts.SiblingRate, "sibling-rate", 0.05, "随机名单中学生有兄弟姐妹的概率")
	flag.StringVar(&files.Enrollments, "enrollments", "", "选课记录 CSV 文件")
	flag.StringVar(&files.Pairings, "pairings", "", "必须同组的学生 CSV 文件")
	flag.StringVar(&files.PreferredGroups, "preferred", "", "希望同组的学生 CSV 文件")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机用户", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateUser(user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入用户成功", slog.Int("count", n-cnt))
		}
	case 2:
		if opts.Students <= 0 || opts.Rooms <= 0 || opts.Periods <= 0 || opts.CoursesPerStudent <= 0 {
			slog.Error("请输入合法的名单规模")
			return
		}
		if name == "" {
			name = "随机名单-" + utils.GenerateRandomID(0, 6)
		}
		if _, err := seed.SeedRandomRoster(repo, name, cfg.InitialAdmin.Username, opts); err != nil {
			slog.Error("无法插入随机名单", slog.String("error", err.Error()))
		}
	case 3:
		if name == "" {
			slog.Error("请指定名单名称")
			return
		}
		if _, err := seed.SeedRosterFromCSV(repo, name, cfg.InitialAdmin.Username, files); err != nil {
			slog.Error("无法导入名单", slog.String("error", err.Error()))
		}
	default:
		slog.Error("指定的操作非法")
	}
}
