package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/ingest"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/report"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/utils"
)

func main() {
	var files ingest.Files
	var outDir string

	flag.StringVar(&files.Enrollments, "enrollments", "", "选课记录 CSV 文件")
	flag.StringVar(&files.Pairings, "pairings", "", "必须分到同一组的学生 CSV 文件（可选）")
	flag.StringVar(&files.PreferredGroups, "preferred", "", "希望分到同一组的学生 CSV 文件（可选）")
	flag.StringVar(&outDir, "out", "", "报告输出目录，默认使用 OPTIMIZER_REPORT_DIR")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 只读取 OPTIMIZER_ 开头的配置，本地运行不需要数据库等服务
	cfg, err := config.LoadOptimizerConfig()
	if err != nil {
		logger.Error("无法读取配置", "error", err)
		os.Exit(1)
	}
	if outDir == "" {
		outDir = cfg.ReportDir
	}

	params := optimizer.DefaultParameters(cfg)
	if err := utils.ValidateRunParameters(&params); err != nil {
		logger.Error("参数错误", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 读取名单
	 **********************************************/
	records, err := ingest.Load(files)
	if err != nil {
		logger.Error("无法读取名单", "error", err)
		os.Exit(1)
	}
	if err := utils.ValidateRosterRecords(records); err != nil {
		logger.Error("名单记录不合法", "error", err)
		os.Exit(1)
	}

	model, err := optimizer.BuildModel(records, &params)
	if err != nil {
		logger.Error("无法构建模型", "error", err)
		os.Exit(1)
	}
	logger.Info("名单读取完成",
		slog.Int("units", model.UnitCount()),
		slog.Int("cohorts", model.CohortCount()),
		slog.Int("buckets", model.BucketCount()),
	)

	/**********************************************
	 * 准备报告
	 **********************************************/
	writer, err := report.NewDirectoryWriter(outDir, model.LabelCount())
	if err != nil {
		logger.Error("无法创建报告目录", "error", err)
		os.Exit(1)
	}

	progressFile, err := os.Create(filepath.Join(outDir, report.ProgressFile))
	if err != nil {
		logger.Error("无法创建进度文件", "error", err)
		os.Exit(1)
	}
	defer progressFile.Close()

	s, err := scheduler.New(optimizer.SchedulerParameters(&params), model, scheduler.Options{
		Progress: report.ProgressLogger(io.MultiWriter(os.Stdout, progressFile), cfg.ProgressInterval),
		Writer:   report.Improving(writer),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("无法创建调度器", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 运行，按 CTRL+C 会在本轮结束后停止
	 **********************************************/
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := s.Schedule(ctx)
	if err != nil && !(errors.Is(err, context.Canceled) && result != nil) {
		logger.Error("优化失败", "error", err)
		os.Exit(1)
	}

	if err := writer.Write(report.FromAssignments(result.Assignments), report.FromOccupancy(result.Occupancy)); err != nil {
		logger.Error("无法写入报告", "error", err)
		os.Exit(1)
	}

	logger.Info("优化结束",
		slog.String("reason", string(result.StopReason)),
		slog.Int("eras", result.ErasCompleted),
		slog.Int("island", result.BestWorker),
		slog.String("progress", report.ProgressLine(result.ErasCompleted*int(params.GenerationsPerEra), result.Best.Fitness)),
		slog.Duration("elapsed", result.Elapsed),
		slog.String("dir", outDir),
	)
}
