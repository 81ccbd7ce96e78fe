package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/cache"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/optimizer"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/queue"
	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
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

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 消费和发布使用不同的通道
	consumeCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer consumeCh.Close()

	publishCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer publishCh.Close()

	if err := queue.DeclareQueues(consumeCh); err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}
	publisher := queue.NewPublisher(publishCh, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("无法连接到 redis", "error", err)
		return
	}
	progress := cache.NewProgressCache(rdb, time.Duration(cfg.Redis.ProgressExpiration)*time.Second)

	/**********************************************
	 * 启动指标服务器
	 **********************************************/
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Optimizer.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("正在启动指标服务器...", "port", cfg.Optimizer.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("无法启动指标服务器", "error", err)
		}
	}()

	/**********************************************
	 * 消费优化任务
	 **********************************************/
	msgs, err := queue.Consume(consumeCh, queue.JobQueue, "")
	if err != nil {
		logger.Error("无法消费消息", "error", err)
		return
	}

	worker := optimizer.NewWorker(repo, progress, publisher, collector, cfg.Optimizer.ProgressInterval, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// 取消 runCtx 会让正在运行的任务在本轮结束后停止
	runCtx, stop := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Error("任务队列已关闭")
					return
				}

				job, err := queue.Decode[domain.OptimizationJob](msg.Body)
				if err != nil {
					logger.Error("任务反序列化失败", "error", err)
					_ = msg.Nack(false, false)
					continue
				}

				logger.Info("收到优化任务", slog.Int64("run", job.RunID), slog.String("messageID", msg.MessageId))
				if err := worker.Handle(runCtx, job); err != nil {
					logger.Error("无法处理优化任务", slog.Int64("run", job.RunID), "error", err)
				}

				// 任务失败时状态已经写入数据库，不再重新入队
				_ = msg.Ack(false)
			}
		}
	}()

	logger.Info("等待优化任务...（按 CTRL+C 退出）")
	<-quit

	logger.Info("正在关闭 optimizer worker...")
	stop()
	wg.Wait()

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.Error("关闭指标服务器失败", "error", err)
	}
	logger.Info("optimizer worker 已成功关闭")
}
