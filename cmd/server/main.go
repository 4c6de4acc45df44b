package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"spaxio-scheduled/config"
	"spaxio-scheduled/internal/api/handler"
	"spaxio-scheduled/internal/api/middleware"
	"spaxio-scheduled/internal/api/router"
	"spaxio-scheduled/internal/job"
	"spaxio-scheduled/internal/oracle"
	"spaxio-scheduled/internal/repository"
	"spaxio-scheduled/internal/service"
	"spaxio-scheduled/pkg/database"
	"spaxio-scheduled/pkg/jwt"
	applogger "spaxio-scheduled/pkg/logger"
	"spaxio-scheduled/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("SPAXIO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不限额也不限流）
	//    接口变量保持无类型 nil，避免 (*redis.Client)(nil) 被当作可用实现
	var (
		counter service.QuotaCounter
		limiter middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，解析额度与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		counter, limiter = rdb, rdb
	}

	// 5. 初始化 JWT 校验器与大纲解析模型客户端
	jwtMgr := jwt.NewManager(&cfg.Auth)
	oracleClient := oracle.NewHTTPClient(&cfg.Extraction, logger)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, oracleClient, counter, logger)
	h := handler.NewHandler(svc)

	// 6.1 课次刷新任务
	refresher := job.NewSessionRefresher(repo, svc.Session, logger)
	if err := refresher.Start(cfg.Feature.SessionRefreshCron); err != nil {
		logger.Fatal("课次刷新任务启动失败", zap.Error(err))
	}

	// 7. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, limiter, logger)
	if err != nil {
		logger.Fatal("路由初始化失败", zap.Error(err))
	}

	// 8. 启动 HTTP 服务器（优雅关闭）
	//    写超时需覆盖一次模型调用
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Extraction.OracleTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	refresher.Stop()

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
