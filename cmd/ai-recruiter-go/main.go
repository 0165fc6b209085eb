package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"ai-recruiter-go/internal/agent"
	"ai-recruiter-go/internal/api/handler"
	"ai-recruiter-go/internal/api/router"
	"ai-recruiter-go/internal/config"
	applogger "ai-recruiter-go/internal/logger"
	"ai-recruiter-go/internal/parser"
	"ai-recruiter-go/internal/processor"
	"ai-recruiter-go/internal/storage"
	"ai-recruiter-go/internal/tracing"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		applogger.Fatal().Err(err).Msg("加载配置失败")
	}

	applogger.Init(cfg.Logger)
	glog.SetLogger(hertzadapter.From(applogger.Logger))
	applogger.Info().Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.InitTracerProvider(ctx, cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			applogger.Fatal().Err(err).Msg("初始化链路追踪失败")
		}
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := shutdownTracing(shutdownCtx); err != nil {
				applogger.Error().Err(err).Msg("关闭链路追踪失败")
			}
		}()
	}

	// 存储层
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		applogger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	if storageManager.MySQL == nil {
		applogger.Fatal().Msg("MySQL不可用，无法提供服务")
	}
	applogger.Info().Msg("存储服务初始化成功")

	if storageManager.MinIO != nil {
		if err := storageManager.MinIO.SetupLifecycleRule(ctx, cfg.MinIO.ResumeTTLDays); err != nil {
			applogger.Warn().Err(err).Msg("设置简历过期策略失败")
		}
	}

	// LLM客户端：密钥池轮询
	keyPool, err := agent.NewKeyPool(cfg.AI.APIKeys)
	if err != nil {
		applogger.Fatal().Err(err).Msg("初始化密钥池失败")
	}
	llmClient, err := agent.NewRotatingChatClient(keyPool, cfg.AI.Model, cfg.AI.APIURL, config.GetDuration(cfg.AI.Timeout, 90*time.Second))
	if err != nil {
		applogger.Fatal().Err(err).Msg("初始化LLM客户端失败")
	}

	// PDF提取器
	pdfExtractor, err := parser.NewPDFExtractor(ctx)
	if err != nil {
		applogger.Fatal().Err(err).Msg("创建PDF提取器失败")
	}

	// 筛选流水线
	analyzer := processor.NewResumeAnalyzer(llmClient)

	var fileStore processor.ResumeFileStore
	if storageManager.MinIO != nil {
		fileStore = storageManager.MinIO
	}
	var dedupStore processor.DedupStore
	var adviceCache processor.AdviceCache
	if storageManager.Redis != nil {
		dedupStore = storageManager.Redis
		adviceCache = storageManager.Redis
	}

	orchestrator := processor.NewOrchestrator(
		pdfExtractor,
		analyzer,
		storageManager.MySQL,
		storageManager.MySQL,
		fileStore,
		dedupStore,
		cfg.Screening.ChunkSize,
		cfg.Screening.MaxBulkFiles,
	)

	// 通知链路：RabbitMQ可用时走队列异步外发，否则直接SMTP
	smtpNotifier := processor.NewSMTPNotifier(cfg.Mail)
	var notifier processor.Notifier = smtpNotifier
	var consumerStop chan<- struct{}
	if storageManager.RabbitMQ != nil {
		amqpNotifier, err := processor.NewAMQPNotifier(storageManager.RabbitMQ, cfg.RabbitMQ)
		if err != nil {
			applogger.Warn().Err(err).Msg("初始化队列通知器失败，退回SMTP直发")
		} else {
			notifier = amqpNotifier
			consumerStop, err = processor.StartEmailConsumer(storageManager.RabbitMQ, cfg.RabbitMQ, smtpNotifier)
			if err != nil {
				applogger.Fatal().Err(err).Msg("启动邮件消费者失败")
			}
		}
	}

	decisions := processor.NewDecisionEngine(storageManager.MySQL, storageManager.MySQL, notifier, cfg.Links)
	advisor := processor.NewAdvisor(llmClient, storageManager.MySQL, storageManager.MySQL, adviceCache, 24*time.Hour)

	screeningHandler := handler.NewScreeningHandler(cfg, storageManager, orchestrator, decisions, advisor)
	jobHandler := handler.NewJobHandler(storageManager)

	// HTTP服务
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, storageManager, screeningHandler, jobHandler)
	applogger.Info().Str("address", cfg.Server.Address).Msg("HTTP服务器启动")

	go func() {
		if err := h.Run(); err != nil {
			applogger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	applogger.Info().Msg("接收到终止信号，正在优雅退出")

	if consumerStop != nil {
		close(consumerStop)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		applogger.Error().Err(err).Msg("服务器关闭失败")
	}
	applogger.Info().Msg("优雅退出完成")
}
