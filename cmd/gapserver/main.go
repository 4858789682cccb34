package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-gap-go/internal/api/handler"
	"resume-gap-go/internal/api/router"
	"resume-gap-go/internal/config"
	"resume-gap-go/internal/llm"
	"resume-gap-go/internal/logger"
	"resume-gap-go/internal/outbox"
	"resume-gap-go/internal/parser"
	"resume-gap-go/internal/service"
	"resume-gap-go/internal/storage"
	"resume-gap-go/internal/tracing"
	"resume-gap-go/internal/worker"
)

var (
	version     = "1.0.0"      //nolint:gochecknoglobals
	serviceName = "gap-server" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	var noWorker bool
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.BoolVar(&noWorker, "no-worker", false, "Do not consume the analysis request queue")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	initLogger(cfg)
	logger.Info().Str("service", serviceName).Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化追踪失败")
	}

	st, err := storage.NewStorage(cfg)
	if err != nil {
		// 外部依赖全部不可用时仍以单机模式提供同步分析
		logger.Warn().Err(err).Msg("存储组件不可用，以单机模式运行")
		st = &storage.Storage{}
	}
	defer st.Close()

	retrievalSvc, err := newRetrievalService(ctx, cfg, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化检索服务失败")
	}

	extractionSvc := newExtractionService(ctx, cfg)
	analysisSvc := newAnalysisService(cfg, st, retrievalSvc, extractionSvc)

	var background []<-chan struct{}

	if st.MySQL != nil && st.RabbitMQ != nil {
		if err := st.RabbitMQ.SetupAnalysisTopology(); err != nil {
			logger.Fatal().Err(err).Msg("声明RabbitMQ拓扑失败")
		}

		relay := outbox.NewMessageRelay(st.MySQL.DB(), st.RabbitMQ,
			outbox.WithPollingInterval(config.GetDuration(cfg.RabbitMQ.OutboxPollingInterval, 5*time.Second)),
			outbox.WithBatchSize(cfg.RabbitMQ.OutboxBatchSize))
		relayDone := make(chan struct{})
		go func() {
			defer close(relayDone)
			relay.Run(ctx)
		}()
		background = append(background, relayDone)

		if !noWorker {
			w := worker.NewAnalysisWorker(st.RabbitMQ, analysisSvc, cfg.RabbitMQ)
			workerDone, err := w.Start(ctx)
			if err != nil {
				logger.Fatal().Err(err).Msg("启动分析消费者失败")
			}
			background = append(background, workerDone)
		}
	} else {
		logger.Warn().Msg("MySQL 或 RabbitMQ 不可用，异步分析已禁用")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h.Engine, router.Handlers{
		Health:  handler.NewHealthHandler(retrievalSvc, analysisSvc),
		Gap:     handler.NewGapHandler(analysisSvc, retrievalSvc),
		Extract: handler.NewExtractHandler(extractionSvc),
	}, cfg.Server.APIKeys)
	if len(cfg.Server.APIKeys) == 0 {
		logger.Warn().Msg("未配置 API Key，/api/v1 不做鉴权")
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownTimeout := config.GetDuration(cfg.Server.ShutdownTimeout, 10*time.Second)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP服务器关闭失败")
	}

	// 停止中继与消费者
	cancel()
	for _, done := range background {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			logger.Warn().Msg("等待后台任务退出超时")
		}
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("关闭追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}

func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	// Hertz 的 hlog 也写到同一个 zerolog 实例
	hlog.SetLogger(hertzzerolog.From(logger.Logger))
	if cfg.Logger.Level == "debug" {
		hlog.SetLevel(hlog.LevelDebug)
	} else {
		hlog.SetLevel(hlog.LevelInfo)
	}
}

func newRetrievalService(ctx context.Context, cfg *config.Config, st *storage.Storage) (*service.RetrievalService, error) {
	var repo service.CorpusRepository
	if st.MySQL != nil {
		repo = st.MySQL
	}
	var snapshots service.CorpusSnapshotStore
	if st.MinIO != nil {
		snapshots = st.MinIO
	}
	loader, err := service.NewCorpusLoader(cfg.Corpus, repo, snapshots)
	if err != nil {
		return nil, err
	}

	opts := service.RetrievalOptionsFromConfig(cfg.Engine)
	if st.Redis != nil {
		opts = append(opts, service.WithReloadLocker(st.Redis))
	}
	svc := service.NewRetrievalService(loader, opts...)

	// 语料加载失败不阻止启动，检索接口返回 503 直到重载成功
	if _, err := svc.Reload(ctx); err != nil {
		logger.Warn().Err(err).Str("source", loader.Source()).Msg("初始加载参考语料失败")
	}
	return svc, nil
}

func newExtractionService(ctx context.Context, cfg *config.Config) *service.ExtractionService {
	var pdf parser.TextExtractor
	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("创建PDF提取器失败，仅支持纯文本简历")
	} else {
		pdf = pdfExtractor
	}

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		logger.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("初始化大模型失败，抽取接口不可用")
		return service.NewExtractionService(nil, parser.NewRouter(pdf))
	}
	logger.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("大模型已就绪")
	return service.NewExtractionService(completer, parser.NewRouter(pdf))
}

func newAnalysisService(cfg *config.Config, st *storage.Storage, retrievalSvc *service.RetrievalService, extractionSvc *service.ExtractionService) *service.AnalysisService {
	opts := []service.AnalysisOption{
		service.WithRetrieval(retrievalSvc),
		service.WithEventRouting(service.EventRoutingFromConfig(cfg.RabbitMQ)),
	}
	if ks := extractionSvc.KeywordSource(); ks != nil {
		opts = append(opts, service.WithKeywordSource(ks))
	}
	if st.Redis != nil {
		opts = append(opts, service.WithCache(st.Redis), service.WithLocker(st.Redis))
	}
	if st.MySQL != nil && st.RabbitMQ != nil {
		opts = append(opts, service.WithRepository(st.MySQL))
	}
	return service.NewAnalysisService(service.AnalyzerFromConfig(cfg.Engine), opts...)
}
