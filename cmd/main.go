package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/smartqms/ai-analysis-api/api"
	"github.com/smartqms/ai-analysis-api/api/handler"
	"github.com/smartqms/ai-analysis-api/api/middleware"
	appconfig "github.com/smartqms/ai-analysis-api/config"
	"github.com/smartqms/ai-analysis-api/internal/analysis"
	"github.com/smartqms/ai-analysis-api/internal/cache"
	"github.com/smartqms/ai-analysis-api/internal/database"
	"github.com/smartqms/ai-analysis-api/internal/llm"
	"github.com/smartqms/ai-analysis-api/internal/ocr"
	"github.com/smartqms/ai-analysis-api/internal/repository"
	"github.com/smartqms/ai-analysis-api/internal/services"
	"github.com/smartqms/ai-analysis-api/internal/transcribe"
	"github.com/smartqms/ai-analysis-api/pkg/storage"
	"github.com/smartqms/ai-analysis-api/pkg/taskqueue"
)

func main() {
	// 加载.env文件（如果存在）
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment variables from .env")
	}

	configFile := flag.String("config", "", "Path to config file")
	mode := flag.String("mode", "release", "Run mode (debug/release)")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg, err := appconfig.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	gin.SetMode(*mode)

	logger := setupLogger(cfg.Logging)
	logger.Info("Starting AI analysis service...")

	// 初始化数据库
	if err := database.Setup(&database.Config{
		Type: cfg.Database.Type,
		DSN:  cfg.Database.DSN,
	}, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// 创建文件存储服务
	fileStorage, err := setupStorage(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 创建缓存服务
	var cacheService cache.Cache
	if cfg.Cache.Enable {
		cacheService, err = cache.NewCache(cache.Config{
			Type:          cfg.Cache.Type,
			RedisAddr:     cfg.Cache.Address,
			RedisPassword: cfg.Cache.Password,
			RedisDB:       cfg.Cache.DB,
			DefaultTTL:    time.Duration(cfg.Cache.TTL) * time.Second,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize cache: %v", err)
		}
	}

	// 创建语音转写客户端
	transcriber, err := transcribe.NewWhisperClient(
		transcribe.WithAPIKey(cfg.OpenAI.APIKey),
		transcribe.WithBaseURL(cfg.OpenAI.WhisperEndpoint),
		transcribe.WithModel(cfg.OpenAI.WhisperModel),
		transcribe.WithTimeout(time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second),
		transcribe.WithMaxRetries(cfg.OpenAI.MaxRetries),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize whisper client: %v", err)
	}

	// 创建大模型客户端：分析类和生成类任务使用不同模型
	analysisClient, err := llm.NewOpenAIClient(
		llm.WithAPIKey(cfg.OpenAI.APIKey),
		llm.WithBaseURL(cfg.OpenAI.ChatEndpoint),
		llm.WithModel(cfg.OpenAI.AnalysisModel),
		llm.WithTimeout(time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second),
		llm.WithMaxRetries(cfg.OpenAI.MaxRetries),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize analysis LLM client: %v", err)
	}

	generationClient, err := llm.NewOpenAIClient(
		llm.WithAPIKey(cfg.OpenAI.APIKey),
		llm.WithBaseURL(cfg.OpenAI.ChatEndpoint),
		llm.WithModel(cfg.OpenAI.GenerationModel),
		llm.WithTimeout(time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second),
		llm.WithMaxRetries(cfg.OpenAI.MaxRetries),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize generation LLM client: %v", err)
	}

	analyzer, err := analysis.NewAnalyzer(analysisClient,
		analysis.WithGenerationClient(generationClient),
		analysis.WithAnalyzerLogger(logger),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize analyzer: %v", err)
	}

	// 创建Document AI OCR客户端和分块提取器
	extractor, err := setupExtractor(cfg.DocumentAI)
	if err != nil {
		logger.Fatalf("Failed to initialize Document AI client: %v", err)
	}

	chunker, err := ocr.NewChunker(extractor, ocr.ChunkLimits{
		MaxSizeBytes: cfg.OCR.MaxSizeBytes,
		MaxPages:     cfg.OCR.MaxPages,
	}, ocr.WithChunkerLogger(logger))
	if err != nil {
		logger.Fatalf("Failed to initialize document chunker: %v", err)
	}

	// 创建媒体处理服务
	mediaOpts := []services.MediaOption{services.WithMediaLogger(logger)}
	if cacheService != nil {
		mediaOpts = append(mediaOpts,
			services.WithMediaCache(cacheService, time.Duration(cfg.Cache.TTL)*time.Second))
	}
	media, err := services.NewMediaService(transcriber, chunker, mediaOpts...)
	if err != nil {
		logger.Fatalf("Failed to initialize media service: %v", err)
	}

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, err = taskqueue.NewQueue(cfg.Queue.Type, &taskqueue.Config{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			RetryLimit:    cfg.Queue.RetryLimit,
			RetryDelay:    time.Duration(cfg.Queue.RetryDelay) * time.Second,
			Queues:        taskqueue.DefaultConfig().Queues,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 初始化业务服务
	repo := repository.NewRecordRepository()

	incidentService, err := services.NewIncidentService(media, analyzer, repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize incident service: %v", err)
	}
	investigationService, err := services.NewInvestigationService(media, analyzer, repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize investigation service: %v", err)
	}
	reviewService, err := services.NewReviewService(media, analyzer, repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize review service: %v", err)
	}

	attachmentOpts := []services.AttachmentOption{}
	if queue != nil {
		attachmentOpts = append(attachmentOpts, services.WithAttachmentQueue(queue))
	}
	attachmentService, err := services.NewAttachmentService(media, analyzer, repo, logger, attachmentOpts...)
	if err != nil {
		logger.Fatalf("Failed to initialize attachment service: %v", err)
	}

	emailService, err := services.NewEmailService(media, analyzer, repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize email service: %v", err)
	}
	todoService, err := services.NewTodoService(media, analyzer, repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize todo service: %v", err)
	}
	qtaService, err := services.NewQTAService(media, analyzer, repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize QTA service: %v", err)
	}
	historyService, err := services.NewHistoryService(repo, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize history service: %v", err)
	}

	// 启动队列工作器（如果启用了队列）
	if queue != nil {
		if redisQueue, ok := queue.(*taskqueue.RedisQueue); ok {
			worker := taskqueue.NewRedisWorker(redisQueue, &taskqueue.Config{
				Concurrency: cfg.Queue.Concurrency,
				RetryDelay:  time.Duration(cfg.Queue.RetryDelay) * time.Second,
				Queues:      taskqueue.DefaultConfig().Queues,
			})
			worker.RegisterHandler(taskqueue.TaskAttachmentAnalyze, attachmentService.TaskHandler())

			go func() {
				logger.Info("Starting task queue worker")
				if err := worker.Start(); err != nil {
					logger.Errorf("Task queue worker stopped: %v", err)
				}
			}()
			defer worker.Stop()
		}
	}

	// 初始化API处理器
	deviationHandler := handler.NewDeviationHandler(
		incidentService, investigationService, reviewService, attachmentService, fileStorage)
	generateHandler := handler.NewGenerateHandler(emailService, todoService, fileStorage)
	qtaHandler := handler.NewQTAHandler(qtaService, fileStorage, cfg.Storage.Path)
	recordHandlerOpts := []handler.RecordOption{}
	if queue != nil {
		recordHandlerOpts = append(recordHandlerOpts, handler.WithRecordQueue(queue))
	}
	recordHandler := handler.NewRecordHandler(historyService, recordHandlerOpts...)

	// 设置路由
	r := api.SetupRouter(deviationHandler, generateHandler, qtaHandler, recordHandler)

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // 转写和OCR请求耗时较长
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// setupLogger 设置日志系统
func setupLogger(cfg appconfig.LoggingConfig) *logrus.Logger {
	logger := middleware.GetLogger()

	switch cfg.Level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	// 配置了日志文件时启用滚动输出
	if cfg.File != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return logger
}

// setupStorage 设置文件存储服务
func setupStorage(cfg appconfig.StorageConfig) (storage.Storage, error) {
	switch cfg.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		})
	default:
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %v", err)
		}
		return storage.NewLocalStorage(storage.LocalConfig{
			Path: cfg.Path,
		})
	}
}

// setupExtractor 设置Document AI OCR客户端
func setupExtractor(cfg appconfig.DocumentAIConfig) (ocr.TextExtractor, error) {
	token := cfg.AccessToken

	return ocr.NewDocAIClient(&ocr.DocAIConfig{
		ProjectID:        cfg.ProjectID,
		Location:         cfg.Location,
		ProcessorID:      cfg.ProcessorID,
		ProcessorVersion: cfg.ProcessorVersion,
		Timeout:          time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:       3,
		TokenSource: func(ctx context.Context) (string, error) {
			if token == "" {
				return "", fmt.Errorf("documentai access token is not configured")
			}
			return token, nil
		},
	})
}
