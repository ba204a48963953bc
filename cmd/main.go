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

	"github.com/fyerfyer/doc-quiz-system/api"
	"github.com/fyerfyer/doc-quiz-system/api/handler"
	"github.com/fyerfyer/doc-quiz-system/api/middleware"
	"github.com/fyerfyer/doc-quiz-system/config"
	"github.com/fyerfyer/doc-quiz-system/internal/cache"
	"github.com/fyerfyer/doc-quiz-system/internal/database"
	"github.com/fyerfyer/doc-quiz-system/internal/document"
	"github.com/fyerfyer/doc-quiz-system/internal/embedding"
	"github.com/fyerfyer/doc-quiz-system/internal/llm"
	"github.com/fyerfyer/doc-quiz-system/internal/repository"
	"github.com/fyerfyer/doc-quiz-system/internal/services"
	"github.com/fyerfyer/doc-quiz-system/internal/vectordb"
	"github.com/fyerfyer/doc-quiz-system/pkg/storage"
	"github.com/fyerfyer/doc-quiz-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ingestTimeout 单个文档处理的时间上限
const ingestTimeout = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to config file")
	mode := flag.String("mode", gin.ReleaseMode, "Run mode (debug/release)")
	flag.Parse()

	// .env文件用于本地开发时注入API密钥等敏感配置
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	gin.SetMode(*mode)

	middleware.SetupLogger(middleware.LogOptions{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	logger := middleware.GetLogger()
	logger.Info("Starting document quiz system...")

	dbCfg := database.DefaultConfig()
	dbCfg.Type = cfg.Database.Type
	dbCfg.DSN = cfg.Database.DSN
	if err := database.Setup(dbCfg, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}

	fileStorage, err := storage.NewStorage(storage.Config{
		Type: cfg.Storage.Type,
		Local: storage.LocalConfig{
			Path: cfg.Storage.Path,
		},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		},
	})
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	vectorDB, err := vectordb.NewRepository(vectordb.Config{
		Type:       cfg.VectorDB.Type,
		Addr:       cfg.VectorDB.Addr,
		Collection: cfg.VectorDB.Collection,
		Dimension:  cfg.VectorDB.Dim,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize vector database: %v", err)
	}
	defer vectorDB.Close()

	if err := vectorDB.Init(context.Background()); err != nil {
		logger.Fatalf("Failed to initialize vector collection: %v", err)
	}

	embedder, err := embedding.NewClient(cfg.Embed.Provider,
		embedding.WithAPIKey(cfg.Embed.APIKey),
		embedding.WithModel(cfg.Embed.Model),
		embedding.WithBaseURL(cfg.Embed.Endpoint),
		embedding.WithDimensions(cfg.Embed.Dimensions),
		embedding.WithBatchSize(cfg.Embed.BatchSize),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize embedding client: %v", err)
	}

	llmClient, err := llm.NewClient(cfg.LLM.Provider,
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize LLM client: %v", err)
	}

	answerCache, err := cache.NewCache(cache.Config{
		Type:          cfg.Cache.Type,
		RedisAddr:     cfg.Cache.Address,
		RedisPassword: cfg.Cache.Password,
		RedisDB:       cfg.Cache.DB,
		DefaultTTL:    cfg.Cache.TTLDuration(),
	})
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	splitter, err := document.NewTextSplitter(document.SplitterConfig{
		ChunkSize:    cfg.Document.ChunkSize,
		ChunkOverlap: cfg.Document.ChunkOverlap,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize text splitter: %v", err)
	}

	registry := repository.NewDocumentRegistry()
	documents := services.NewDocumentService(registry, vectorDB, logger)
	status := services.NewStatusManager(registry, logger)
	extractor := document.NewExtractor(document.NewDownloader(cfg.Document.DownloadTimeoutDuration()))
	ingest := services.NewIngestService(registry, status, extractor, splitter, embedder, vectorDB, logger,
		services.WithEmbedBatchSize(cfg.Document.EmbedBatchSize),
	)
	retriever := services.NewRetriever(embedder, vectorDB, logger,
		services.WithRetrievalK(cfg.Search.Limit),
		services.WithMinScore(cfg.Search.MinScore),
	)
	answers := services.NewAnswerService(documents, retriever, llm.NewAnswerGenerator(llmClient), answerCache, logger,
		services.WithAnswerCacheTTL(cfg.Cache.TTLDuration()),
	)
	quizzes := services.NewQuizService(documents, retriever, llm.NewQuizGenerator(llmClient), logger)

	// 启用队列时处理任务投递Redis由工作进程消费，否则在本进程后台执行
	var ingestor handler.Ingestor
	var taskHandler *handler.TaskHandler
	if cfg.Queue.Enable {
		queue, worker, err := setupTaskQueue(cfg, ingest, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		defer worker.Stop()

		ingestor = &queueIngestor{queue: queue}
		taskHandler = handler.NewTaskHandler(queue)
		logger.Info("Async document processing enabled")
	} else {
		ingestor = &inlineIngestor{ingest: ingest, logger: logger}
	}

	docHandler := handler.NewDocumentHandler(documents, ingestor, fileStorage)
	chatHandler := handler.NewChatHandler(answers)
	quizHandler := handler.NewQuizHandler(quizzes)

	router := api.SetupRouter(docHandler, chatHandler, quizHandler, taskHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Infof("Server is listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

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

// setupTaskQueue 创建Redis任务队列和消费入库任务的工作器
func setupTaskQueue(cfg *config.Config, ingest *services.IngestService, logger *logrus.Logger) (*taskqueue.RedisQueue, *taskqueue.IngestWorker, error) {
	queueCfg := taskqueue.DefaultConfig()
	queueCfg.RedisAddr = cfg.Queue.RedisAddr
	queueCfg.RedisPassword = cfg.Queue.RedisPassword
	queueCfg.RedisDB = cfg.Queue.RedisDB
	if cfg.Queue.Concurrency > 0 {
		queueCfg.Concurrency = cfg.Queue.Concurrency
	}
	if cfg.Queue.RetryLimit > 0 {
		queueCfg.RetryLimit = cfg.Queue.RetryLimit
	}
	if cfg.Queue.RetryDelay > 0 {
		queueCfg.RetryDelay = time.Duration(cfg.Queue.RetryDelay) * time.Second
	}

	queue, err := taskqueue.NewRedisQueue(queueCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	worker := taskqueue.NewIngestWorker(queue, func(ctx context.Context, documentID string) (*taskqueue.IngestResult, error) {
		result, err := ingest.Process(ctx, documentID)
		if err != nil {
			return nil, err
		}
		return &taskqueue.IngestResult{
			DocumentID:   result.DocumentID,
			ChunkCount:   result.ChunksCreated,
			PageCount:    result.PageCount,
			DocumentType: result.DocumentType,
		}, nil
	}, logger)

	if err := worker.Start(); err != nil {
		queue.Close()
		return nil, nil, err
	}

	return queue, worker, nil
}

// queueIngestor 将文档处理投递到异步任务队列
type queueIngestor struct {
	queue taskqueue.Queue
}

func (q *queueIngestor) StartIngest(ctx context.Context, documentID string) (string, error) {
	return q.queue.EnqueueIngest(ctx, documentID)
}

// inlineIngestor 在本进程后台执行文档处理
// 没有任务账本，调用方通过文档状态跟踪处理进度
type inlineIngestor struct {
	ingest *services.IngestService
	logger *logrus.Logger
}

func (i *inlineIngestor) StartIngest(ctx context.Context, documentID string) (string, error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
		defer cancel()

		if _, err := i.ingest.Process(ctx, documentID); err != nil {
			i.logger.WithField("document_id", documentID).WithError(err).Error("Background document processing failed")
		}
	}()
	return "", nil
}
