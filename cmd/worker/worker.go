package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ai"
	"github.com/Kanishk2004/plug-rag-sub002/internal/chunker"
	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
	"github.com/Kanishk2004/plug-rag-sub002/internal/queue"
	"github.com/Kanishk2004/plug-rag-sub002/internal/telemetry"
	"github.com/Kanishk2004/plug-rag-sub002/internal/tokenizer"
	"github.com/Kanishk2004/plug-rag-sub002/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer(cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	counter, err := tokenizer.NewTiktoken(cfg.TokenizerEncoding)
	if err != nil {
		log.Fatal("Failed to load tokenizer:", err)
	}

	var embedder *ai.EmbeddingClient
	if cfg.GeminiAPIKey != "" {
		embedder, err = ai.NewEmbeddingClient(cfg.GeminiAPIKey, cfg.EmbeddingsModel, cfg.EmbeddingsRPS, metrics)
		if err != nil {
			logger.Warn("Embeddings disabled", "error", err)
		} else {
			defer embedder.Close()
		}
	}

	storage := services.NewFileStorageManager(cfg)
	pipeline := services.NewProcessingService(cfg, db, storage, chunker.New(counter), embedder, metrics)

	reaper := services.NewReaper(cfg, db)
	if err := reaper.Start(); err != nil {
		logger.Error("Failed to start reaper", "error", err)
	}
	defer reaper.Stop()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(pipeline)
	mux := asynq.NewServeMux()
	processor.Register(mux)

	logger.Info("Starting ingestion worker",
		"concurrency", 20,
		"queues", "critical(6) default(3) low(1)",
		"redis", cfg.RedisURL,
	)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
