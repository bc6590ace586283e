package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/Kanishk2004/plug-rag-sub002/internal/ai"
	"github.com/Kanishk2004/plug-rag-sub002/internal/chunker"
	"github.com/Kanishk2004/plug-rag-sub002/internal/config"
	"github.com/Kanishk2004/plug-rag-sub002/internal/logger"
	"github.com/Kanishk2004/plug-rag-sub002/internal/telemetry"
	"github.com/Kanishk2004/plug-rag-sub002/internal/tokenizer"
	"github.com/Kanishk2004/plug-rag-sub002/middleware"
	"github.com/Kanishk2004/plug-rag-sub002/routes"
	"github.com/Kanishk2004/plug-rag-sub002/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
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
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

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
	} else {
		logger.Warn("GEMINI_API_KEY not set, chunks will be stored without vectors")
	}

	storage := services.NewFileStorageManager(cfg)
	pipeline := services.NewProcessingService(cfg, db, storage, chunker.New(counter), embedder, metrics)
	docService := services.NewDocumentService(cfg, db, storage, queueClient, pipeline)

	reaper := services.NewReaper(cfg, db)
	if err := reaper.Start(); err != nil {
		logger.Error("Failed to start reaper", "error", err)
	}
	defer reaper.Stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware(cfg.ServiceName))
	}
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	api := router.Group("/api")
	api.Use(middleware.TenantMiddleware())
	api.Use(middleware.EnrichTrace())
	{
		api.POST("/documents", routes.HandleUploadDocument(cfg, docService))
		api.POST("/documents/url", routes.HandleIngestURL(docService))
		api.GET("/documents", routes.HandleListDocuments(docService))
		api.GET("/documents/:id", routes.HandleGetDocument(docService))
		api.GET("/documents/:id/chunks", routes.HandleListChunks(docService))
		api.POST("/documents/:id/rechunk", routes.HandleRechunkDocument(docService))
		api.DELETE("/documents/:id", routes.HandleDeleteDocument(docService))
		api.POST("/crawls", routes.HandleStartCrawl(docService))
		api.GET("/crawls/:id", routes.HandleGetCrawl(docService))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
