package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoralex/video-transcribe/config"
	"github.com/yoralex/video-transcribe/internal/api/handlers"
	"github.com/yoralex/video-transcribe/internal/api/middleware"
	"github.com/yoralex/video-transcribe/internal/api/routes"
	"github.com/yoralex/video-transcribe/internal/audio"
	"github.com/yoralex/video-transcribe/internal/cache"
	"github.com/yoralex/video-transcribe/internal/logger"
	"github.com/yoralex/video-transcribe/internal/postprocess"
	mongorepo "github.com/yoralex/video-transcribe/internal/repositories/mongo"
	pgrepo "github.com/yoralex/video-transcribe/internal/repositories/postgres"
	"github.com/yoralex/video-transcribe/internal/services"
	"github.com/yoralex/video-transcribe/internal/storage"
	"github.com/yoralex/video-transcribe/internal/transcribe"
	"github.com/yoralex/video-transcribe/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()
	settings := config.LoadSettings()

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("MongoDB init error")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("MongoDB index error")
	}
	log.Info("MongoDB connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	provider, err := transcribe.NewProvider(ctx, settings.STTProvider, settings.STTAPIKey, settings.STTBaseURL)
	if err != nil {
		log.WithError(err).Fatal("speech-to-text provider init error")
	}
	defer provider.Close()

	llm, err := newLLMClient(ctx, settings)
	if err != nil {
		log.WithError(err).Fatal("post-processing client init error")
	}
	defer llm.Close()

	var uploader storage.Uploader
	var signer storage.Signer
	if settings.GCSBucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, settings.GCSBucket)
		if err != nil {
			log.WithError(err).Fatal("GCS init error")
		}
		defer gcs.Close()
		uploader, signer = gcs, gcs
	}

	jobRepo := pgrepo.NewJobRepo(config.PostgresDB)
	traceRepo := mongorepo.NewChunkTraceRepo(config.MongoDatabase())
	redisCache := cache.NewRedisCache(config.RedisClient)

	jobSvc := services.NewJobService(jobRepo, config.RedisClient)
	pipeline := services.NewTranscriptionService(services.TranscriptionDeps{
		Provider:    provider,
		Splitter:    audio.NewSplitter(),
		Jobs:        jobRepo,
		Traces:      traceRepo,
		Cache:       redisCache,
		Redis:       config.RedisClient,
		Uploader:    uploader,
		Signer:      signer,
		Postprocess: postprocess.NewProcessor(llm),
		Config: services.TranscriptionConfig{
			ChunkMaxSizeMB:  settings.ChunkMaxSizeMB,
			ChunkOverlapSec: settings.ChunkOverlapSec,
			ChunkWorkDir:    settings.ChunkWorkDir,
			CacheTTL:        settings.TranscriptCacheTTL,
		},
		Logger: log,
	})

	pool := &workers.TranscribeWorkerPool{
		Redis:    config.RedisClient,
		Pipeline: pipeline,
		Logger:   log,
	}
	if err := pool.Start(ctx); err != nil {
		log.WithError(err).Fatal("worker pool start error")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Jobs: handlers.NewJobHandler(jobSvc),
		WS:   handlers.NewWSHandler(jobSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func newLLMClient(ctx context.Context, s config.Settings) (postprocess.Client, error) {
	if s.PostprocessProvider == "vertex" {
		return postprocess.NewVertexGeminiClient(ctx, s.VertexProjectID, s.VertexLocation, s.PostprocessModel)
	}
	return postprocess.NewOpenAICompatClient(s.PostprocessAPIKey,
		postprocess.WithChatBaseURL(s.PostprocessBaseURL),
		postprocess.WithChatModel(s.PostprocessModel),
		postprocess.WithChatTemperature(s.PostprocessTemperature),
	)
}
