package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/CompassAPI/internal/config"
	"github.com/akolanti/CompassAPI/internal/data/redisStore"
	"github.com/akolanti/CompassAPI/internal/data/store"
	jobmodel "github.com/akolanti/CompassAPI/internal/domain/jobModel"
	"github.com/akolanti/CompassAPI/internal/handlers"
	"github.com/akolanti/CompassAPI/internal/job"
	"github.com/akolanti/CompassAPI/internal/rag"
	"github.com/akolanti/CompassAPI/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/CompassAPI/internal/rag/llm/gemini"
	"github.com/akolanti/CompassAPI/internal/rag/stagecache"
	"github.com/akolanti/CompassAPI/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/CompassAPI/internal/server"
	"github.com/akolanti/CompassAPI/internal/worker"
	"github.com/akolanti/CompassAPI/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	var jobStore jobmodel.JobStore
	if redisStore.GetRedisStore(serviceContext, config.RedisJobStore) != nil {
		jobStore = store.GetRedisJobStore(serviceContext)
	} else {
		logger.Error("Redis job store is offline, falling back to memory")
		jobStore = store.InitInMemoryJobStore()
	}

	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	vectorDB := qdrantDB.GetQuadrantClient(serviceContext)
	embeddingService := googleEmbedding.GetGoogleEmbeddingClient(serviceContext, config.GoogleEmbeddingModel, config.GoogleAPIKey)
	llmProvider := gemini.GetGeminiClient(serviceContext, config.GeminiModelName, config.GoogleAPIKey)

	if vectorDB == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	cacheStore := redisStore.GetRedisStore(serviceContext, config.RedisStageCache)
	if cacheStore == nil {
		logger.Error("Redis stage cache is offline. Shutting down.")
		return
	}
	stageCache := stagecache.NewRedisCache(cacheStore)

	ragService := rag.NewService(vectorDB, llmProvider, embeddingService, stageCache)

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
