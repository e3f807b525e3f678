// @title           Offline Document RAG API
// @version         1.0
// @description     Local-first document question answering over a hierarchical vector index and knowledge graph
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/data/store"
	jobmodel "github.com/akolanti/OfflineRAG/internal/domain/jobModel"
	"github.com/akolanti/OfflineRAG/internal/handlers"
	"github.com/akolanti/OfflineRAG/internal/job"
	"github.com/akolanti/OfflineRAG/internal/rag"
	"github.com/akolanti/OfflineRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/OfflineRAG/internal/rag/llm"
	"github.com/akolanti/OfflineRAG/internal/rag/llm/gemini"
	"github.com/akolanti/OfflineRAG/internal/rag/llm/localserver"
	"github.com/akolanti/OfflineRAG/internal/server"
	"github.com/akolanti/OfflineRAG/internal/worker"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

var (
	listenAddr        string
	llmBackend        string
	dataDir           string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.StringVar(&llmBackend, "llm", "local", "generation backend: local (llama.cpp/ollama) or gemini")
	flag.StringVar(&dataDir, "data-dir", config.DataDir, "directory holding indexes, graph and status files")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	// check the concrete pointers before they land in the interface fields -
	// a typed nil would pass an interface nil check
	jobStore := store.GetRedisJobStore(serviceContext)
	messageStore := store.GetRedisMessageStore(serviceContext)
	if jobStore == nil || messageStore == nil {
		logger.Error("Redis stores are offline, falling back to in-memory stores")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		serviceConfig.MessageStore = store.InitMessageStore()
	} else {
		serviceConfig.JobStore = jobStore
		serviceConfig.MessageStore = messageStore
	}
	service := job.InitJobService(serviceConfig)

	embeddingService := googleEmbedding.GetGoogleEmbeddingClient(serviceContext, config.GoogleEmbeddingModel, config.GoogleEmbeddingAPIKey)

	var llmProvider llm.Provider
	if llmBackend == "gemini" {
		llmProvider = gemini.GetGeminiClient(serviceContext, config.GeminiModelName, config.GoogleEmbeddingAPIKey)
	} else {
		llmProvider = localserver.GetLocalClient(config.LocalLLMBaseURL, config.LocalLLMModelName, config.LocalLLMAPIKey)
	}

	if embeddingService == nil || llmProvider == nil {
		logger.Error("One or more model services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	engine, err := rag.NewEngine(dataDir, embeddingService, llmProvider)
	if err != nil {
		// corrupt persisted state - refusing to serve beats misattributing answers
		logger.Error("Engine failed to start", "error", err)
		return
	}

	ragService := rag.NewService(engine)

	handlers.InitJobHandler(service)
	handlers.InitEngineHandlers(engine)

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
		DrainEngine:      engine.Shutdown,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
