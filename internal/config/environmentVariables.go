package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	NoAuthBypass = true //offline single-box deployment; flip for exposed setups
	AuthToken    = ""

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//hierarchical index
	BlockSizePages                      = 20
	EmbeddingOutputDimensionality int32 = 384

	//retrieval tuning - empirically chosen, see DESIGN.md
	TopKBlocks          = 3
	TopKChunks          = 5
	ScoreThreshold      = 1.35 //L2 distance, approx cosine sim ~0.32
	ScoreMargin         = 1.1  //keep candidates within 10% of the best score
	KeywordMatchRatio   = 0.6
	MinKeywordLength    = 2 //query words must be longer than this
	GraphExtractMaxText = 2000

	//generation
	AnswerMaxTokens             = 512
	AnswerTemperature   float32 = 0.1
	AnswerTopP          float32 = 0.9
	AnswerRepeatPenalty float32 = 1.1
	AnswerStopSequence          = "Question:" //cuts hallucinated follow-up turns
	StreamBufferSize            = 50          //chars buffered before the refusal check

	RefusalAnswer   = "The requested information is not available in the uploaded documents."
	ModelDownAnswer = "System Notice: generation model not loaded. Displaying retrieved context only."

	//background graph building - kept below the query path's needs
	GraphWorkerCount = 2
	GraphQueueLimit  = 64

	//worker pool
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second
	StreamWriteTimeout     = 5 * time.Minute //SSE answers outlive the normal write timeout

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//persisted engine layout
	DataDir              = "models"
	IndexesSubDir        = "indexes"
	BlockIndexFile       = "block_index.bin"
	BlockMetadataFile    = "block_metadata.json"
	GraphFile            = "knowledge_graph.json"
	ProcessingStatusFile = "processing_status.json"
	EngineStatusFile     = "engine_status.json"
	UploadDir            = "temporary_data"

	//llm providers
	GeminiModelName       = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel  = "gemini-embedding-001"
	GoogleEmbeddingAPIKey = ""

	//OpenAI-compatible local server (llama.cpp / ollama)
	LocalLLMBaseURL   = "http://127.0.0.1:8080/v1"
	LocalLLMModelName = "phi-3-mini-4k-instruct"
	LocalLLMAPIKey    = "not-needed"

	GraphExtractMaxTokens           = 512
	GraphExtractTemperature float32 = 0.1

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost     = "127.0.0.1"
	redisPort     = "6379"
	RedisAddr     = redisHost + ":" + redisPort
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1

	//redis timeouts
	RedisJobStoreTTL     = 24 * time.Hour
	RedisMessageStoreTTL = 24 * time.Hour
)
