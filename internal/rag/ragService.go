package rag

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/jobModel"
	"github.com/akolanti/OfflineRAG/internal/metrics"
	"github.com/akolanti/OfflineRAG/internal/rag/ingest"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - Real work happens down low bruh
  - This is the PUBLIC contract.
  - It defines the "behavior" (what the worker can do).
  - We expose this to keep the worker decoupled from our specific logic.

2. service (Private Struct):
  - down low stuff
  - This is the PRIVATE implementation.
  - It holds the "state" (the engine and its dependencies).
  - It is lowercase to prevent external packages from accessing our
    internal dependencies directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.
  - if it quacks like a duck, -it's a duck (Duck Typing)

4. Dependency Injection (NewService):
  - This constructor links the private struct to the public interface.
  - It allows us to swap the real engine for mocks during testing without
    changing the worker's code.
*/

// Service Worker will only call this service - it doesn't need to know the
// engine internals
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job, messageHistory []string) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type service struct {
	engine *Engine
	logger *logger_i.Logger
}

// NewService constructor
func NewService(engine *Engine) Service {
	return &service{
		engine: engine,
		logger: logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, messageHistory []string) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY).(string), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall
	jobt = logOutput(jobt, jobModel.IndexSearchCall, inMethodLogger)

	answer, citations, err := s.executeAnswerStep(processContext, &jobt, messageHistory)
	if err != nil {
		if errors.Is(err, ErrEngineNotReady) {
			return s.jobErrorWithCode(jobt, err, "ENGINE_NOT_READY", 503, true)
		}
		return s.jobError(jobt, err, "ANSWER_GENERATION_FAILURE", true)
	}

	return returnOutput(jobt, answer, citations)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY).(string), "JobId", job.Id)

	job = logOutput(job, jobModel.IngestProcessing, inMethodLogger)
	chunks, err := ingest.ExtractChunks(job.JobPayload.IngestURL, job.JobPayload.IngestFileName)
	if err != nil {
		return s.jobError(job, err, "INGESTION_FAILURE", false)
	}

	job = logOutput(job, jobModel.IngestIndexing, inMethodLogger)
	docId := job.JobPayload.IngestDocId
	if docId == "" {
		docId = job.Id
	}
	if err := s.engine.AddDocument(ctx, docId, job.JobPayload.IngestFileName, chunks); err != nil {
		return s.jobError(job, err, "INDEXING_FAILURE", true)
	}

	// uploads are spooled to disk only until they are indexed
	if err := os.Remove(job.JobPayload.IngestURL); err != nil {
		inMethodLogger.Warn("Failed to remove upload", "path", job.JobPayload.IngestURL, "error", err)
	}

	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}
