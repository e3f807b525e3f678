package rag

import (
	"context"
	"net/http"
	"time"

	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/domain/jobModel"
	"github.com/akolanti/OfflineRAG/internal/metrics"
	"github.com/akolanti/OfflineRAG/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string, citations []commonModels.Citation) jobModel.Job {
	job.JobPayload.Answer = ans
	job.JobPayload.Citations = citations
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	return s.jobErrorWithCode(job, err, message, http.StatusInternalServerError, canRetry)
}

func (s *service) jobErrorWithCode(job jobModel.Job, err error, message string, code int, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    code,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeAnswerStep(ctx context.Context, job *jobModel.Job, history []string) (string, []commonModels.Citation, error) {
	*job = logOutput(*job, jobModel.LLMCall, s.logger)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("answer_pipeline", time.Since(start)) }()

	return s.engine.GenerateAnswer(ctx, job.JobPayload.Question, history)
}
