package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/OfflineRAG/internal/api"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:              string(job.Status),
		RAGExternalResponse: ToRAGExternalStatus(job.JobPayload),
	}

	return api.JobResponse{
		Id:        job.Id,
		ChatId:    job.ChatId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Citations) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question:  ragData.Question,
		Answer:    ragData.Answer,
		Citations: ToAPICitations(ragData.Citations),
	}
}

// ToAPICitations never returns nil: a refusal's citations event must encode
// as an empty JSON list, not null.
func ToAPICitations(citations []commonModels.Citation) []api.Citation {
	out := make([]api.Citation, 0, len(citations))
	for _, c := range citations {
		out = append(out, api.Citation{
			DocumentName: c.DocumentName,
			PageNumber:   c.PageNumber,
			TextSnippet:  c.TextSnippet,
			Score:        c.Score,
			UploadDate:   c.UploadDate,
		})
	}
	return out
}

func ToDocumentListResponse(docs []commonModels.DocumentInfo) api.DocumentListResponse {
	out := api.DocumentListResponse{Documents: make([]api.DocumentResponse, len(docs)), Count: len(docs)}
	for i, d := range docs {
		out.Documents[i] = api.DocumentResponse{
			Id:        d.Id,
			Name:      d.Name,
			Blocks:    d.Blocks,
			CreatedAt: d.CreatedAt,
		}
	}
	return out
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		ChatId:    "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status:              string(api.JobStatusError),
			RAGExternalResponse: ToRAGExternalStatus(jobModel.JobPayload{}),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
